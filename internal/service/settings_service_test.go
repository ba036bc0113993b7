package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func TestSettingsServiceFallsBackToDefault(t *testing.T) {
	svc := NewSettingsService(&settingsStoreStub{}, nil, 40, nil, nil)

	resp, err := svc.Get(context.Background(), testSchool)
	require.NoError(t, err)
	assert.Equal(t, 40, resp.PeriodDurationMinutes)
	assert.Equal(t, "default", resp.Source)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, resp.WorkingDays)
}

func TestSettingsServiceUsesSchoolValue(t *testing.T) {
	store := &settingsStoreStub{settings: &models.SchoolSettings{SchoolID: testSchool, PeriodDurationMinutes: 35}}
	svc := NewSettingsService(store, nil, 45, nil, nil)

	minutes, err := svc.PeriodMinutes(context.Background(), testSchool)
	require.NoError(t, err)
	assert.Equal(t, 35, minutes)
}

func TestSettingsServiceUpdate(t *testing.T) {
	store := &settingsStoreStub{}
	svc := NewSettingsService(store, nil, 45, nil, nil)

	resp, err := svc.Update(context.Background(), testSchool, dto.UpdateSettingsRequest{PeriodDurationMinutes: 50})
	require.NoError(t, err)
	assert.Equal(t, "school", resp.Source)
	require.NotNil(t, store.settings)
	assert.Equal(t, 50, store.settings.PeriodDurationMinutes)

	_, err = svc.Update(context.Background(), testSchool, dto.UpdateSettingsRequest{PeriodDurationMinutes: 500})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSettingsServiceStoreFailure(t *testing.T) {
	svc := NewSettingsService(&settingsStoreStub{err: errors.New("db down")}, nil, 45, nil, nil)
	_, err := svc.Get(context.Background(), testSchool)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
