package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTimetableDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.Timetable.DefaultPeriodMinutes)
	assert.Equal(t, LockBackendMemory, cfg.Timetable.LockBackend)
	assert.Equal(t, 2*time.Minute, cfg.Timetable.LockTTL)
	assert.True(t, cfg.Timetable.AuditAfterEdit)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestLoadTimetableOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("TIMETABLE_DEFAULT_PERIOD_MINUTES", "40")
	t.Setenv("TIMETABLE_LOCK_BACKEND", "REDIS")
	t.Setenv("TIMETABLE_LOCK_WAIT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Timetable.DefaultPeriodMinutes)
	assert.Equal(t, LockBackendRedis, cfg.Timetable.LockBackend)
	assert.Equal(t, 10*time.Second, cfg.Timetable.LockWait)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a , ,b "))
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
