package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type periodCatalog interface {
	List(ctx context.Context, schoolID string) ([]models.Period, error)
	Replace(ctx context.Context, schoolID string, req dto.ReplacePeriodsRequest) ([]models.Period, error)
}

type timetableSettings interface {
	Get(ctx context.Context, schoolID string) (*dto.SettingsResponse, error)
	Update(ctx context.Context, schoolID string, req dto.UpdateSettingsRequest) (*dto.SettingsResponse, error)
}

// PeriodHandler exposes the period catalog and timetable settings.
type PeriodHandler struct {
	periods  periodCatalog
	settings timetableSettings
}

// NewPeriodHandler constructs the handler.
func NewPeriodHandler(periods *service.PeriodService, settings *service.SettingsService) *PeriodHandler {
	return &PeriodHandler{periods: periods, settings: settings}
}

// List godoc
// @Summary List the school's daily periods
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/periods [get]
func (h *PeriodHandler) List(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	periods, err := h.periods.List(c.Request.Context(), schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods)
}

// Replace godoc
// @Summary Replace the whole period catalog
// @Description Slots on removed periods or periods turned into breaks are deleted.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.ReplacePeriodsRequest true "Period catalog"
// @Success 200 {object} response.Envelope
// @Router /timetable/periods [put]
func (h *PeriodHandler) Replace(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReplacePeriodsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid period catalog payload"))
		return
	}
	periods, err := h.periods.Replace(c.Request.Context(), schoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods)
}

// GetSettings godoc
// @Summary Get timetable settings
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/settings [get]
func (h *PeriodHandler) GetSettings(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	settings, err := h.settings.Get(c.Request.Context(), schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary Update the period duration used to convert hours into periods
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.UpdateSettingsRequest true "Settings"
// @Success 200 {object} response.Envelope
// @Router /timetable/settings [put]
func (h *PeriodHandler) UpdateSettings(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}
	settings, err := h.settings.Update(c.Request.Context(), schoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings)
}
