package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableGenerator interface {
	GenerateClass(ctx context.Context, schoolID, classID string) (*dto.GenerationResult, error)
	GenerateAll(ctx context.Context, schoolID string) (*dto.GenerationResult, error)
}

// GenerationHandler exposes destructive timetable regeneration.
type GenerationHandler struct {
	service timetableGenerator
}

// NewGenerationHandler constructs the handler.
func NewGenerationHandler(svc *service.TimetableGeneratorService) *GenerationHandler {
	return &GenerationHandler{service: svc}
}

// GenerateClass godoc
// @Summary Regenerate one class timetable
// @Description Clears the class grid, including manual edits, and rebuilds it. Requires confirm=true.
// @Tags Timetable
// @Produce json
// @Param classId path string true "Class ID"
// @Param confirm query bool true "Confirm the overwrite"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /classes/{classId}/timetable/generate [post]
func (h *GenerationHandler) GenerateClass(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := requireConfirmation(c); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.GenerateClass(c.Request.Context(), schoolID, c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// GenerateAll godoc
// @Summary Regenerate every class timetable of the school
// @Description Clears all slots of the school and rebuilds them with one shared teacher occupancy. Requires confirm=true.
// @Tags Timetable
// @Produce json
// @Param confirm query bool true "Confirm the overwrite"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /timetable/generate-all [post]
func (h *GenerationHandler) GenerateAll(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := requireConfirmation(c); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.GenerateAll(c.Request.Context(), schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

func requireConfirmation(c *gin.Context) error {
	var query dto.GenerateQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid confirm flag")
	}
	if !query.Confirm {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "regeneration overwrites existing slots; repeat with confirm=true")
	}
	return nil
}
