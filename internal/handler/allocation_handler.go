package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type allocationManager interface {
	List(ctx context.Context, schoolID, classID string) (*dto.AllocationsResponse, error)
	Validate(ctx context.Context, schoolID, classID string) (*scheduler.Validation, error)
	Replace(ctx context.Context, schoolID, classID string, req dto.ReplaceAllocationsRequest) (*dto.AllocationsResponse, error)
}

// AllocationHandler exposes class subject allocations.
type AllocationHandler struct {
	service allocationManager
}

// NewAllocationHandler constructs the handler.
func NewAllocationHandler(svc *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{service: svc}
}

// List godoc
// @Summary List class allocations with the capacity report
// @Tags Timetable
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/allocations [get]
func (h *AllocationHandler) List(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp, err := h.service.List(c.Request.Context(), schoolID, c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// Validate godoc
// @Summary Check whether class allocations fit the weekly grid
// @Tags Timetable
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/allocations/validate [get]
func (h *AllocationHandler) Validate(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.Validate(c.Request.Context(), schoolID, c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// Replace godoc
// @Summary Replace class allocations
// @Description Over-allocation is saved and flagged in the returned validation.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param payload body dto.ReplaceAllocationsRequest true "Allocations"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/allocations [put]
func (h *AllocationHandler) Replace(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReplaceAllocationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid allocation payload"))
		return
	}
	resp, err := h.service.Replace(c.Request.Context(), schoolID, c.Param("classId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}
