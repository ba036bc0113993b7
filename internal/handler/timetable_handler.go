package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableReader interface {
	ClassTimetable(ctx context.Context, schoolID, classID string) (*dto.ClassTimetable, error)
	TeacherTimetable(ctx context.Context, schoolID, teacherID string) (*dto.TeacherTimetable, error)
}

type timetableExporter interface {
	ExportClass(ctx context.Context, schoolID, classID, format string) (*service.ExportFile, error)
}

type slotEditor interface {
	UpsertSlot(ctx context.Context, schoolID, classID string, req dto.UpsertSlotRequest) (*dto.SlotEditResult, error)
	DeleteSlot(ctx context.Context, schoolID, classID string, req dto.DeleteSlotRequest) (*dto.SlotEditResult, error)
}

type conflictAuditor interface {
	Check(ctx context.Context, schoolID string) (*dto.ConflictReport, error)
	Latest(ctx context.Context, schoolID string) (*dto.ConflictReport, error)
}

// TimetableHandler exposes timetable grids, manual edits, exports and the
// conflict report.
type TimetableHandler struct {
	reader   timetableReader
	exporter timetableExporter
	editor   slotEditor
	auditor  conflictAuditor
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(reader *service.TimetableQueryService, exporter *service.ExportService, editor *service.SlotEditService, auditor *service.ConflictAuditService) *TimetableHandler {
	return &TimetableHandler{reader: reader, exporter: exporter, editor: editor, auditor: auditor}
}

// ClassTimetable godoc
// @Summary Get a class timetable grid
// @Tags Timetable
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/timetable [get]
func (h *TimetableHandler) ClassTimetable(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	grid, err := h.reader.ClassTimetable(c.Request.Context(), schoolID, c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid)
}

// Export godoc
// @Summary Download a class timetable
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Param classId path string true "Class ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /classes/{classId}/timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	file, err := h.exporter.ExportClass(c.Request.Context(), schoolID, c.Param("classId"), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}

// UpsertSlot godoc
// @Summary Manually set one cell of a class timetable
// @Description Omitting classSubjectId clears the cell. Teacher availability is not checked; the conflict report flags double bookings.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param payload body dto.UpsertSlotRequest true "Slot"
// @Success 200 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /classes/{classId}/timetable/slots [put]
func (h *TimetableHandler) UpsertSlot(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpsertSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	result, err := h.editor.UpsertSlot(c.Request.Context(), schoolID, c.Param("classId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// DeleteSlot godoc
// @Summary Clear one cell of a class timetable
// @Tags Timetable
// @Produce json
// @Param classId path string true "Class ID"
// @Param periodId query string true "Period ID"
// @Param dayOfWeek query int true "Weekday, 1 = Monday"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/timetable/slots [delete]
func (h *TimetableHandler) DeleteSlot(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.DeleteSlotRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot query"))
		return
	}
	result, err := h.editor.DeleteSlot(c.Request.Context(), schoolID, c.Param("classId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// TeacherTimetable godoc
// @Summary Get every cell taught by a teacher
// @Tags Timetable
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/timetable [get]
func (h *TimetableHandler) TeacherTimetable(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	timetable, err := h.reader.TeacherTimetable(c.Request.Context(), schoolID, c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable)
}

// Conflicts godoc
// @Summary Report teachers booked in more than one class at the same time
// @Tags Timetable
// @Produce json
// @Param fresh query bool false "Bypass the cached report"
// @Success 200 {object} response.Envelope
// @Router /timetable/conflicts [get]
func (h *TimetableHandler) Conflicts(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	fresh, _ := strconv.ParseBool(c.Query("fresh"))
	var report *dto.ConflictReport
	if fresh {
		report, err = h.auditor.Check(c.Request.Context(), schoolID)
	} else {
		report, err = h.auditor.Latest(c.Request.Context(), schoolID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, map[string]interface{}{"conflictCount": len(report.Conflicts)})
}
