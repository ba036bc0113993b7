package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var exportDayHeaders = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

type classTimetableReader interface {
	ClassTimetable(ctx context.Context, schoolID, classID string) (*dto.ClassTimetable, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	RenderWithOptions(data export.Dataset, title string, opts export.PDFOptions) ([]byte, error)
}

// ExportFile is a rendered timetable ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders class timetables as CSV or PDF documents.
type ExportService struct {
	timetables classTimetableReader
	csv        csvRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(timetables classTimetableReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{timetables: timetables, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ExportClass renders the class grid in the requested format. An empty
// format defaults to CSV.
func (s *ExportService) ExportClass(ctx context.Context, schoolID, classID, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	grid, err := s.timetables.ClassTimetable(ctx, schoolID, classID)
	if err != nil {
		return nil, err
	}
	dataset := classDataset(grid)
	generatedAt := s.now().UTC()

	var (
		body        []byte
		contentType string
	)
	switch format {
	case ExportFormatPDF:
		weights := map[string]float64{"Period": 1.2, "Time": 1.2}
		for _, day := range exportDayHeaders {
			weights[day] = 2
		}
		body, err = s.pdf.RenderWithOptions(dataset, fmt.Sprintf("Timetable %s", grid.ClassName), export.PDFOptions{
			Landscape:     true,
			Subtitle:      fmt.Sprintf("Generated %s", generatedAt.Format("2006-01-02 15:04 MST")),
			ColumnWeights: weights,
		})
		contentType = "application/pdf"
	default:
		body, err = s.csv.Render(dataset)
		contentType = "text/csv"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable export")
	}

	s.logger.Debug("timetable exported",
		zap.String("school_id", schoolID),
		zap.String("class_id", classID),
		zap.String("format", format),
		zap.Int("bytes", len(body)),
	)
	return &ExportFile{
		Filename:    fmt.Sprintf("timetable_%s_%s.%s", sanitizeFilename(grid.ClassName), generatedAt.Format("20060102_150405"), format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func classDataset(grid *dto.ClassTimetable) export.Dataset {
	headers := append([]string{"Period", "Time"}, exportDayHeaders...)
	rows := make([]map[string]string, 0, len(grid.Rows))
	for _, r := range grid.Rows {
		row := map[string]string{
			"Period": r.Name,
			"Time":   fmt.Sprintf("%s-%s", r.StartTime, r.EndTime),
		}
		for i, day := range exportDayHeaders {
			switch {
			case r.IsBreak:
				row[day] = "Break"
			case i < len(r.Cells) && r.Cells[i] != nil:
				row[day] = describeCell(r.Cells[i])
			default:
				row[day] = ""
			}
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func describeCell(cell *dto.TimetableCell) string {
	parts := make([]string, 0, 3)
	if cell.SubjectName != nil {
		parts = append(parts, *cell.SubjectName)
	}
	if cell.TeacherName != nil {
		parts = append(parts, *cell.TeacherName)
	}
	if cell.RoomNumber != nil && *cell.RoomNumber != "" {
		parts = append(parts, "Room "+*cell.RoomNumber)
	}
	return strings.Join(parts, " / ")
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
