package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/fleetline/fleet-api/pkg/export"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
)

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// RenderedFile is an export ready to be streamed to the client.
type RenderedFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders datasets into downloadable files.
type ExportService struct {
	csv datasetRenderer
	pdf datasetRenderer
	now func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers use the package defaults.
func NewExportService(csv, pdf datasetRenderer) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, now: time.Now}
}

// Render produces the file for format. name is used as the filename stem.
func (s *ExportService) Render(data export.Dataset, format, name string) (*RenderedFile, error) {
	stem := fmt.Sprintf("%s-%s", slug(name), s.now().UTC().Format("20060102-150405"))
	switch strings.ToLower(format) {
	case FormatCSV, "":
		body, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render csv")
		}
		return &RenderedFile{Filename: stem + ".csv", ContentType: "text/csv", Body: body}, nil
	case FormatPDF:
		body, err := s.pdf.Render(data)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render pdf")
		}
		return &RenderedFile{Filename: stem + ".pdf", ContentType: "application/pdf", Body: body}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format "+format)
	}
}

func slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "export"
	}
	return out
}
