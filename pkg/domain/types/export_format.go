package types

import "fmt"

// ExportFormat is the document format of a downloadable summary
type ExportFormat string

const (
	ExportFormatHTML     ExportFormat = "html"
	ExportFormatMarkdown ExportFormat = "markdown"
)

// IsValid checks if the export format is valid
func (f ExportFormat) IsValid() bool {
	switch f {
	case ExportFormatHTML, ExportFormatMarkdown:
		return true
	default:
		return false
	}
}

// ParseExportFormat parses a string into an ExportFormat. An empty string means HTML.
func ParseExportFormat(s string) (ExportFormat, error) {
	if s == "" {
		return ExportFormatHTML, nil
	}
	f := ExportFormat(s)
	if f == "md" {
		f = ExportFormatMarkdown
	}
	if !f.IsValid() {
		return "", fmt.Errorf("invalid export format: %s", s)
	}
	return f, nil
}
