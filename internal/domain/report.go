package domain

import "fmt"

// ReportSheet is the worksheet holding the exported rows.
const ReportSheet = "event_data"

// Attachment is a rendered report ready for delivery.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReportFilename names the spreadsheet for a target month.
func ReportFilename(month string) string {
	return fmt.Sprintf("EONET_data_%s.xlsx", month)
}
