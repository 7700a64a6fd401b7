package audit

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// TimelinePDF renders the request timeline, newest first, as a PDF document.
func (s *Service) TimelinePDF(ctx context.Context, requestID string) ([]byte, error) {
	events, err := s.Timeline(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrEntryNotFound
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave request timeline")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Request: %s", requestID))
	pdf.Ln(10)

	for _, evt := range events {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 7, fmt.Sprintf("%s  %s", evt.CreatedAt.Format("2006-01-02 15:04 MST"), evt.Action))
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
		actor := evt.ActorID
		if actor == "" {
			actor = "system"
		}
		line := fmt.Sprintf("Actor: %s", actor)
		if evt.DelegateID != "" {
			line += fmt.Sprintf(" (delegate %s)", evt.DelegateID)
		}
		if evt.EscalationLevel != nil {
			line += fmt.Sprintf("  escalation level %d", *evt.EscalationLevel)
		}
		pdf.Cell(0, 6, line)
		pdf.Ln(5)
		if evt.Comment != "" {
			pdf.MultiCell(0, 5, "Comment: "+evt.Comment, "", "L", false)
		}
		if !evt.Verified {
			pdf.Cell(0, 6, "WARNING: checksum mismatch")
			pdf.Ln(5)
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
