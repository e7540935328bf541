package notionaudit

import (
	"context"
	"fmt"

	"github.com/dvloznov/ledger-reconciler/internal/logger"
	"github.com/dvloznov/ledger-reconciler/internal/recon"
	"github.com/jomei/notionapi"
)

// Sink implements recon.AuditSink against a Notion database. Append never
// returns an error: failures are logged and dropped, because this sink is a
// human-review mirror, not the authoritative trail.
type Sink struct {
	notion     NotionService
	databaseID string
}

// NewSink creates a Notion audit mirror targeting the given database.
func NewSink(notion NotionService, databaseID string) *Sink {
	return &Sink{
		notion:     notion,
		databaseID: databaseID,
	}
}

// Append mirrors one audit record as a Notion page. The record id goes into
// the page title, so re-mirrored records are identifiable and deduplicable by
// hand if a retry ever double-posts.
func (s *Sink) Append(ctx context.Context, rec recon.AuditRecord) error {
	props := notionapi.Properties{
		"Record": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{Text: &notionapi.Text{Content: rec.RecordID}},
			},
		},
		"Run ID":     richText(rec.RunID),
		"Period":     richText(rec.Period),
		"Entry":      richText(fmt.Sprintf("%s %s", rec.EntryID, rec.EntryName)),
		"Matched":    notionapi.CheckboxProperty{Checkbox: rec.Accepted},
		"Confidence": notionapi.NumberProperty{Number: rec.Confidence},
		"Decided At": notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: (*notionapi.Date)(&rec.Timestamp)},
		},
	}
	if rec.Accepted {
		props["Matched Text"] = richText(rec.MatchedText)
		props["Reference"] = richText(rec.MatchedReference)
		props["Contribution"] = notionapi.NumberProperty{Number: rec.Contribution}
		props["New Value"] = notionapi.NumberProperty{Number: rec.NewValue}
	}
	if rec.Warning != "" {
		props["Warning"] = richText(rec.Warning)
	}

	if _, err := s.notion.CreatePage(ctx, s.databaseID, props); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().
			Err(err).
			Str("record_id", rec.RecordID).
			Str("run_id", rec.RunID).
			Msg("Failed to mirror audit record to Notion")
	}
	return nil
}

// PublishSummary posts one page with the run's terminal counters.
func (s *Sink) PublishSummary(ctx context.Context, summary recon.RunSummary) {
	status := "completed"
	if summary.Aborted() {
		status = "aborted"
	}

	props := notionapi.Properties{
		"Record": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{Text: &notionapi.Text{Content: fmt.Sprintf("run %s %s", summary.RunID, status)}},
			},
		},
		"Run ID":     richText(summary.RunID),
		"Period":     richText(summary.Period),
		"Matched":    notionapi.CheckboxProperty{Checkbox: false},
		"Confidence": notionapi.NumberProperty{Number: 0},
		"Entry": richText(fmt.Sprintf("processed=%d matched=%d skipped=%d elapsed=%s",
			summary.Processed, summary.Matched, summary.Skipped, summary.Elapsed)),
	}

	if _, err := s.notion.CreatePage(ctx, s.databaseID, props); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().
			Err(err).
			Str("run_id", summary.RunID).
			Msg("Failed to mirror run summary to Notion")
	}
}

func richText(content string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{Text: &notionapi.Text{Content: content}},
		},
	}
}

var _ recon.AuditSink = (*Sink)(nil)
