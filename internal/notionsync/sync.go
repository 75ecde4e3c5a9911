package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"github.com/dvloznov/vendor-ledger/internal/logger"
	"github.com/dvloznov/vendor-ledger/internal/submission"
	"github.com/jomei/notionapi"
)

// LineSink writes each submitted line as a page of a Notion database. A line
// whose Line ID already exists is skipped, so retried rows are not
// duplicated.
type LineSink struct {
	client     NotionService
	databaseID string
}

var _ submission.Sink = (*LineSink)(nil)

// NewLineSink creates a sink writing to databaseID.
func NewLineSink(client NotionService, databaseID string) *LineSink {
	return &LineSink{client: client, databaseID: databaseID}
}

func (s *LineSink) AppendRow(ctx context.Context, item invoice.LineItem) error {
	log := logger.FromContext(ctx)
	lineID := item.ID()

	exists, err := s.pageExists(ctx, lineID)
	if err != nil {
		return fmt.Errorf("LineSink.AppendRow: %w", err)
	}
	if exists {
		log.Debug().Str("line_id", lineID).Msg("Line already in Notion, skipping")
		return nil
	}

	props := LineItemToNotionProperties(item, submission.BatchIDFromContext(ctx))
	page, err := s.client.CreatePage(ctx, s.databaseID, props)
	if err != nil {
		return fmt.Errorf("LineSink.AppendRow: %w", err)
	}

	log.Debug().Str("line_id", lineID).Str("page_id", string(page.ID)).Msg("Created Notion page")
	return nil
}

func (s *LineSink) pageExists(ctx context.Context, lineID string) (bool, error) {
	resp, err := s.client.QueryDatabase(ctx, s.databaseID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropLineID,
			RichText: &notionapi.TextFilterCondition{Equals: lineID},
		},
		PageSize: 1,
	})
	if err != nil {
		return false, err
	}
	return len(resp.Results) > 0, nil
}
