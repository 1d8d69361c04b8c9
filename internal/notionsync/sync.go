package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/billscan/internal/logger"
	"github.com/dvloznov/billscan/internal/review"
)

// SyncPayments exports confirmed payments to the given Notion database.
// Pages are matched on the Payment ID property: existing pages are updated,
// the rest are created. dryRun logs the plan without touching Notion.
func SyncPayments(ctx context.Context, svc NotionService, databaseID string, payments []review.ImportPayment, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Int("payments", len(payments)).
		Bool("dry_run", dryRun).
		Msg("syncing confirmed payments to Notion")

	existing, err := existingPaymentPages(ctx, svc, databaseID)
	if err != nil {
		return fmt.Errorf("notionsync: listing existing pages: %w", err)
	}

	var created, updated int
	for _, p := range payments {
		props := PaymentToNotionProperties(p)
		pageID, exists := existing[p.ID]

		if dryRun {
			log.Info().Str("payment", p.Name).Bool("exists", exists).Msg("dry run, skipping write")
			continue
		}

		if exists {
			if _, err := svc.UpdatePage(ctx, pageID, props); err != nil {
				return fmt.Errorf("notionsync: updating %q: %w", p.Name, err)
			}
			updated++
		} else {
			if _, err := svc.CreatePage(ctx, databaseID, props); err != nil {
				return fmt.Errorf("notionsync: creating %q: %w", p.Name, err)
			}
			created++
		}
	}

	log.Info().Int("created", created).Int("updated", updated).Msg("Notion sync complete")
	return nil
}

// existingPaymentPages maps Payment ID -> Notion page ID for every page
// currently in the database.
func existingPaymentPages(ctx context.Context, svc NotionService, databaseID string) (map[string]string, error) {
	pages := make(map[string]string)

	var cursor notionapi.Cursor
	for {
		req := &notionapi.DatabaseQueryRequest{StartCursor: cursor, PageSize: 100}
		resp, err := svc.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, err
		}
		for _, page := range resp.Results {
			if id := extractPaymentID(page); id != "" {
				pages[id] = string(page.ID)
			}
		}
		if !resp.HasMore {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}

func extractPaymentID(page notionapi.Page) string {
	prop, ok := page.Properties["Payment ID"]
	if !ok {
		return ""
	}
	rt, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(rt.RichText) == 0 {
		return ""
	}
	return rt.RichText[0].PlainText
}
