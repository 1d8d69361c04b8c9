// Package notionsync exports confirmed recurring payments to a Notion
// database so they can be tracked alongside the rest of a budget workspace.
package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/billscan/internal/review"
)

var weekdayNames = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// PaymentToNotionProperties converts a confirmed payment to the property set
// of the recurring payments Notion database.
func PaymentToNotionProperties(p review.ImportPayment) notionapi.Properties {
	amount, _ := p.Amount.Float64()

	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: p.Name,
					},
				},
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: amount,
		},
		"Currency": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: p.Currency,
			},
		},
		"Category": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: p.Category.String(),
			},
		},
		"Frequency": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(p.Recurrence),
			},
		},
		"First Seen": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					d := notionapi.Date(time.Date(
						p.StartDate.Year(),
						p.StartDate.Month(),
						p.StartDate.Day(),
						0, 0, 0, 0, time.UTC,
					))
					return &d
				}(),
			},
		},
	}

	if p.DayOfMonth != nil {
		props["Billing Day"] = notionapi.NumberProperty{
			Number: float64(*p.DayOfMonth),
		}
	}
	if p.DayOfWeek != nil && *p.DayOfWeek >= 0 && *p.DayOfWeek < len(weekdayNames) {
		props["Billing Weekday"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: weekdayNames[*p.DayOfWeek],
			},
		}
	}
	if p.Notes != "" {
		props["Notes"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: p.Notes,
					},
				},
			},
		}
	}

	// Payment ID keeps the sync idempotent across reruns.
	props["Payment ID"] = notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{
					Content: p.ID,
				},
			},
		},
	}

	return props
}
