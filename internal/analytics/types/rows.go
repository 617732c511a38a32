package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// OrderEventRow mirrors the order_events BigQuery schema.
type OrderEventRow struct {
	EventID          string             `bigquery:"event_id"`
	EventType        string             `bigquery:"event_type"`
	OccurredAt       time.Time          `bigquery:"occurred_at"`
	OrderID          string             `bigquery:"order_id"`
	UserID           *string            `bigquery:"user_id"`
	PaymentSessionID *string            `bigquery:"payment_session_id"`
	AmountCents      *int64             `bigquery:"amount_cents"`
	Currency         *string            `bigquery:"currency"`
	ItemCount        *int64             `bigquery:"item_count"`
	FailureReason    *string            `bigquery:"failure_reason"`
	Items            cbigquery.NullJSON `bigquery:"items"`
	Payload          cbigquery.NullJSON `bigquery:"payload"`
}
