package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

// park copies the row into outbox_dlq and marks it terminal so the
// publisher stops claiming it. Both writes share the batch transaction.
func (s *Service) park(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	if fields == nil {
		fields = s.eventFields(row, nil)
	}
	fields["terminal_reason"] = reason
	fields["error"] = cause.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox event dead-lettered")

	attempts := row.AttemptCount
	if reason == enums.OutboxDLQReasonMaxAttempts {
		attempts = s.maxAttempts
	}
	msg := cause.Error()
	letter := models.OutboxDLQ{
		EventID:       dlqEventID(row),
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  attempts,
	}
	if err := s.repo.InsertDLQTx(tx, letter); err != nil {
		return fmt.Errorf("dead-letter %s: %w", row.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, row.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	return nil
}

// dlqEventID prefers the envelope event id consumers deduplicate on and
// falls back to the row id when the payload cannot be decoded.
func dlqEventID(row models.OutboxEvent) uuid.UUID {
	if env, err := outbox.DecodeEnvelope(row.Payload); err == nil {
		if id, err := uuid.Parse(env.EventID); err == nil {
			return id
		}
	}
	return row.ID
}
