package payment

import (
	"context"
	"database/sql"
	"encoding/json"
)

// Repository is the webhook event ledger. The gateway delivers events
// at-least-once; the (provider, event_id) unique constraint detects
// redeliveries, and the processed flag tells a completed prior attempt
// apart from one that failed and must run again on retry.
type Repository interface {
	SaveWebhookEvent(
		ctx context.Context,
		provider string,
		eventID string,
		eventType string,
		orderID string,
		payload json.RawMessage,
	) (webhookID int64, alreadyProcessed bool, err error)

	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SaveWebhookEvent(
	ctx context.Context,
	provider string,
	eventID string,
	eventType string,
	orderID string,
	payload json.RawMessage,
) (int64, bool, error) {

	// The no-op DO UPDATE makes RETURNING yield the existing row on a
	// redelivery, so the caller can see whether the earlier attempt
	// actually finished. A delivery that ended in MarkWebhookFailed keeps
	// processed_at NULL and gets handed out again for reprocessing.
	const q = `
	INSERT INTO payment_webhooks (
		provider,
		event_id,
		event_type,
		order_id,
		payload
	)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (provider, event_id)
	DO UPDATE SET event_id = EXCLUDED.event_id
	RETURNING id, processed_at IS NOT NULL;
	`

	var id int64
	var processed bool
	err := r.db.QueryRowContext(ctx, q, provider, eventID, eventType, orderID, payload).Scan(&id, &processed)
	if err != nil {
		return 0, false, err
	}

	return id, processed, nil
}

func (r *repository) MarkWebhookProcessed(ctx context.Context, webhookID int64) error {
	const q = `
	UPDATE payment_webhooks
	SET processed_at = now(), failed_at = NULL, failure_reason = NULL
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID)
	return err
}

func (r *repository) MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error {
	const q = `
	UPDATE payment_webhooks
	SET failed_at = now(), failure_reason = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID, reason)
	return err
}
