package repository

import (
	"context"
	"database/sql"
)

// WebhookEventRepository registra os eventos de webhook já processados.
// A Stripe entrega "pelo menos uma vez": uma reentrega do mesmo evento é
// reconhecida aqui e respondida com 200 sem reaplicar a transição.
type WebhookEventRepository interface {
	JaProcessado(ctx context.Context, eventID string) (bool, error)
	Registrar(ctx context.Context, eventID, eventType string) error
}

type sqliteWebhookEventRepository struct {
	db *sql.DB
}

// NewWebhookEventRepository cria o repositório de eventos sobre SQLite.
func NewWebhookEventRepository(db *sql.DB) WebhookEventRepository {
	return &sqliteWebhookEventRepository{db: db}
}

func (r *sqliteWebhookEventRepository) JaProcessado(ctx context.Context, eventID string) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM webhook_events WHERE id = ?`, eventID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *sqliteWebhookEventRepository) Registrar(ctx context.Context, eventID, eventType string) error {
	stmt, err := r.db.PrepareContext(ctx,
		`INSERT OR IGNORE INTO webhook_events (id, event_type) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, eventID, eventType)
	return err
}
