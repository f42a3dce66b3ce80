package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-svea/app/entity"
)

// StatusQueryLogRepository persists polling history, one row per payment id.
type StatusQueryLogRepository struct {
	db DBTX
}

func NewStatusQueryLogRepository(db DBTX) *StatusQueryLogRepository {
	return &StatusQueryLogRepository{db: db}
}

func (r *StatusQueryLogRepository) FindByPaymentID(ctx context.Context, paymentID string) (*entity.StatusQueryLogEntry, error) {
	query := `
		SELECT id, payment_id, response_json, query_count, date_added
		FROM status_query_log
		WHERE payment_id = ?
		LIMIT 1
	`

	entry := &entity.StatusQueryLogEntry{}
	err := r.db.QueryRowContext(ctx, query, paymentID).Scan(
		&entry.ID,
		&entry.PaymentID,
		&entry.Response,
		&entry.QueryCount,
		&entry.DateAdded,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Record stores the latest raw response for a payment id and increments its
// query count, inserting the row on first contact.
func (r *StatusQueryLogRepository) Record(ctx context.Context, entry *entity.StatusQueryLogEntry) error {
	query := `
		INSERT INTO status_query_log (payment_id, response_json, query_count, date_added)
		VALUES (?, ?, 1, ?)
		ON DUPLICATE KEY UPDATE
			response_json = VALUES(response_json),
			query_count = query_count + 1,
			date_added = VALUES(date_added)
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.PaymentID,
		entry.Response,
		entry.DateAdded,
	)
	if err != nil {
		return err
	}

	if id, err := result.LastInsertId(); err == nil && id > 0 {
		entry.ID = uint64(id)
	}
	return nil
}
