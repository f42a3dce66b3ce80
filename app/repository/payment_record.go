package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-svea/app/entity"
)

var (
	ErrPaymentNotFound      = errors.New("payment record not found")
	ErrPaymentAlreadyExists = errors.New("payment record already exists")
)

const paymentRecordColumns = `
	id, order_id, payment_id, payment_method, status,
	data_sent_json, data_received_json, date_added, date_updated
`

// PaymentRecordRepository persists the payment queue: one row per
// (order_id, payment_id), unique-keyed, never deleted.
type PaymentRecordRepository struct {
	db DBTX
}

func NewPaymentRecordRepository(db DBTX) *PaymentRecordRepository {
	return &PaymentRecordRepository{db: db}
}

func (r *PaymentRecordRepository) Create(ctx context.Context, record *entity.PaymentRecord) error {
	sentJSON, err := serializeFieldMap(record.DataSent)
	if err != nil {
		return err
	}
	receivedJSON, err := serializeFieldMap(record.DataReceived)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payment_queue (
			order_id, payment_id, payment_method, status,
			data_sent_json, data_received_json, date_added, date_updated
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		record.OrderID,
		record.PaymentID,
		record.PaymentMethod,
		record.Status,
		sentJSON,
		receivedJSON,
		record.DateAdded,
		record.DateUpdated,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = uint64(id)
	return nil
}

func (r *PaymentRecordRepository) Update(ctx context.Context, record *entity.PaymentRecord) error {
	sentJSON, err := serializeFieldMap(record.DataSent)
	if err != nil {
		return err
	}
	receivedJSON, err := serializeFieldMap(record.DataReceived)
	if err != nil {
		return err
	}

	query := `
		UPDATE payment_queue SET
			payment_method = ?,
			status = ?,
			data_sent_json = ?,
			data_received_json = ?,
			date_updated = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		record.PaymentMethod,
		record.Status,
		sentJSON,
		receivedJSON,
		record.DateUpdated,
		record.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *PaymentRecordRepository) FindByPaymentID(ctx context.Context, paymentID string) (*entity.PaymentRecord, error) {
	query := `
		SELECT ` + paymentRecordColumns + `
		FROM payment_queue
		WHERE payment_id = ?
		LIMIT 1
	`

	record := &entity.PaymentRecord{}
	if err := scanPaymentRecord(r.db.QueryRowContext(ctx, query, paymentID), record); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *PaymentRecordRepository) FindByOrderAndPaymentID(ctx context.Context, orderID int64, paymentID string) (*entity.PaymentRecord, error) {
	query := `
		SELECT ` + paymentRecordColumns + `
		FROM payment_queue
		WHERE order_id = ? AND payment_id = ?
		LIMIT 1
	`

	record := &entity.PaymentRecord{}
	if err := scanPaymentRecord(r.db.QueryRowContext(ctx, query, orderID, paymentID), record); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *PaymentRecordRepository) ListByOrderID(ctx context.Context, orderID int64) ([]*entity.PaymentRecord, error) {
	query := `
		SELECT ` + paymentRecordColumns + `
		FROM payment_queue
		WHERE order_id = ?
		ORDER BY id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPaymentRecords(rows)
}

// ListOpenForCheck returns non-terminal records young enough to still be in
// the polling window, oldest update first.
func (r *PaymentRecordRepository) ListOpenForCheck(ctx context.Context, oldestAdded time.Time, limit int32) ([]*entity.PaymentRecord, error) {
	query := `
		SELECT ` + paymentRecordColumns + `
		FROM payment_queue
		WHERE status IN (?, ?)
		  AND date_added > ?
		ORDER BY date_updated ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query,
		entity.PaymentStatusPending,
		entity.PaymentStatusDelayed,
		oldestAdded,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPaymentRecords(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPaymentRecord(scan rowScanner, record *entity.PaymentRecord) error {
	var sentJSON string
	var receivedJSON string

	err := scan.Scan(
		&record.ID,
		&record.OrderID,
		&record.PaymentID,
		&record.PaymentMethod,
		&record.Status,
		&sentJSON,
		&receivedJSON,
		&record.DateAdded,
		&record.DateUpdated,
	)
	if err != nil {
		return err
	}

	sent, err := parseFieldMap(sentJSON)
	if err != nil {
		return err
	}
	record.DataSent = sent

	received, err := parseFieldMap(receivedJSON)
	if err != nil {
		return err
	}
	record.DataReceived = received

	return nil
}

func collectPaymentRecords(rows *sql.Rows) ([]*entity.PaymentRecord, error) {
	records := make([]*entity.PaymentRecord, 0)
	for rows.Next() {
		record := &entity.PaymentRecord{}
		if err := scanPaymentRecord(rows, record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
