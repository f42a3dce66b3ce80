package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/vibast-solutions/ms-go-svea/app/entity"
)

var paymentRecordRows = []string{
	"id", "order_id", "payment_id", "payment_method", "status",
	"data_sent_json", "data_received_json", "date_added", "date_updated",
}

func newMock(t *testing.T) (*PaymentRecordRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewPaymentRecordRepository(db), mock, func() { _ = db.Close() }
}

func TestPaymentRecordCreate(t *testing.T) {
	repo, mock, closeDB := newMock(t)
	defer closeDB()

	now := time.Now().UTC()
	record := &entity.PaymentRecord{
		OrderID:     42,
		PaymentID:   "142",
		Status:      entity.PaymentStatusPending,
		DataSent:    map[string]string{"pmt_amount": "30,00"},
		DateAdded:   now,
		DateUpdated: now,
	}

	mock.ExpectExec("INSERT INTO payment_queue").
		WithArgs(int64(42), "142", "", entity.PaymentStatusPending,
			`{"pmt_amount":"30,00"}`, "{}", now, now).
		WillReturnResult(sqlmock.NewResult(7, 1))

	if err := repo.Create(context.Background(), record); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if record.ID != 7 {
		t.Fatalf("expected id 7, got %d", record.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPaymentRecordCreateDuplicate(t *testing.T) {
	repo, mock, closeDB := newMock(t)
	defer closeDB()

	mock.ExpectExec("INSERT INTO payment_queue").
		WillReturnError(&mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"})

	record := &entity.PaymentRecord{OrderID: 42, PaymentID: "142"}
	err := repo.Create(context.Background(), record)
	if !errors.Is(err, ErrPaymentAlreadyExists) {
		t.Fatalf("expected ErrPaymentAlreadyExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPaymentRecordUpdateNotFound(t *testing.T) {
	repo, mock, closeDB := newMock(t)
	defer closeDB()

	mock.ExpectExec("UPDATE payment_queue").
		WillReturnResult(sqlmock.NewResult(0, 0))

	record := &entity.PaymentRecord{ID: 9, Status: entity.PaymentStatusCompleted}
	err := repo.Update(context.Background(), record)
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPaymentRecordFindByPaymentID(t *testing.T) {
	repo, mock, closeDB := newMock(t)
	defer closeDB()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM payment_queue").
		WithArgs("142").
		WillReturnRows(sqlmock.NewRows(paymentRecordRows).
			AddRow(7, 42, "142", "FI01", entity.PaymentStatusPending,
				`{"pmt_amount":"30,00"}`, "{}", now, now))

	record, err := repo.FindByPaymentID(context.Background(), "142")
	if err != nil {
		t.Fatalf("FindByPaymentID: %v", err)
	}
	if record == nil || record.ID != 7 || record.OrderID != 42 {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.DataSent["pmt_amount"] != "30,00" {
		t.Fatalf("expected data_sent parsed, got %v", record.DataSent)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPaymentRecordFindByPaymentIDMissing(t *testing.T) {
	repo, mock, closeDB := newMock(t)
	defer closeDB()

	mock.ExpectQuery("SELECT (.+) FROM payment_queue").
		WithArgs("999").
		WillReturnRows(sqlmock.NewRows(paymentRecordRows))

	record, err := repo.FindByPaymentID(context.Background(), "999")
	if err != nil {
		t.Fatalf("FindByPaymentID: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil record, got %+v", record)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestListOpenForCheck(t *testing.T) {
	repo, mock, closeDB := newMock(t)
	defer closeDB()

	now := time.Now().UTC()
	oldestAdded := now.Add(-7 * 24 * time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM payment_queue").
		WithArgs(entity.PaymentStatusPending, entity.PaymentStatusDelayed, oldestAdded, int32(100)).
		WillReturnRows(sqlmock.NewRows(paymentRecordRows).
			AddRow(1, 41, "141", "", entity.PaymentStatusPending, "{}", "{}", now.Add(-time.Hour), now.Add(-time.Hour)).
			AddRow(2, 42, "142", "", entity.PaymentStatusDelayed, "{}", "{}", now.Add(-30*time.Minute), now.Add(-30*time.Minute)))

	records, err := repo.ListOpenForCheck(context.Background(), oldestAdded, 100)
	if err != nil {
		t.Fatalf("ListOpenForCheck: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].PaymentID != "141" || records[1].Status != entity.PaymentStatusDelayed {
		t.Fatalf("unexpected records %+v", records)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
