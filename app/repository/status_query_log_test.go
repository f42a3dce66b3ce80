package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/vibast-solutions/ms-go-svea/app/entity"
)

func newLogMock(t *testing.T) (*StatusQueryLogRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewStatusQueryLogRepository(db), mock, func() { _ = db.Close() }
}

func TestStatusQueryLogRecordUpsert(t *testing.T) {
	repo, mock, closeDB := newLogMock(t)
	defer closeDB()

	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO status_query_log").
		WithArgs("142", `{"pmtq_returncode":"00"}`, now).
		WillReturnResult(sqlmock.NewResult(3, 1))

	entry := &entity.StatusQueryLogEntry{
		PaymentID: "142",
		Response:  `{"pmtq_returncode":"00"}`,
		DateAdded: now,
	}
	if err := repo.Record(context.Background(), entry); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if entry.ID != 3 {
		t.Fatalf("expected id 3, got %d", entry.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestStatusQueryLogFindByPaymentID(t *testing.T) {
	repo, mock, closeDB := newLogMock(t)
	defer closeDB()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM status_query_log").
		WithArgs("142").
		WillReturnRows(sqlmock.NewRows([]string{"id", "payment_id", "response_json", "query_count", "date_added"}).
			AddRow(3, "142", "{}", int32(5), now))

	entry, err := repo.FindByPaymentID(context.Background(), "142")
	if err != nil {
		t.Fatalf("FindByPaymentID: %v", err)
	}
	if entry == nil || entry.QueryCount != 5 {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestStatusQueryLogFindMissing(t *testing.T) {
	repo, mock, closeDB := newLogMock(t)
	defer closeDB()

	mock.ExpectQuery("SELECT (.+) FROM status_query_log").
		WithArgs("999").
		WillReturnRows(sqlmock.NewRows([]string{"id", "payment_id", "response_json", "query_count", "date_added"}))

	entry, err := repo.FindByPaymentID(context.Background(), "999")
	if err != nil {
		t.Fatalf("FindByPaymentID: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected nil entry, got %+v", entry)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
