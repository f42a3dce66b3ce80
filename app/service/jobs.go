package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vibast-solutions/ms-go-svea/app/entity"
)

// RunStatusQueryBatch reconciles unconfirmed payments against the gateway.
// Candidates are loaded from the persisted queue and filtered through the
// per-record time windows; each due record gets one status query pass.
func (s *PaymentService) RunStatusQueryBatch(ctx context.Context) error {
	now := time.Now().UTC()
	oldestAdded := now.Add(-7 * 24 * time.Hour)

	records, err := s.recordRepo.ListOpenForCheck(ctx, oldestAdded, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, record := range records {
		if record == nil || !record.IsTimeToCheck(now) {
			continue
		}
		if err := s.CheckPayment(ctx, record); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// CheckOrder forces one status query pass for an order's open payment,
// outside the normal polling schedule. Error records are queried too, so a
// forced check can let a confirmed answer supersede an earlier error.
func (s *PaymentService) CheckOrder(ctx context.Context, orderID int64) (*entity.PaymentRecord, error) {
	records, err := s.recordRepo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	for _, record := range records {
		if record.IsCompleted() || record.IsCancelled() {
			continue
		}
		if err := s.CheckPayment(ctx, record); err != nil {
			return nil, err
		}
		return record, nil
	}

	if len(records) > 0 {
		return records[0], nil
	}
	return nil, ErrPaymentNotFound
}

func serializeRawResponse(raw map[string]string) (string, error) {
	if raw == nil {
		raw = map[string]string{}
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
