package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-svea/app/entity"
	"github.com/vibast-solutions/ms-go-svea/app/factory"
	"github.com/vibast-solutions/ms-go-svea/app/order"
	"github.com/vibast-solutions/ms-go-svea/app/repository"
	"github.com/vibast-solutions/ms-go-svea/app/svea"
	"github.com/vibast-solutions/ms-go-svea/config"
)

const defaultBatchSize = int32(100)

type paymentRecordRepository interface {
	Create(ctx context.Context, record *entity.PaymentRecord) error
	Update(ctx context.Context, record *entity.PaymentRecord) error
	FindByPaymentID(ctx context.Context, paymentID string) (*entity.PaymentRecord, error)
	FindByOrderAndPaymentID(ctx context.Context, orderID int64, paymentID string) (*entity.PaymentRecord, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]*entity.PaymentRecord, error)
	ListOpenForCheck(ctx context.Context, oldestAdded time.Time, limit int32) ([]*entity.PaymentRecord, error)
}

type statusQueryLogRepository interface {
	FindByPaymentID(ctx context.Context, paymentID string) (*entity.StatusQueryLogEntry, error)
	Record(ctx context.Context, entry *entity.StatusQueryLogEntry) error
}

type gateway interface {
	NewPaymentForm(req *svea.PaymentRequest) svea.RedirectForm
	StatusQuery(ctx context.Context, paymentID string, expected svea.ExpectedPayment) (*svea.StatusResponse, error)
	Cancel(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) error
	ConfirmDelivery(ctx context.Context, paymentID, deliveryMethod, trackingCode string) error
}

// PaymentService owns the payment lifecycle: redirect generation, return
// callback handling and background status reconciliation. All transitions go
// through the idempotency guards here; nothing else writes payment statuses.
type PaymentService struct {
	recordRepo paymentRecordRepository
	queryLog   statusQueryLogRepository
	builder    *svea.Builder
	validator  *svea.ReturnValidator
	gw         gateway
	notifier   order.Notifier
	sveaCfg    svea.Config
	policy     config.PaymentsConfig
	logger     logrus.FieldLogger
}

func NewPaymentService(
	recordRepo paymentRecordRepository,
	queryLog statusQueryLogRepository,
	gw gateway,
	notifier order.Notifier,
	sveaCfg svea.Config,
	policy config.PaymentsConfig,
) *PaymentService {
	return &PaymentService{
		recordRepo: recordRepo,
		queryLog:   queryLog,
		builder:    svea.NewBuilder(sveaCfg),
		validator:  svea.NewReturnValidator(sveaCfg),
		gw:         gw,
		notifier:   notifier,
		sveaCfg:    sveaCfg,
		policy:     policy,
		logger:     factory.NewModuleLogger("payment-service"),
	}
}

// CreatePayment builds the hashed payment message for an order, persists the
// pending record with its data_sent snapshot, and returns the browser
// redirect form. Rebuilding for an order that already has an open record
// refreshes the snapshot instead of creating a duplicate.
func (s *PaymentService) CreatePayment(ctx context.Context, ord order.Order) (*entity.PaymentRecord, svea.RedirectForm, error) {
	req, err := s.builder.Build(ord)
	if err != nil {
		return nil, svea.RedirectForm{}, err
	}

	form := s.gw.NewPaymentForm(req)
	sent := make(map[string]string, len(form.Fields))
	for _, field := range form.Fields {
		sent[field.Name] = field.Value
	}

	now := time.Now().UTC()

	existing, err := s.recordRepo.FindByOrderAndPaymentID(ctx, ord.ID(), req.ID)
	if err != nil {
		return nil, svea.RedirectForm{}, err
	}
	if existing != nil {
		if existing.IsTerminal() {
			return nil, svea.RedirectForm{}, fmt.Errorf("%w: order %d already has a settled payment", ErrPaymentAlreadyExists, ord.ID())
		}
		existing.DataSent = sent
		existing.DateUpdated = now
		if err := s.recordRepo.Update(ctx, existing); err != nil {
			return nil, svea.RedirectForm{}, err
		}
		return existing, form, nil
	}

	record := &entity.PaymentRecord{
		OrderID:       ord.ID(),
		PaymentID:     req.ID,
		PaymentMethod: s.sveaCfg.PaymentMethod,
		Status:        entity.PaymentStatusPending,
		DataSent:      sent,
		DataReceived:  map[string]string{},
		DateAdded:     now,
		DateUpdated:   now,
	}
	if err := s.recordRepo.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrPaymentAlreadyExists) {
			return nil, svea.RedirectForm{}, ErrPaymentAlreadyExists
		}
		return nil, svea.RedirectForm{}, err
	}

	return record, form, nil
}

// GetPayments returns all payment records for an order, newest first.
func (s *PaymentService) GetPayments(ctx context.Context, orderID int64) ([]*entity.PaymentRecord, error) {
	return s.recordRepo.ListByOrderID(ctx, orderID)
}

// HandleReturn runs one synchronous validation pass over an inbound return
// callback and applies the resulting transition. Integrity failures on an ok
// return fail closed: the record keeps its current status and the event is
// logged for investigation.
func (s *PaymentService) HandleReturn(ctx context.Context, action svea.ReturnAction, rawQuery string) (*entity.PaymentRecord, *svea.ReturnResult, error) {
	params, err := svea.ParseReturnParams(rawQuery)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	paymentID := ""
	for _, p := range params {
		if p.Name == "pmt_id" {
			paymentID = p.Value
			break
		}
	}
	if paymentID == "" {
		return nil, nil, fmt.Errorf("%w: pmt_id parameter is missing", ErrInvalidRequest)
	}

	record, err := s.recordRepo.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, ErrPaymentNotFound
	}

	result := s.validator.Validate(action, params, s.returnExpectation(record))

	now := time.Now().UTC()
	record.DataReceived = result.Received

	switch result.Action {
	case svea.ReturnOK:
		if err := s.complete(ctx, record, now, "payment confirmed by return callback"); err != nil {
			return nil, nil, err
		}
	case svea.ReturnCancel:
		if err := s.cancel(ctx, record, now, result.Message); err != nil {
			return nil, nil, err
		}
	case svea.ReturnDelay:
		if err := s.markDelayed(ctx, record, now, result.Message); err != nil {
			return nil, nil, err
		}
	case svea.ReturnError:
		if action == svea.ReturnOK {
			// Demoted ok return: an integrity failure, not a gateway
			// verdict. Fail closed, keep the current status.
			s.logger.WithFields(logrus.Fields{
				"payment_id": record.PaymentID,
				"order_id":   record.OrderID,
				"problems":   result.Errors,
			}).Warn("return_callback_rejected")
			record.DateUpdated = now
			if err := s.recordRepo.Update(ctx, record); err != nil {
				return nil, nil, err
			}
		} else if err := s.markError(ctx, record, now, result.Message); err != nil {
			return nil, nil, err
		}
	}

	return record, result, nil
}

// CheckPayment runs one status query pass for a record. Communication
// failures leave the record untouched for the next polling window; integrity
// failures are logged and apply no transition; a definitive answer moves the
// state machine.
func (s *PaymentService) CheckPayment(ctx context.Context, record *entity.PaymentRecord) error {
	// Completed and cancelled are final; an error record may still be
	// superseded by a confirmed status query answer.
	if record.IsCompleted() || record.IsCancelled() {
		return nil
	}

	now := time.Now().UTC()

	logEntry, err := s.queryLog.FindByPaymentID(ctx, record.PaymentID)
	if err != nil {
		return err
	}
	maxQueries := s.policy.MaxStatusQueries
	if maxQueries <= 0 {
		maxQueries = 40
	}
	if logEntry != nil && logEntry.QueryCount >= maxQueries {
		// Circuit breaker: unbounded polling against the gateway is an
		// operational failure that must self-terminate.
		return s.cancel(ctx, record, now, fmt.Sprintf("status query limit of %d reached", maxQueries))
	}

	resp, err := s.gw.StatusQuery(ctx, record.PaymentID, s.expectedPayment(record))
	if err != nil {
		switch {
		case errors.Is(err, svea.ErrHashMismatch), errors.Is(err, svea.ErrOrderMismatch), errors.Is(err, svea.ErrAmountMismatch):
			s.logger.WithError(err).WithFields(logrus.Fields{
				"payment_id": record.PaymentID,
				"order_id":   record.OrderID,
			}).Error("status_query_integrity_failure")
			return err
		default:
			return err
		}
	}

	raw, marshalErr := serializeRawResponse(resp.Raw)
	if marshalErr == nil {
		_ = s.queryLog.Record(ctx, &entity.StatusQueryLogEntry{
			PaymentID: record.PaymentID,
			Response:  raw,
			DateAdded: now,
		})
	}

	switch {
	case resp.Paid():
		return s.complete(ctx, record, now, fmt.Sprintf("payment confirmed by status query (returncode %d)", resp.ReturnCode))
	case svea.IsPayerCancellationCode(resp.ReturnCode):
		return s.cancel(ctx, record, now, fmt.Sprintf("payment cancelled by payer (returncode %d)", resp.ReturnCode))
	case now.Sub(record.DateAdded) >= s.giveUpAfter():
		return s.cancel(ctx, record, now, fmt.Sprintf("payment unpaid after %s (returncode %d)", s.giveUpAfter(), resp.ReturnCode))
	default:
		// Still inside the grace window: touch the record so it re-enters
		// the polling schedule later.
		record.DateUpdated = now
		return s.recordRepo.Update(ctx, record)
	}
}

// ConfirmDelivery reports delivery info for an escrow payment.
func (s *PaymentService) ConfirmDelivery(ctx context.Context, orderID int64, deliveryMethod, trackingCode string) error {
	record, err := s.recordRepo.FindByOrderAndPaymentID(ctx, orderID, s.builder.PaymentID(orderID))
	if err != nil {
		return err
	}
	if record == nil {
		return ErrPaymentNotFound
	}
	return s.gw.ConfirmDelivery(ctx, record.PaymentID, deliveryMethod, trackingCode)
}

func (s *PaymentService) returnExpectation(record *entity.PaymentRecord) svea.ReturnExpectation {
	sellerCosts := decimal.Zero
	if sent, ok := record.DataSent["pmt_sellercosts"]; ok {
		if parsed, err := svea.ParseMoney(sent); err == nil {
			sellerCosts = parsed
		}
	}
	return svea.ReturnExpectation{
		PaymentID:       record.PaymentID,
		PaymentIDPrefix: s.sveaCfg.PaymentIDPrefix,
		ReferenceBase:   record.OrderID + s.orderIDOffset(),
		SentFields:      record.DataSent,
		SellerCosts:     sellerCosts,
	}
}

func (s *PaymentService) expectedPayment(record *entity.PaymentRecord) svea.ExpectedPayment {
	expected := svea.ExpectedPayment{OrderID: record.DataSent["pmt_orderid"]}
	if amount, ok := record.DataSent["pmt_amount"]; ok {
		if parsed, err := svea.ParseMoney(amount); err == nil {
			expected.Amount = parsed
		}
	}
	if costs, ok := record.DataSent["pmt_sellercosts"]; ok {
		if parsed, err := svea.ParseMoney(costs); err == nil {
			expected.SellerCosts = parsed
		}
	}
	return expected
}

// complete moves a record to completed and marks the order paid. Completing
// an already-completed record is a no-op so a replayed callback can never
// double-credit the order.
func (s *PaymentService) complete(ctx context.Context, record *entity.PaymentRecord, now time.Time, note string) error {
	if record.IsCompleted() {
		return nil
	}
	if !record.CanTransition(entity.PaymentStatusCompleted) {
		return fmt.Errorf("%w: %s -> completed", ErrInvalidTransition, entity.StatusName(record.Status))
	}

	record.Status = entity.PaymentStatusCompleted
	record.DateUpdated = now
	if err := s.recordRepo.Update(ctx, record); err != nil {
		return err
	}

	reference := record.DataSent["pmt_reference"]
	if err := s.notifier.PaymentComplete(ctx, record.OrderID, reference); err != nil {
		s.logger.WithError(err).WithField("order_id", record.OrderID).Error("order_payment_complete_failed")
	}
	if err := s.notifier.UpdateStatus(ctx, record.OrderID, entity.StatusName(record.Status), note); err != nil {
		s.logger.WithError(err).WithField("order_id", record.OrderID).Warn("order_status_note_failed")
	}
	return nil
}

func (s *PaymentService) cancel(ctx context.Context, record *entity.PaymentRecord, now time.Time, reason string) error {
	if record.IsCancelled() {
		return nil
	}
	if !record.CanTransition(entity.PaymentStatusCancelled) {
		return fmt.Errorf("%w: %s -> cancelled", ErrInvalidTransition, entity.StatusName(record.Status))
	}

	record.Status = entity.PaymentStatusCancelled
	record.DateUpdated = now
	if err := s.recordRepo.Update(ctx, record); err != nil {
		return err
	}

	if err := s.notifier.CancelOrder(ctx, record.OrderID, reason); err != nil {
		s.logger.WithError(err).WithField("order_id", record.OrderID).Error("order_cancel_failed")
	}
	return nil
}

func (s *PaymentService) markDelayed(ctx context.Context, record *entity.PaymentRecord, now time.Time, note string) error {
	if record.Status == entity.PaymentStatusDelayed {
		return nil
	}
	if !record.CanTransition(entity.PaymentStatusDelayed) {
		return fmt.Errorf("%w: %s -> delayed", ErrInvalidTransition, entity.StatusName(record.Status))
	}

	record.Status = entity.PaymentStatusDelayed
	record.DateUpdated = now
	if err := s.recordRepo.Update(ctx, record); err != nil {
		return err
	}

	if err := s.notifier.UpdateStatus(ctx, record.OrderID, entity.StatusName(record.Status), note); err != nil {
		s.logger.WithError(err).WithField("order_id", record.OrderID).Warn("order_status_note_failed")
	}
	return nil
}

func (s *PaymentService) markError(ctx context.Context, record *entity.PaymentRecord, now time.Time, note string) error {
	if record.Status == entity.PaymentStatusError {
		return nil
	}
	if !record.CanTransition(entity.PaymentStatusError) {
		return fmt.Errorf("%w: %s -> error", ErrInvalidTransition, entity.StatusName(record.Status))
	}

	record.Status = entity.PaymentStatusError
	record.DateUpdated = now
	if err := s.recordRepo.Update(ctx, record); err != nil {
		return err
	}

	if err := s.notifier.UpdateStatus(ctx, record.OrderID, entity.StatusName(record.Status), note); err != nil {
		s.logger.WithError(err).WithField("order_id", record.OrderID).Warn("order_status_note_failed")
	}
	return nil
}

func (s *PaymentService) giveUpAfter() time.Duration {
	if s.policy.GiveUpAfter > 0 {
		return s.policy.GiveUpAfter
	}
	return 2 * time.Hour
}

func (s *PaymentService) orderIDOffset() int64 {
	if s.sveaCfg.OrderIDOffset > 0 {
		return s.sveaCfg.OrderIDOffset
	}
	return 100
}

func (s *PaymentService) batchSize() int32 {
	if s.policy.JobBatchSize > 0 {
		return s.policy.JobBatchSize
	}
	return defaultBatchSize
}
