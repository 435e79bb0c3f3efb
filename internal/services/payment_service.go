package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"momo-gateway/internal/models"
	"momo-gateway/internal/repositories/interfaces"
	"momo-gateway/internal/validators"
	"momo-gateway/pkg/collections"
	"momo-gateway/pkg/logger"
	"momo-gateway/pkg/msisdn"
)

// CollectionsGateway is the part of *collections.Client the service drives.
type CollectionsGateway interface {
	RequestToPay(ctx context.Context, amount decimal.Decimal, currency collections.Currency, payer msisdn.Msisdn, callbackURL string) (uuid.UUID, error)
	GetRequestToPay(ctx context.Context, referenceID uuid.UUID) (*collections.Payment, error)
	GetBalance(ctx context.Context) (*collections.Balance, error)
}

type ReconcileRecorder interface {
	ObserveReconciliation(outcome string)
}

type PaymentService interface {
	RequestPayment(ctx context.Context, request *models.PaymentRequest) (*models.Payment, error)
	GetPayment(ctx context.Context, referenceID string) (*models.Payment, error)
	RefreshStatus(ctx context.Context, referenceID string) (*models.Payment, error)
	Balance(ctx context.Context) (*models.BalanceResponse, error)
	ApplyCallback(ctx context.Context, callback *models.Callback) (*models.Payment, error)
	ReconcilePending(ctx context.Context) (*models.ReconcileSummary, error)
}

// Countries selects how caller supplied mobile numbers are normalized.
type Countries struct {
	Default    msisdn.Country
	Alternates []msisdn.Country
}

type paymentService struct {
	// mu serializes gateway calls; the client re-authorizes in place.
	mu      sync.Mutex
	gateway CollectionsGateway

	repo      interfaces.PaymentRepository
	countries Countries
	logger    *logger.Logger
	recorder  ReconcileRecorder
}

func NewPaymentService(
	gateway CollectionsGateway,
	repo interfaces.PaymentRepository,
	countries Countries,
	log *logger.Logger,
	recorder ReconcileRecorder,
) PaymentService {
	if log == nil {
		log = logger.Discard()
	}

	return &paymentService{
		gateway:   gateway,
		repo:      repo,
		countries: countries,
		logger:    log.WithComponent("payment_service"),
		recorder:  recorder,
	}
}

func (s *paymentService) RequestPayment(ctx context.Context, request *models.PaymentRequest) (*models.Payment, error) {
	if errs := validators.ValidateStruct(request); len(errs) > 0 {
		return nil, errs
	}

	amount, err := validators.ParseAmount(request.Amount)
	if err != nil {
		return nil, err
	}

	currency, err := collections.ParseCurrency(request.Currency)
	if err != nil {
		return nil, err
	}

	payer, err := msisdn.Normalize(request.MobileNumber, s.countries.Default, s.countries.Alternates...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	referenceID, err := s.gateway.RequestToPay(ctx, amount, currency, payer, request.CallbackURL)
	s.mu.Unlock()
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("payer", payer.Mask()).Warn("request to pay failed")
		return nil, err
	}

	reference := referenceID.String()
	payment := &models.Payment{
		ReferenceID: reference,
		ExternalID:  reference,
		Amount:      amount,
		Currency:    currency,
		Msisdn:      payer.String(),
		Status:      collections.Pending,
		CallbackURL: request.CallbackURL,
	}

	if err := s.repo.Save(ctx, payment); err != nil {
		s.logger.WithContext(ctx).WithReferenceID(reference).WithError(err).Error("request to pay accepted but not recorded")
		return nil, fmt.Errorf("payment %s accepted but not recorded: %w", reference, err)
	}

	s.logger.WithContext(ctx).LogPaymentEvent(reference, "requested", amount.String(), currency.String())
	return payment, nil
}

func (s *paymentService) GetPayment(ctx context.Context, referenceID string) (*models.Payment, error) {
	return s.repo.Get(ctx, referenceID)
}

// RefreshStatus polls the gateway for a payment that is still pending.
// Settled payments are returned from the store as is.
func (s *paymentService) RefreshStatus(ctx context.Context, referenceID string) (*models.Payment, error) {
	payment, err := s.repo.Get(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if payment.Status.IsFinal() {
		return payment, nil
	}

	updated, _, err := s.refresh(ctx, payment)
	return updated, err
}

func (s *paymentService) refresh(ctx context.Context, payment *models.Payment) (*models.Payment, bool, error) {
	id, err := validators.ParseReferenceID(payment.ReferenceID)
	if err != nil {
		return nil, false, fmt.Errorf("payment %s: %w", payment.ReferenceID, err)
	}

	s.mu.Lock()
	remote, err := s.gateway.GetRequestToPay(ctx, id)
	s.mu.Unlock()
	if err != nil {
		return nil, false, err
	}

	updated, changed, err := s.repo.UpdateStatus(ctx, payment.ReferenceID, models.PaymentStatusUpdate{
		Status:                 remote.Status,
		Reason:                 remote.Reason,
		FinancialTransactionID: remote.FinancialTransactionID,
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		s.logger.WithContext(ctx).LogPaymentEvent(updated.ReferenceID, "status_"+updated.Status.String(), updated.Amount.String(), updated.Currency.String())
	}

	return updated, changed, nil
}

func (s *paymentService) Balance(ctx context.Context) (*models.BalanceResponse, error) {
	s.mu.Lock()
	balance, err := s.gateway.GetBalance(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	amount, err := balance.Amount()
	if err != nil {
		return nil, err
	}

	return &models.BalanceResponse{
		AvailableBalance: amount.String(),
		Currency:         balance.Currency,
	}, nil
}

// ApplyCallback treats a gateway callback as a hint that the payment has
// moved. The callback route is public, so the status is taken from the
// gateway, never from the callback body.
func (s *paymentService) ApplyCallback(ctx context.Context, callback *models.Callback) (*models.Payment, error) {
	if errs := validators.ValidateStruct(callback); len(errs) > 0 {
		return nil, errs
	}

	payment, err := s.repo.Get(ctx, callback.ExternalID)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithContext(ctx).WithReferenceID(payment.ReferenceID).WithFields(map[string]interface{}{
		"callback_status": callback.Status,
		"callback_reason": callback.ReasonText(),
	})
	if payment.Status.IsFinal() {
		log.Debug("callback for settled payment")
		return payment, nil
	}

	updated, changed, err := s.refresh(ctx, payment)
	if err != nil {
		log.WithError(err).Warn("failed to confirm callback with gateway")
		return nil, err
	}

	if claimed, perr := collections.ParsePaymentStatus(callback.Status); perr != nil || claimed != updated.Status {
		log.WithField("status", updated.Status.String()).Warn("callback status disagrees with gateway")
	} else if !changed {
		log.Debug("callback did not change payment")
	}

	return updated, nil
}

// ReconcilePending refreshes every pending payment. A failure on one payment
// is logged and counted; it does not stop the run.
func (s *paymentService) ReconcilePending(ctx context.Context) (*models.ReconcileSummary, error) {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	summary := &models.ReconcileSummary{}
	for _, payment := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.Checked++
		_, changed, err := s.refresh(ctx, payment)
		switch {
		case err != nil:
			summary.Failed++
			s.observe("failed")
			s.logger.WithContext(ctx).WithReferenceID(payment.ReferenceID).WithError(err).Warn("failed to reconcile payment")
		case changed:
			summary.Updated++
			s.observe("updated")
		default:
			s.observe("unchanged")
		}
	}

	if summary.Checked > 0 {
		s.logger.WithFields(map[string]interface{}{
			"checked": summary.Checked,
			"updated": summary.Updated,
			"failed":  summary.Failed,
		}).Info("reconciled pending payments")
	}

	return summary, nil
}

func (s *paymentService) observe(outcome string) {
	if s.recorder != nil {
		s.recorder.ObserveReconciliation(outcome)
	}
}

// IsNotFound reports whether err means the payment is unknown locally.
func IsNotFound(err error) bool {
	return errors.Is(err, interfaces.ErrNotFound)
}
