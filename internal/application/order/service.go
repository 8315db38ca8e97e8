package order

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/pasar-rakyat/kantin/internal/domain/order"
	"github.com/pasar-rakyat/kantin/internal/observability"
	"github.com/pasar-rakyat/kantin/internal/observability/logctx"
)

const recorderService = "order-service"

type IDGenerator interface {
	NewID() string
}

// Service is the order recorder: a pure append over the order log. It never
// reads or mutates stock; the coordinator only calls Record after every line
// of the attempt reserved.
type Service struct {
	repo        domain.Repository
	idGenerator IDGenerator
	log         observability.Logger
}

func NewService(repo domain.Repository, idGen IDGenerator, tel observability.Telemetry) *Service {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Service{
		repo:        repo,
		idGenerator: idGen,
		log:         tel.Logger().With(observability.F("service", recorderService)),
	}
}

// Record persists exactly one order for a successful checkout attempt.
// Status derivation lives in the domain constructor: cash completes
// immediately, everything else starts pending.
func (s *Service) Record(ctx context.Context, cashier, paymentMethod string, lines []domain.Line) (*domain.Order, error) {
	entity, err := domain.New(s.idGenerator.NewID(), cashier, paymentMethod, lines)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, entity); err != nil {
		return nil, fmt.Errorf("order: insert: %w", err)
	}

	logctx.FromOr(ctx, s.log).Info("order_recorded",
		observability.F("order_id", entity.ID),
		observability.F("cashier", entity.Cashier),
		observability.F("payment_method", entity.PaymentMethod),
		observability.F("total_amount", entity.TotalAmount),
		observability.F("status", string(entity.Status)),
	)
	return entity, nil
}

// ConfirmPayment flips a pending order to completed. It is the externally
// triggered confirmation for non-cash payments; confirming an order that
// already completed is rejected so double confirmations surface.
func (s *Service) ConfirmPayment(ctx context.Context, orderID string) error {
	if orderID == "" {
		return errors.New("order: id is required")
	}
	entity, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if entity.Status == domain.StatusCompleted {
		return domain.ErrAlreadyCompleted
	}
	if err := s.repo.UpdateStatus(ctx, orderID, domain.StatusCompleted); err != nil {
		return fmt.Errorf("order: update status: %w", err)
	}

	logctx.FromOr(ctx, s.log).Info("payment_confirmed",
		observability.F("order_id", orderID),
	)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, errors.New("order: id is required")
	}
	return s.repo.FindByID(ctx, id)
}

// List returns the order log, newest first.
func (s *Service) List(ctx context.Context) ([]*domain.Order, error) {
	return s.repo.List(ctx)
}
