package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
	"github.com/kevin07696/cloudpayments-service/internal/domain/ports"
)

// Rejection reasons reported back to the callback orchestrator
const (
	ReasonOrderNotFound    = "order not found"
	ReasonCurrencyMismatch = "currency mismatch"
	ReasonUnsupportedEvent = "unsupported event"
	ReasonAlreadyPaid      = "order already paid by another transaction"
)

// LocalDispatcher handles payment events against the orders table directly.
// It is used when the host application shares the database.
type LocalDispatcher struct {
	tx     ports.TransactionManager
	orders ports.OrderRepository
	logger *zap.Logger
}

var _ ports.EventDispatcher = (*LocalDispatcher)(nil)

// NewLocalDispatcher creates a new local dispatcher
func NewLocalDispatcher(tx ports.TransactionManager, orders ports.OrderRepository, logger *zap.Logger) *LocalDispatcher {
	return &LocalDispatcher{
		tx:     tx,
		orders: orders,
		logger: logger,
	}
}

// Dispatch marks the order paid. The order row is locked for the lookup and
// the update, so concurrent payments for one order are handled one at a time.
func (d *LocalDispatcher) Dispatch(ctx context.Context, event domain.EventType, record *domain.TransactionRecord) (*ports.DispatchResult, error) {
	if event != domain.EventPaymentReceived {
		return &ports.DispatchResult{Error: ReasonUnsupportedEvent}, nil
	}

	var result *ports.DispatchResult
	err := d.tx.WithTransaction(ctx, func(ctx context.Context, _ pgx.Tx) error {
		var err error
		result, err = d.markPaid(ctx, record)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}
	return result, nil
}

func (d *LocalDispatcher) markPaid(ctx context.Context, record *domain.TransactionRecord) (*ports.DispatchResult, error) {
	order, err := d.orders.GetByIDForUpdate(ctx, record.OrderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		d.logger.Warn("Payment for unknown order",
			zap.String("order_id", record.OrderID),
			zap.String("transaction_id", record.NativeID),
		)
		return &ports.DispatchResult{Error: ReasonOrderNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(order.Currency, record.CurrencyID) {
		d.logger.Warn("Payment currency does not match order",
			zap.String("order_id", order.ID),
			zap.String("order_currency", order.Currency),
			zap.String("payment_currency", record.CurrencyID),
		)
		return &ports.DispatchResult{Error: ReasonCurrencyMismatch}, nil
	}

	if order.Status == domain.OrderStatusPaid {
		if order.PaidTransactionID != nil && *order.PaidTransactionID == record.NativeID {
			return &ports.DispatchResult{}, nil
		}
		// the first payment stays linked; the second one needs a refund
		paidBy := ""
		if order.PaidTransactionID != nil {
			paidBy = *order.PaidTransactionID
		}
		d.logger.Error("Order already paid by another transaction",
			zap.String("order_id", order.ID),
			zap.String("paid_transaction_id", paidBy),
			zap.String("transaction_id", record.NativeID),
		)
		return &ports.DispatchResult{Error: ReasonAlreadyPaid}, nil
	}

	if err := d.orders.MarkPaid(ctx, order.ID, record.NativeID); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return &ports.DispatchResult{Error: ReasonOrderNotFound}, nil
		}
		return nil, err
	}

	d.logger.Info("Order marked paid",
		zap.String("order_id", order.ID),
		zap.String("transaction_id", record.NativeID),
		zap.String("amount", record.Amount.String()),
	)
	return &ports.DispatchResult{}, nil
}
