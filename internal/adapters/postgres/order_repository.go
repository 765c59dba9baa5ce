package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
	"github.com/kevin07696/cloudpayments-service/internal/domain/ports"
)

// OrderRepository implements ports.OrderRepository
type OrderRepository struct {
	db *DBExecutor
}

var _ ports.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *DBExecutor) *OrderRepository {
	return &OrderRepository{db: db}
}

const getOrderSQL = `
SELECT id, contact_id, amount, currency, description, status,
       paid_transaction_id, paid_at, created_at, updated_at
FROM orders
WHERE id = $1`

// GetByID retrieves an order by id
func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.get(ctx, getOrderSQL, orderID)
}

// GetByIDForUpdate retrieves an order and locks its row
func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.get(ctx, getOrderSQL+"\nFOR UPDATE", orderID)
}

func (r *OrderRepository) get(ctx context.Context, query, orderID string) (*domain.Order, error) {
	ctx, cancel := r.db.simpleQueryContext(ctx)
	defer cancel()

	var (
		contactID pgtype.Text
		amount    pgtype.Numeric
		status    string
		paidTxnID pgtype.Text
		paidAt    pgtype.Timestamptz
		order     domain.Order
	)
	err := r.db.conn(ctx).QueryRow(ctx, query, orderID).Scan(
		&order.ID, &contactID, &amount, &order.Currency, &order.Description, &status,
		&paidTxnID, &paidAt, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get order", err)
	}

	order.ContactID = textValue(contactID)
	order.Status = domain.OrderStatus(status)
	if order.Amount, err = pgNumericToDecimal(amount); err != nil {
		return nil, fmt.Errorf("order %s amount: %w", orderID, err)
	}
	if paidTxnID.Valid {
		order.PaidTransactionID = &paidTxnID.String
	}
	if paidAt.Valid {
		t := paidAt.Time
		order.PaidAt = &t
	}

	return &order, nil
}

const markOrderPaidSQL = `
UPDATE orders
SET status = 'paid', paid_transaction_id = $2, paid_at = $3, updated_at = $3
WHERE id = $1`

// MarkPaid records the payment of an order
func (r *OrderRepository) MarkPaid(ctx context.Context, orderID, nativeTransactionID string) error {
	ctx, cancel := r.db.simpleQueryContext(ctx)
	defer cancel()

	tag, err := r.db.conn(ctx).Exec(ctx, markOrderPaidSQL, orderID, nullText(nativeTransactionID), time.Now().UTC())
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "mark order paid", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// Create inserts an order; used by the admin CLI and tests
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	ctx, cancel := r.db.simpleQueryContext(ctx)
	defer cancel()

	amount, err := decimalToNumeric(order.Amount)
	if err != nil {
		return err
	}

	status := order.Status
	if status == "" {
		status = domain.OrderStatusNew
	}

	_, err = r.db.conn(ctx).Exec(ctx, `
INSERT INTO orders (id, contact_id, amount, currency, description, status)
VALUES ($1, $2, $3, $4, $5, $6)`,
		order.ID, nullText(order.ContactID), amount, order.Currency, order.Description, string(status),
	)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "create order", err)
	}
	return nil
}

// ContactRepository implements ports.ContactRepository
type ContactRepository struct {
	db *DBExecutor
}

var _ ports.ContactRepository = (*ContactRepository)(nil)

// NewContactRepository creates a new contact repository
func NewContactRepository(db *DBExecutor) *ContactRepository {
	return &ContactRepository{db: db}
}

// GetByID retrieves a contact by id
func (r *ContactRepository) GetByID(ctx context.Context, contactID string) (*domain.Contact, error) {
	ctx, cancel := r.db.simpleQueryContext(ctx)
	defer cancel()

	var c domain.Contact
	err := r.db.conn(ctx).QueryRow(ctx,
		`SELECT id, name, email FROM contacts WHERE id = $1`, contactID,
	).Scan(&c.ID, &c.Name, &c.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrContactNotFound
		}
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get contact", err)
	}
	return &c, nil
}

// Create inserts a contact; used by the admin CLI and tests
func (r *ContactRepository) Create(ctx context.Context, c *domain.Contact) error {
	ctx, cancel := r.db.simpleQueryContext(ctx)
	defer cancel()

	_, err := r.db.conn(ctx).Exec(ctx,
		`INSERT INTO contacts (id, name, email) VALUES ($1, $2, $3)`,
		c.ID, c.Name, c.Email,
	)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "create contact", err)
	}
	return nil
}
