package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
	"github.com/kevin07696/cloudpayments-service/internal/domain/ports"
)

// TransactionRepository implements ports.TransactionRepository
type TransactionRepository struct {
	db *DBExecutor
}

var _ ports.TransactionRepository = (*TransactionRepository)(nil)

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DBExecutor) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const insertTransactionSQL = `
INSERT INTO cloudpayments_transactions
    (id, plugin, app_id, merchant_id, order_id, type, native_id,
     amount, currency_id, result, view_data, raw_data, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (plugin, native_id) WHERE native_id <> '0' DO NOTHING
RETURNING id`

// Save inserts the record unless one with the same plugin and native id exists.
// Records without a gateway transaction id are always inserted.
func (r *TransactionRepository) Save(ctx context.Context, record *domain.TransactionRecord) (*domain.TransactionRecord, bool, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.Plugin == "" {
		record.Plugin = domain.PluginID
	}

	amount, err := decimalToNumeric(record.Amount)
	if err != nil {
		return nil, false, err
	}

	rawData := []byte("{}")
	if record.RawData != nil {
		if rawData, err = json.Marshal(record.RawData); err != nil {
			return nil, false, fmt.Errorf("marshal raw data: %w", err)
		}
	}

	qctx, cancel := r.db.simpleQueryContext(ctx)
	defer cancel()

	var id uuid.UUID
	err = r.db.conn(qctx).QueryRow(qctx, insertTransactionSQL,
		record.ID, record.Plugin, record.AppID, record.MerchantID, record.OrderID,
		string(record.Type), record.NativeID, amount, record.CurrencyID,
		int16(record.Result), record.ViewData, rawData, record.CreatedAt,
	).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := r.GetByNativeID(ctx, record.NativeID)
		if getErr != nil {
			return nil, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, domain.WrapError(domain.ErrorCodeDatabaseError, "save transaction", err)
	}

	return record, true, nil
}

const getTransactionByNativeIDSQL = `
SELECT id, plugin, app_id, merchant_id, order_id, type, native_id,
       amount, currency_id, result, view_data, raw_data, created_at
FROM cloudpayments_transactions
WHERE plugin = $1 AND native_id = $2`

// GetByNativeID retrieves a record by the gateway transaction id
func (r *TransactionRepository) GetByNativeID(ctx context.Context, nativeID string) (*domain.TransactionRecord, error) {
	ctx, cancel := r.db.simpleQueryContext(ctx)
	defer cancel()

	var (
		rec     domain.TransactionRecord
		txType  string
		amount  pgtype.Numeric
		result  int16
		rawData []byte
	)
	err := r.db.conn(ctx).QueryRow(ctx, getTransactionByNativeIDSQL, domain.PluginID, nativeID).Scan(
		&rec.ID, &rec.Plugin, &rec.AppID, &rec.MerchantID, &rec.OrderID, &txType, &rec.NativeID,
		&amount, &rec.CurrencyID, &result, &rec.ViewData, &rawData, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewDomainError(domain.ErrorCodeDatabaseError, "transaction not found").
				WithDetail("native_id", nativeID)
		}
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get transaction", err)
	}

	rec.Type = domain.TransactionType(txType)
	rec.Result = domain.TransactionResult(result)
	if rec.Amount, err = pgNumericToDecimal(amount); err != nil {
		return nil, fmt.Errorf("transaction %s amount: %w", nativeID, err)
	}
	if len(rawData) > 0 {
		if err := json.Unmarshal(rawData, &rec.RawData); err != nil {
			return nil, fmt.Errorf("unmarshal raw data: %w", err)
		}
	}

	return &rec, nil
}

// CallbackLogRepository implements ports.CallbackLogRepository
type CallbackLogRepository struct {
	db *DBExecutor
}

var _ ports.CallbackLogRepository = (*CallbackLogRepository)(nil)

// NewCallbackLogRepository creates a new callback audit repository
func NewCallbackLogRepository(db *DBExecutor) *CallbackLogRepository {
	return &CallbackLogRepository{db: db}
}

// Record inserts one audit row
func (r *CallbackLogRepository) Record(ctx context.Context, a *ports.CallbackAttempt) error {
	ctx, cancel := r.db.simpleQueryContext(ctx)
	defer cancel()

	_, err := r.db.conn(ctx).Exec(ctx, `
INSERT INTO callback_log
    (id, client_ip, invoice_id, transaction_id, success, error_code, error_message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New(), a.ClientIP, a.InvoiceID, a.TransactionID, a.Success,
		nullText(a.ErrorCode), nullText(a.ErrorMessage), time.Now().UTC(),
	)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "record callback attempt", err)
	}
	return nil
}
