package callback

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
	"github.com/kevin07696/cloudpayments-service/internal/domain/ports"
	"github.com/kevin07696/cloudpayments-service/pkg/observability"
)

// Handler is the capability set a gateway notification type provides
type Handler interface {
	// InitializeCallback authenticates the notification and identifies the order
	InitializeCallback(ctx context.Context, rc *RequestContext) error

	// FormalizeFields builds the stored record from the parsed fields
	FormalizeFields(ctx context.Context, rc *RequestContext) error

	// Persist stores the record
	Persist(ctx context.Context, rc *RequestContext) error
}

// Processor runs CloudPayments Pay notifications end to end
type Processor struct {
	verifier     *SignatureVerifier
	transactions ports.TransactionRepository
	dispatcher   ports.EventDispatcher
	deduper      ports.CallbackDeduper
	audit        ports.CallbackLogRepository
	logger       *zap.Logger
}

var _ Handler = (*Processor)(nil)

// NewProcessor creates a new processor. deduper and audit may be nil.
func NewProcessor(
	verifier *SignatureVerifier,
	transactions ports.TransactionRepository,
	dispatcher ports.EventDispatcher,
	deduper ports.CallbackDeduper,
	audit ports.CallbackLogRepository,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		verifier:     verifier,
		transactions: transactions,
		dispatcher:   dispatcher,
		deduper:      deduper,
		audit:        audit,
		logger:       logger,
	}
}

// Process runs one notification. A nil error means the gateway gets {"code":0}.
func (p *Processor) Process(ctx context.Context, rc *RequestContext) (err error) {
	start := time.Now()
	defer func() {
		p.finish(ctx, rc, err, time.Since(start))
	}()

	if err := p.InitializeCallback(ctx, rc); err != nil {
		return err
	}

	if p.alreadyProcessed(ctx, rc) {
		rc.Duplicate = true
		rc.advance(StateAcknowledged)
		return nil
	}

	if err := p.FormalizeFields(ctx, rc); err != nil {
		return err
	}
	if err := p.Persist(ctx, rc); err != nil {
		return err
	}
	if err := p.invokeBusinessCallback(ctx, rc); err != nil {
		return err
	}

	if p.deduper != nil && rc.Fields.HasTransactionID() {
		if err := p.deduper.Mark(ctx, rc.TransactionID()); err != nil {
			p.logger.Warn("Failed to mark transaction processed",
				zap.String("transaction_id", rc.TransactionID()),
				zap.Error(err),
			)
		}
	}

	rc.advance(StateAcknowledged)
	return nil
}

// InitializeCallback verifies the signature before anything else reads the body
func (p *Processor) InitializeCallback(_ context.Context, rc *RequestContext) error {
	if err := p.verifier.Verify(rc.Headers, rc.Body); err != nil {
		return err
	}
	rc.advance(StateSignatureVerified)

	fields, err := domain.ParseCallbackFields(rc.ContentType, rc.Body)
	if err != nil {
		return err
	}
	rc.Fields = fields

	invoice, err := domain.ParseInvoiceID(fields.InvoiceID)
	if err != nil {
		return err
	}
	rc.Invoice = invoice
	rc.advance(StateIdentifierParsed)
	return nil
}

// FormalizeFields builds rc.Record
func (p *Processor) FormalizeFields(_ context.Context, rc *RequestContext) error {
	if rc.Fields == nil {
		return domain.NewDomainError(domain.ErrorCodeCallbackPayload, "callback fields not parsed")
	}
	rc.Record = NormalizeTransaction(rc.Fields, rc.Invoice)
	rc.advance(StateNormalized)
	return nil
}

// Persist stores rc.Record. A redelivered transaction keeps its first record.
func (p *Processor) Persist(ctx context.Context, rc *RequestContext) error {
	stored, created, err := p.transactions.Save(ctx, rc.Record)
	if err != nil {
		return err
	}
	if !created {
		p.logger.Info("Transaction already stored, reusing record",
			zap.String("transaction_id", rc.Record.NativeID),
			zap.String("record_id", stored.ID.String()),
		)
	}
	rc.Record = stored
	rc.advance(StatePersisted)
	return nil
}

func (p *Processor) invokeBusinessCallback(ctx context.Context, rc *RequestContext) error {
	result, err := p.dispatcher.Dispatch(ctx, domain.EventPaymentReceived, rc.Record)
	if err != nil {
		return err
	}
	rc.advance(StateBusinessCallbackInvoked)
	if result != nil && result.Error != "" {
		return domain.NewBusinessValidationError(result.Error)
	}
	return nil
}

func (p *Processor) alreadyProcessed(ctx context.Context, rc *RequestContext) bool {
	// without a TransactionId there is nothing to tell deliveries apart
	if p.deduper == nil || !rc.Fields.HasTransactionID() {
		return false
	}
	seen, err := p.deduper.Seen(ctx, rc.TransactionID())
	if err != nil {
		p.logger.Warn("Deduper lookup failed, processing notification",
			zap.String("transaction_id", rc.TransactionID()),
			zap.Error(err),
		)
		return false
	}
	return seen
}

// finish audits the attempt and records metrics
func (p *Processor) finish(ctx context.Context, rc *RequestContext, err error, elapsed time.Duration) {
	outcome := Outcome(err)
	if err == nil && rc.Duplicate {
		outcome = "duplicate"
	}
	observability.RecordCallback(outcome, elapsed.Seconds())

	fields := []zap.Field{
		zap.String("client_ip", rc.ClientIP),
		zap.String("invoice_id", rc.InvoiceID()),
		zap.String("transaction_id", rc.TransactionID()),
		zap.String("state", rc.State.String()),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", elapsed),
	}
	switch {
	case err == nil:
		if outcome == "accepted" && rc.Record != nil {
			observability.RecordCallbackAmount(rc.Record.CurrencyID, domain.MinorUnits(rc.Record.Amount))
		}
		p.logger.Info("Callback acknowledged", fields...)
	case domain.IsCallbackRejection(err):
		p.logger.Warn("Callback rejected", append(fields, zap.Error(err))...)
	default:
		p.logger.Error("Callback failed", append(fields, zap.Error(err))...)
	}

	if p.audit == nil {
		return
	}
	attempt := &ports.CallbackAttempt{
		ClientIP:      rc.ClientIP,
		InvoiceID:     rc.InvoiceID(),
		TransactionID: rc.TransactionID(),
		Success:       err == nil,
	}
	if err != nil {
		attempt.ErrorCode = string(domain.GetErrorCode(err))
		attempt.ErrorMessage = errorMessage(err)
	}
	// the audit row is written even when the request context was cancelled
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if auditErr := p.audit.Record(auditCtx, attempt); auditErr != nil {
		p.logger.Error("Failed to audit callback attempt", zap.Error(auditErr))
	}
}

// Outcome labels a processing result for metrics
func Outcome(err error) string {
	if err == nil {
		return "accepted"
	}
	switch domain.GetErrorCode(err) {
	case domain.ErrorCodeConfiguration:
		return "config_error"
	case domain.ErrorCodeSignatureInvalid:
		return "signature_invalid"
	case domain.ErrorCodeInvoiceMalformed:
		return "invoice_malformed"
	case domain.ErrorCodeCallbackPayload:
		return "payload_invalid"
	case domain.ErrorCodeBusinessValidation:
		return "validation_failed"
	case domain.ErrorCodeTransport:
		return "dispatch_failed"
	default:
		return "error"
	}
}

func errorMessage(err error) string {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}
