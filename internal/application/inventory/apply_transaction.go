package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jhoicas/labstock/internal/application/alerts"
	"github.com/jhoicas/labstock/internal/application/ports"
	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
	"github.com/jhoicas/labstock/internal/domain/stock"
)

// DefaultMaxAttempts intentos ante ErrConflict antes de devolverlo al llamador.
const DefaultMaxAttempts = 3

// Pasos posteriores al commit. No dependen de la cancelación de la petición: la transacción
// ya es visible y las alertas deben reflejarla.
const (
	reconcileTimeout = 2 * time.Second
	publishTimeout   = 5 * time.Second
)

// ErrAlertReconciliation advertencia adjunta a un resultado exitoso cuando la reconciliación
// de alertas falló. La transacción sigue confirmada.
var ErrAlertReconciliation = errors.New("la transacción se registró pero no se pudieron actualizar las alertas")

var tracer = otel.Tracer("github.com/jhoicas/labstock/internal/application/inventory")

// ApplyInput entrada para registrar un movimiento de stock.
type ApplyInput struct {
	ItemID   string
	Kind     entity.TransactionKind
	Quantity int64   // entero positivo; el signo lo da Kind
	Comment  *string // opcional
	Actor    *string // opcional
}

// TransactionResult resultado de una transacción confirmada.
type TransactionResult struct {
	Transaction    entity.Transaction
	Item           entity.Item // artículo con el stock posterior a la transacción
	AlertCreated   *entity.Alert
	AlertsResolved []string
	// Warning no nulo si la reconciliación de alertas falló (envuelve ErrAlertReconciliation).
	Warning error
}

// Options parámetros del motor.
type Options struct {
	MaxAttempts int
}

// ApplyTransactionUseCase motor de ajuste de stock: valida, aplica el delta con exclusión por
// artículo y escritura condicional, registra la transacción en el ledger en la misma unidad
// atómica y reconcilia las alertas antes de responder.
type ApplyTransactionUseCase struct {
	txRunner    TxRunner
	items       repository.ItemRepository
	locker      Locker
	alerts      AlertReconciler
	resolver    *BarcodeResolver
	publisher   ports.EventPublisher
	log         zerolog.Logger
	maxAttempts int
	now         func() time.Time
}

// NewApplyTransactionUseCase construye el motor. publisher puede ser nil.
func NewApplyTransactionUseCase(
	txRunner TxRunner,
	items repository.ItemRepository,
	locker Locker,
	reconciler AlertReconciler,
	publisher ports.EventPublisher,
	log zerolog.Logger,
	opts Options,
) *ApplyTransactionUseCase {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if publisher == nil {
		publisher = ports.NopPublisher{}
	}
	return &ApplyTransactionUseCase{
		txRunner:    txRunner,
		items:       items,
		locker:      locker,
		alerts:      reconciler,
		resolver:    NewBarcodeResolver(items),
		publisher:   publisher,
		log:         log,
		maxAttempts: opts.MaxAttempts,
		now:         time.Now,
	}
}

// Apply registra la transacción. Errores tipados:
//   - domain.ErrInvalidQuantity / domain.ErrInvalidInput: antes de cualquier escritura.
//   - domain.ErrItemNotFound: artículo inexistente o inactivo.
//   - domain.ErrInsufficientStock: la salida dejaría stock negativo; no se escribe nada.
//   - domain.ErrConflict: se agotaron los reintentos contra escritores concurrentes.
//   - domain.ErrStorageUnavailable: falla transitoria de infraestructura.
func (uc *ApplyTransactionUseCase) Apply(ctx context.Context, in ApplyInput) (*TransactionResult, error) {
	delta, err := stock.SignedDelta(in.Kind, in.Quantity)
	if err != nil {
		return nil, err
	}
	if in.ItemID == "" {
		return nil, domain.ErrInvalidInput
	}

	ctx, span := tracer.Start(ctx, "stock.apply_transaction")
	defer span.End()
	span.SetAttributes(
		attribute.String("item.id", in.ItemID),
		attribute.String("transaction.kind", string(in.Kind)),
		attribute.Int64("transaction.delta", delta),
	)

	var lastErr error
	for attempt := 1; attempt <= uc.maxAttempts; attempt++ {
		res, events, err := uc.applyOnce(ctx, in, delta)
		if err == nil {
			span.SetAttributes(attribute.Int("transaction.attempts", attempt))
			uc.publish(ctx, events)
			return res, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		lastErr = err
		uc.log.Debug().Str("item_id", in.ItemID).Int("attempt", attempt).Msg("conflicto de stock, reintentando con lectura nueva")
	}
	span.SetStatus(codes.Error, "conflicto persistente")
	uc.log.Warn().Str("item_id", in.ItemID).Int("attempts", uc.maxAttempts).Msg("conflicto de stock tras agotar reintentos")
	return nil, lastErr
}

// ApplyByBarcode resuelve el código y aplica la transacción sobre el artículo encontrado.
// Si el código no existe devuelve domain.ErrItemNotFound sin intentar la transacción.
func (uc *ApplyTransactionUseCase) ApplyByBarcode(ctx context.Context, code string, in ApplyInput) (*TransactionResult, error) {
	if _, err := stock.SignedDelta(in.Kind, in.Quantity); err != nil {
		return nil, err
	}
	item, err := uc.resolver.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	in.ItemID = item.ID
	return uc.Apply(ctx, in)
}

// applyOnce un intento completo desde una lectura nueva. La sección bajo el candado cubre
// lectura, escritura condicional, anexo al ledger y reconciliación de alertas. Los eventos se
// devuelven para publicarlos con el candado ya liberado.
func (uc *ApplyTransactionUseCase) applyOnce(ctx context.Context, in ApplyInput, delta int64) (*TransactionResult, []ports.StockEvent, error) {
	unlock, err := uc.locker.Lock(ctx, in.ItemID)
	if err != nil {
		return nil, nil, fmt.Errorf("bloquear artículo %s: %w", in.ItemID, err)
	}
	defer unlock()

	item, err := uc.items.GetByID(ctx, in.ItemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil || !item.Active {
		return nil, nil, domain.ErrItemNotFound
	}
	next, err := stock.NextLevel(item.Stock, delta)
	if err != nil {
		return nil, nil, err
	}

	record := entity.Transaction{
		ItemID:    item.ID,
		Kind:      in.Kind,
		Delta:     delta,
		Comment:   in.Comment,
		Actor:     in.Actor,
		CreatedAt: uc.now(),
	}
	err = uc.txRunner.Run(ctx, func(
		itemRepo repository.ItemRepository,
		ledgerRepo repository.TransactionRepository,
	) error {
		if err := itemRepo.UpdateStock(ctx, item.ID, next, item.Stock); err != nil {
			return err
		}
		return ledgerRepo.Append(ctx, &record)
	})
	if err != nil {
		return nil, nil, err
	}

	item.Stock = next
	result := &TransactionResult{Transaction: record, Item: *item}
	events := []ports.StockEvent{{
		Type:       ports.EventTransactionCommitted,
		ItemID:     item.ID,
		OccurredAt: record.CreatedAt,
		Payload: map[string]any{
			"transaction_id": record.ID,
			"kind":           record.Kind,
			"delta":          record.Delta,
			"stock":          next,
		},
	}}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reconcileTimeout)
	defer cancel()
	outcome, err := uc.alerts.Reconcile(rctx, alerts.Evaluation{
		ItemID:   item.ID,
		ItemName: item.Name,
		Unit:     item.Unit,
		Stock:    next,
		MinLevel: item.MinLevel,
	})
	if err != nil {
		uc.log.Error().Err(err).
			Str("item_id", item.ID).
			Int64("transaction_id", record.ID).
			Msg("reconciliación de alertas fallida tras transacción confirmada")
		result.Warning = fmt.Errorf("%w: %v", ErrAlertReconciliation, err)
	} else {
		result.AlertCreated = outcome.Created
		result.AlertsResolved = outcome.Resolved
		events = append(events, outcome.Events...)
	}

	uc.log.Info().
		Str("item_id", item.ID).
		Int64("transaction_id", record.ID).
		Int64("delta", delta).
		Int64("stock", next).
		Msg("transacción de stock registrada")
	return result, events, nil
}

// publish envía los eventos de mejor esfuerzo, sin candado tomado.
func (uc *ApplyTransactionUseCase) publish(ctx context.Context, events []ports.StockEvent) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	for _, ev := range events {
		if err := uc.publisher.Publish(pctx, ev); err != nil {
			uc.log.Warn().Err(err).Str("event", ev.Type).Str("item_id", ev.ItemID).Msg("no se pudo publicar evento de stock")
		}
	}
}
