// Package alerts mantiene el conjunto de alertas abiertas de stock bajo: crea al cruzar el
// mínimo, no duplica mientras siga bajo y cierra por acción del operador o por recuperación.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jhoicas/labstock/internal/application/ports"
	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
	"github.com/jhoicas/labstock/internal/domain/stock"
)

var tracer = otel.Tracer("github.com/jhoicas/labstock/internal/application/alerts")

// Policy define qué pasa con las alertas abiertas cuando el stock vuelve a superar el mínimo.
// Es un único valor para todo el proceso; ningún camino de código decide por su cuenta.
type Policy struct {
	// AutoResolve=false: la alerta queda abierta hasta que el operador la resuelva.
	// AutoResolve=true: Reconcile la resuelve al detectar stock > mínimo.
	AutoResolve bool
}

// Evaluation estado del artículo tras una transacción confirmada.
type Evaluation struct {
	ItemID   string
	ItemName string
	Unit     string
	Stock    int64
	MinLevel int64
}

// ReconcileOutcome describe los cambios que produjo Reconcile. Events son los eventos a
// publicar; Reconcile no los envía porque corre bajo el candado del artículo.
type ReconcileOutcome struct {
	Created  *entity.Alert
	Resolved []string
	Events   []ports.StockEvent
}

// Manager gestor de alertas de stock bajo.
type Manager struct {
	repo      repository.AlertRepository
	publisher ports.EventPublisher
	policy    Policy
	log       zerolog.Logger
	now       func() time.Time
}

// NewManager construye el gestor. publisher puede ser nil (no se publican eventos).
func NewManager(repo repository.AlertRepository, publisher ports.EventPublisher, policy Policy, log zerolog.Logger) *Manager {
	if publisher == nil {
		publisher = ports.NopPublisher{}
	}
	return &Manager{
		repo:      repo,
		publisher: publisher,
		policy:    policy,
		log:       log,
		now:       time.Now,
	}
}

// Reconcile compara el stock con el mínimo y ajusta el conjunto de alertas:
//   - stock <= mínimo sin alerta abierta → crea una.
//   - stock <= mínimo con alerta abierta → no hace nada.
//   - stock > mínimo → según Policy.AutoResolve.
func (m *Manager) Reconcile(ctx context.Context, ev Evaluation) (ReconcileOutcome, error) {
	ctx, span := tracer.Start(ctx, "alerts.reconcile")
	defer span.End()
	span.SetAttributes(
		attribute.String("item.id", ev.ItemID),
		attribute.Int64("stock.level", ev.Stock),
		attribute.Int64("stock.minimum", ev.MinLevel),
	)

	var out ReconcileOutcome
	if stock.IsLow(ev.Stock, ev.MinLevel) {
		open, err := m.repo.FindOpen(ctx, ev.ItemID)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return out, fmt.Errorf("buscar alerta abierta: %w", err)
		}
		if open != nil {
			return out, nil
		}
		alert := &entity.Alert{
			ID:        uuid.New().String(),
			ItemID:    ev.ItemID,
			Message:   stock.AlertMessage(ev.ItemName, ev.Unit, ev.Stock, ev.MinLevel),
			CreatedAt: m.now(),
		}
		created, err := m.repo.Insert(ctx, alert)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return out, fmt.Errorf("crear alerta: %w", err)
		}
		if !created {
			// Otro escritor abrió la alerta entre FindOpen e Insert.
			return out, nil
		}
		out.Created = alert
		span.SetAttributes(attribute.String("alert.id", alert.ID))
		out.Events = append(out.Events, m.event(ports.EventAlertCreated, ev.ItemID, alertPayload(alert)))
		return out, nil
	}

	if !m.policy.AutoResolve {
		return out, nil
	}
	ids, err := m.repo.ResolveOpenForItem(ctx, ev.ItemID, m.now())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return out, fmt.Errorf("resolver alertas por recuperación: %w", err)
	}
	out.Resolved = ids
	for _, id := range ids {
		out.Events = append(out.Events, m.event(ports.EventAlertResolved, ev.ItemID, map[string]any{"alert_id": id, "reason": "recovered"}))
	}
	return out, nil
}

// Resolve marca la alerta como resuelta por el operador. Es idempotente.
func (m *Manager) Resolve(ctx context.Context, alertID string) error {
	ctx, span := tracer.Start(ctx, "alerts.resolve")
	defer span.End()
	span.SetAttributes(attribute.String("alert.id", alertID))

	changed, err := m.repo.MarkResolved(ctx, alertID, m.now())
	if err != nil {
		return err
	}
	if changed {
		m.Publish(ctx, m.event(ports.EventAlertResolved, "", map[string]any{"alert_id": alertID, "reason": "operator"}))
	}
	return nil
}

// ListOpen devuelve las alertas abiertas, más recientes primero. Cada llamada es una consulta nueva.
func (m *Manager) ListOpen(ctx context.Context) ([]repository.OpenAlert, error) {
	return m.repo.ListOpen(ctx)
}

// Publish envía los eventos de mejor esfuerzo: un error solo se registra.
// Se llama fuera del candado del artículo.
func (m *Manager) Publish(ctx context.Context, events ...ports.StockEvent) {
	for _, ev := range events {
		if err := m.publisher.Publish(ctx, ev); err != nil {
			m.log.Warn().Err(err).Str("event", ev.Type).Str("item_id", ev.ItemID).Msg("no se pudo publicar evento de alerta")
		}
	}
}

func (m *Manager) event(eventType, itemID string, payload any) ports.StockEvent {
	return ports.StockEvent{Type: eventType, ItemID: itemID, OccurredAt: m.now(), Payload: payload}
}

func alertPayload(a *entity.Alert) map[string]any {
	return map[string]any{
		"alert_id":   a.ID,
		"message":    a.Message,
		"created_at": a.CreatedAt,
	}
}
