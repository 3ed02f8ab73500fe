package inventory

import (
	"context"

	"github.com/jhoicas/labstock/internal/application/alerts"
	"github.com/jhoicas/labstock/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de almacenamiento, pasando repositorios
// atados a esa transacción. La escritura del stock y el registro en el ledger se confirman juntos
// o no se confirman.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		itemRepo repository.ItemRepository,
		ledgerRepo repository.TransactionRepository,
	) error) error
}

// Locker exclusión mutua por clave (id de artículo). Artículos distintos nunca compiten.
// unlock debe llamarse exactamente una vez.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// AlertReconciler paso de reconciliación de alertas invocado tras cada transacción confirmada.
// Lo implementa *alerts.Manager.
type AlertReconciler interface {
	Reconcile(ctx context.Context, ev alerts.Evaluation) (alerts.ReconcileOutcome, error)
}
