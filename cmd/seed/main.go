// seed carga el catálogo de artículos de laboratorio desde un CSV en PostgreSQL.
//
// Uso: go run ./cmd/seed [ruta/catalogo.csv] [charset]
// Por defecto lee cmd/seed/catalog.example.csv en UTF-8. Use charset ISO-8859-1 para
// exportaciones de planillas antiguas.
//
// El stock inicial se registra como transacción de entrada ("saldo inicial") para que el
// ledger quede conciliado con el catálogo desde el primer día.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jhoicas/labstock/internal/application/alerts"
	"github.com/jhoicas/labstock/internal/application/inventory"
	"github.com/jhoicas/labstock/internal/application/ports"
	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/infrastructure/catalog"
	"github.com/jhoicas/labstock/internal/infrastructure/lock"
	"github.com/jhoicas/labstock/internal/infrastructure/postgres"
	"github.com/jhoicas/labstock/pkg/config"
	"github.com/jhoicas/labstock/pkg/logger"
)

const openingComment = "saldo inicial"

func main() {
	path := "cmd/seed/catalog.example.csv"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	charset := ""
	if len(os.Args) > 2 {
		charset = os.Args[2]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, Service: "labstock-seed"})

	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("abrir catálogo")
	}
	defer f.Close()

	entries, err := catalog.Read(f, charset)
	if err != nil {
		log.Fatal().Err(err).Msg("leer catálogo")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("esquema")
	}

	items := postgres.NewItemRepository(pool)
	manager := alerts.NewManager(postgres.NewAlertRepository(pool), ports.NopPublisher{},
		alerts.Policy{AutoResolve: cfg.Stock.AutoResolveAlerts}, log.Component("alerts"))
	engine := inventory.NewApplyTransactionUseCase(
		postgres.NewTxRunner(pool), items, lock.NewKeyedMutex(), manager, nil,
		log.Component("stock"), inventory.Options{MaxAttempts: cfg.Stock.MaxAttempts},
	)

	var created, skipped int
	for _, e := range entries {
		item := e.Item
		if err := items.Create(ctx, &item); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				log.Warn().Str("item_id", item.ID).Msg("artículo existente, se omite")
				skipped++
				continue
			}
			log.Fatal().Err(err).Str("item_id", item.ID).Msg("alta de artículo")
		}
		created++

		if e.OpeningStock == 0 {
			// Sin transacción no hay reconciliación: un artículo que arranca en 0 con
			// mínimo positivo necesita su alerta desde el alta.
			outcome, err := manager.Reconcile(ctx, alerts.Evaluation{
				ItemID: item.ID, ItemName: item.Name, Unit: item.Unit, Stock: 0, MinLevel: item.MinLevel,
			})
			if err != nil {
				log.Warn().Err(err).Str("item_id", item.ID).Msg("alerta inicial")
				continue
			}
			manager.Publish(ctx, outcome.Events...)
			continue
		}
		comment := openingComment
		res, err := engine.Apply(ctx, inventory.ApplyInput{
			ItemID:   item.ID,
			Kind:     entity.TransactionInbound,
			Quantity: e.OpeningStock,
			Comment:  &comment,
		})
		if err != nil {
			log.Fatal().Err(err).Str("item_id", item.ID).Msg("saldo inicial")
		}
		if res.Warning != nil {
			log.Warn().Err(res.Warning).Str("item_id", item.ID).Msg("saldo inicial sin alertas actualizadas")
		}
	}

	log.Info().Int("created", created).Int("skipped", skipped).Str("path", path).Msg("catálogo cargado")
}
