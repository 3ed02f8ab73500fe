package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/labstock/internal/application/alerts"
	"github.com/jhoicas/labstock/internal/application/inventory"
	"github.com/jhoicas/labstock/internal/application/ports"
	"github.com/jhoicas/labstock/internal/domain/repository"
	"github.com/jhoicas/labstock/internal/infrastructure/catalog"
	"github.com/jhoicas/labstock/internal/infrastructure/events"
	"github.com/jhoicas/labstock/internal/infrastructure/lock"
	"github.com/jhoicas/labstock/internal/infrastructure/memory"
	"github.com/jhoicas/labstock/internal/infrastructure/postgres"
	"github.com/jhoicas/labstock/pkg/config"
	"github.com/jhoicas/labstock/pkg/logger"
)

// backend repositorios de un mismo almacenamiento.
type backend struct {
	items    repository.ItemRepository
	ledger   repository.TransactionRepository
	alerts   repository.AlertRepository
	summary  repository.SummaryRepository
	txRunner inventory.TxRunner
	ping     func(context.Context) error
	close    func()
	memStore *memory.Store // solo con APP_STORAGE=memory
}

func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (*backend, error) {
	if cfg.App.Storage == "memory" {
		store := memory.NewStore()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		return &backend{
			items:    store,
			ledger:   store,
			alerts:   store,
			summary:  store,
			txRunner: store,
			ping:     func(context.Context) error { return nil },
			close:    func() {},
			memStore: store,
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("esquema verificado")
	}
	return &backend{
		items:    postgres.NewItemRepository(pool),
		ledger:   postgres.NewTransactionRepository(pool),
		alerts:   postgres.NewAlertRepository(pool),
		summary:  postgres.NewSummaryRepository(pool),
		txRunner: postgres.NewTxRunner(pool),
		ping:     pool.Ping,
		close:    pool.Close,
	}, nil
}

// seedMemory carga el catálogo CSV en el store en memoria. AddItem anota el saldo inicial en el
// ledger; luego cada artículo pasa por la reconciliación para abrir las alertas de stock bajo,
// igual que en cmd/seed.
func seedMemory(ctx context.Context, store *memory.Store, manager *alerts.Manager, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("abrir catálogo: %w", err)
	}
	defer f.Close()
	entries, err := catalog.Read(f, "")
	if err != nil {
		return 0, fmt.Errorf("leer catálogo: %w", err)
	}
	for _, e := range entries {
		item := e.Item
		item.Stock = e.OpeningStock
		if err := store.AddItem(item); err != nil {
			return 0, fmt.Errorf("alta de %s: %w", item.ID, err)
		}
		outcome, err := manager.Reconcile(ctx, alerts.Evaluation{
			ItemID:   item.ID,
			ItemName: item.Name,
			Unit:     item.Unit,
			Stock:    item.Stock,
			MinLevel: item.MinLevel,
		})
		if err != nil {
			return 0, fmt.Errorf("alertas de %s: %w", item.ID, err)
		}
		manager.Publish(ctx, outcome.Events...)
	}
	return len(entries), nil
}

// newLocker exclusión por artículo. Con varias instancias de la API se necesita Redis;
// en una sola instancia basta el mutex en proceso (la escritura condicional cubre el resto).
func newLocker(ctx context.Context, cfg *config.Config) (inventory.Locker, func(), error) {
	if cfg.Lock.Backend != "redis" {
		return lock.NewKeyedMutex(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("conexión a Redis: %w", err)
	}
	return lock.NewRedisLocker(client, cfg.Lock.TTL), func() { _ = client.Close() }, nil
}

func newPublisher(cfg *config.Config) (ports.EventPublisher, func()) {
	if len(cfg.Kafka.Brokers) == 0 {
		return ports.NopPublisher{}, func() {}
	}
	pub := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
	return pub, func() { _ = pub.Close() }
}
