package inventory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/labstock/internal/application/alerts"
	"github.com/jhoicas/labstock/internal/application/inventory"
	"github.com/jhoicas/labstock/internal/application/ports"
	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
	"github.com/jhoicas/labstock/internal/infrastructure/lock"
	"github.com/jhoicas/labstock/internal/infrastructure/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.StockEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev ports.StockEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store   *memory.Store
	manager *alerts.Manager
	engine  *inventory.ApplyTransactionUseCase
	ledger  *inventory.LedgerUseCase
	events  *recordingPublisher
}

func newFixture(t *testing.T, policy alerts.Policy, runner inventory.TxRunner) *fixture {
	t.Helper()
	store := memory.NewStore()
	if runner == nil {
		runner = store
	}
	events := &recordingPublisher{}
	manager := alerts.NewManager(store, events, policy, zerolog.Nop())
	engine := inventory.NewApplyTransactionUseCase(runner, store, lock.NewKeyedMutex(), manager, events,
		zerolog.Nop(), inventory.Options{})
	return &fixture{
		store:   store,
		manager: manager,
		engine:  engine,
		ledger:  inventory.NewLedgerUseCase(store, store),
		events:  events,
	}
}

func (f *fixture) addItem(t *testing.T, id, code string, stock, min int64) {
	t.Helper()
	var barcode *string
	if code != "" {
		barcode = &code
	}
	require.NoError(t, f.store.AddItem(entity.Item{
		ID: id, Name: "Reactivo " + id, Unit: "ml", Stock: stock, MinLevel: min,
		Barcode: barcode, Active: true, Price: decimal.NewFromInt(1),
	}))
}

func (f *fixture) openAlerts(t *testing.T) []repository.OpenAlert {
	t.Helper()
	open, err := f.manager.ListOpen(context.Background())
	require.NoError(t, err)
	return open
}

func (f *fixture) assertConserved(t *testing.T, itemID string) {
	t.Helper()
	c, err := f.ledger.Conservation(context.Background(), itemID)
	require.NoError(t, err)
	assert.True(t, c.Consistent(), "stock %d != ledger %d", c.Stock, c.LedgerSum)
}

func out(id string, qty int64) inventory.ApplyInput {
	return inventory.ApplyInput{ItemID: id, Kind: entity.TransactionOutbound, Quantity: qty}
}

func in(id string, qty int64) inventory.ApplyInput {
	return inventory.ApplyInput{ItemID: id, Kind: entity.TransactionInbound, Quantity: qty}
}

func TestApply_CrossingMinimumCreatesSingleAlert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, alerts.Policy{}, nil)
	f.addItem(t, "A", "LAB-00001", 10, 5)

	res, err := f.engine.Apply(ctx, out("A", 6))
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Item.Stock)
	assert.Equal(t, int64(-6), res.Transaction.Delta)
	assert.NotZero(t, res.Transaction.ID)
	require.NotNil(t, res.AlertCreated)
	assert.Contains(t, res.AlertCreated.Message, "mínimo 5")

	res, err = f.engine.Apply(ctx, out("A", 1))
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Item.Stock)
	assert.Nil(t, res.AlertCreated)

	open := f.openAlerts(t)
	require.Len(t, open, 1)
	assert.Equal(t, "A", open[0].Alert.ItemID)
	assert.Equal(t, int64(3), open[0].Stock)
	f.assertConserved(t, "A")
}

func TestApply_StockAtMinimumCountsAsLow(t *testing.T) {
	f := newFixture(t, alerts.Policy{}, nil)
	f.addItem(t, "A", "", 6, 5)

	res, err := f.engine.Apply(context.Background(), out("A", 1))
	require.NoError(t, err)
	assert.NotNil(t, res.AlertCreated)
}

func TestApply_InsufficientStockWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, alerts.Policy{}, nil)
	f.addItem(t, "A", "", 0, 0)

	_, err := f.engine.Apply(ctx, out("A", 1))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	it, err := f.store.GetByID(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(0), it.Stock)
	entries, err := f.ledger.RecentFor(ctx, "A", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, f.events.types())
}

func TestApply_ValidatesBeforeWriting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, alerts.Policy{}, nil)
	f.addItem(t, "A", "", 5, 0)

	cases := []struct {
		name string
		in   inventory.ApplyInput
		want error
	}{
		{"cantidad cero", out("A", 0), domain.ErrInvalidQuantity},
		{"cantidad negativa", in("A", -3), domain.ErrInvalidQuantity},
		{"tipo desconocido", inventory.ApplyInput{ItemID: "A", Kind: "transfer", Quantity: 1}, domain.ErrInvalidInput},
		{"sin artículo", in("", 1), domain.ErrInvalidInput},
		{"artículo inexistente", in("Z", 1), domain.ErrItemNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Apply(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	it, _ := f.store.GetByID(ctx, "A")
	assert.Equal(t, int64(5), it.Stock)
	f.assertConserved(t, "A")
}

func TestApply_InactiveItemIsNotFound(t *testing.T) {
	f := newFixture(t, alerts.Policy{}, nil)
	f.addItem(t, "A", "", 5, 0)
	require.NoError(t, f.store.SetActive("A", false))

	_, err := f.engine.Apply(context.Background(), in("A", 1))
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestApply_ResolvedAlertDoesNotSuppressNewOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, alerts.Policy{}, nil)
	f.addItem(t, "X", "", 10, 5)

	res, err := f.engine.Apply(ctx, out("X", 6))
	require.NoError(t, err)
	require.NotNil(t, res.AlertCreated)
	require.NoError(t, f.manager.Resolve(ctx, res.AlertCreated.ID))
	assert.Empty(t, f.openAlerts(t))

	firstID := res.AlertCreated.ID
	res, err = f.engine.Apply(ctx, out("X", 1))
	require.NoError(t, err)
	require.NotNil(t, res.AlertCreated)
	assert.NotEqual(t, firstID, res.AlertCreated.ID)
	open := f.openAlerts(t)
	require.Len(t, open, 1)
	assert.Equal(t, res.AlertCreated.ID, open[0].Alert.ID)
}

func TestApply_RecoveryWithoutAutoResolveKeepsAlertOpen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, alerts.Policy{AutoResolve: false}, nil)
	f.addItem(t, "A", "", 3, 5)

	_, err := f.engine.Apply(ctx, out("A", 1))
	require.NoError(t, err)
	require.Len(t, f.openAlerts(t), 1)

	res, err := f.engine.Apply(ctx, in("A", 20))
	require.NoError(t, err)
	assert.Empty(t, res.AlertsResolved)
	assert.Len(t, f.openAlerts(t), 1)
}

func TestApply_RecoveryWithAutoResolveClosesAlert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, alerts.Policy{AutoResolve: true}, nil)
	f.addItem(t, "A", "", 3, 5)

	first, err := f.engine.Apply(ctx, out("A", 1))
	require.NoError(t, err)
	require.NotNil(t, first.AlertCreated)

	res, err := f.engine.Apply(ctx, in("A", 20))
	require.NoError(t, err)
	assert.Equal(t, []string{first.AlertCreated.ID}, res.AlertsResolved)
	assert.Empty(t, f.openAlerts(t))
	assert.Contains(t, f.events.types(), ports.EventAlertResolved)
}

func TestApply_PublishesCommittedEvent(t *testing.T) {
	f := newFixture(t, alerts.Policy{}, nil)
	f.addItem(t, "A", "", 10, 5)

	_, err := f.engine.Apply(context.Background(), out("A", 6))
	require.NoError(t, err)
	assert.Equal(t, []string{ports.EventTransactionCommitted, ports.EventAlertCreated}, f.events.types())
}

func TestApply_ConcurrentOutboundNeverOversells(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, alerts.Policy{}, nil)
	const initial = 20
	f.addItem(t, "A", "", initial, 2)

	var ok, insufficient int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Apply(ctx, out("A", 1))
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, domain.ErrInsufficientStock):
				atomic.AddInt32(&insufficient, 1)
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(initial), ok)
	assert.Equal(t, int32(50-initial), insufficient)
	it, _ := f.store.GetByID(ctx, "A")
	assert.Equal(t, int64(0), it.Stock)
	f.assertConserved(t, "A")
	assert.Len(t, f.openAlerts(t), 1)
}

func TestApply_ConcurrentMixedKeepsConservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, alerts.Policy{AutoResolve: true}, nil)
	f.addItem(t, "A", "", 10, 5)
	f.addItem(t, "B", "", 10, 5)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "A"
			if i%2 == 1 {
				id = "B"
			}
			req := in(id, 2)
			if i%3 == 0 {
				req = out(id, 3)
			}
			_, err := f.engine.Apply(ctx, req)
			if err != nil && !errors.Is(err, domain.ErrInsufficientStock) {
				t.Errorf("error inesperado: %v", err)
			}
		}(i)
	}
	wg.Wait()

	f.assertConserved(t, "A")
	f.assertConserved(t, "B")
	for _, a := range f.openAlerts(t) {
		it, _ := f.store.GetByID(ctx, a.Alert.ItemID)
		assert.LessOrEqual(t, it.Stock, it.MinLevel, "alerta abierta con stock recuperado")
	}
}

// conflictingRunner simula escritores externos: los primeros n intentos fallan con conflicto.
type conflictingRunner struct {
	inner     inventory.TxRunner
	conflicts int32
	calls     int32
}

func (r *conflictingRunner) Run(ctx context.Context, fn func(repository.ItemRepository, repository.TransactionRepository) error) error {
	if atomic.AddInt32(&r.calls, 1) <= r.conflicts {
		return domain.ErrConflict
	}
	return r.inner.Run(ctx, fn)
}

func TestApply_RetriesConflictsWithFreshRead(t *testing.T) {
	runner := &conflictingRunner{conflicts: 2}
	f := newFixture(t, alerts.Policy{}, runner)
	runner.inner = f.store
	f.addItem(t, "A", "", 10, 0)

	res, err := f.engine.Apply(context.Background(), out("A", 4))
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.Item.Stock)
	assert.Equal(t, int32(3), runner.calls)
	f.assertConserved(t, "A")
}

func TestApply_PersistentConflictSurfacesAfterThreeAttempts(t *testing.T) {
	runner := &conflictingRunner{conflicts: 100}
	f := newFixture(t, alerts.Policy{}, runner)
	runner.inner = f.store
	f.addItem(t, "A", "", 10, 0)

	_, err := f.engine.Apply(context.Background(), out("A", 4))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, int32(inventory.DefaultMaxAttempts), runner.calls)

	it, _ := f.store.GetByID(context.Background(), "A")
	assert.Equal(t, int64(10), it.Stock)
}

type failingReconciler struct{}

func (failingReconciler) Reconcile(context.Context, alerts.Evaluation) (alerts.ReconcileOutcome, error) {
	return alerts.ReconcileOutcome{}, domain.ErrStorageUnavailable
}

func TestApply_ReconciliationFailureKeepsTransaction(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.AddItem(entity.Item{ID: "A", Name: "Etanol", Stock: 10, MinLevel: 5, Active: true}))
	engine := inventory.NewApplyTransactionUseCase(store, store, lock.NewKeyedMutex(), failingReconciler{}, nil,
		zerolog.Nop(), inventory.Options{})

	res, err := engine.Apply(ctx, out("A", 6))
	require.NoError(t, err)
	require.Error(t, res.Warning)
	assert.ErrorIs(t, res.Warning, inventory.ErrAlertReconciliation)
	assert.Equal(t, int64(4), res.Item.Stock)

	sum, err := store.SumDeltas(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(4), sum)
}

func TestApplyByBarcode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, alerts.Policy{}, nil)
	f.addItem(t, "A", "LAB-00001", 10, 0)

	res, err := f.engine.ApplyByBarcode(ctx, "  LAB-00001 ", out("", 2))
	require.NoError(t, err)
	assert.Equal(t, "A", res.Transaction.ItemID)
	assert.Equal(t, int64(8), res.Item.Stock)

	_, err = f.engine.ApplyByBarcode(ctx, "LAB-99999", out("", 1))
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = f.engine.ApplyByBarcode(ctx, "", out("", 1))
	assert.ErrorIs(t, err, domain.ErrInvalidBarcode)

	_, err = f.engine.ApplyByBarcode(ctx, "LAB-00001", out("", 0))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	all, err := f.ledger.RecentAll(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2, "saldo inicial y una salida")
}

func TestApply_ContextCanceledDoesNotWrite(t *testing.T) {
	f := newFixture(t, alerts.Policy{}, nil)
	f.addItem(t, "A", "", 10, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.engine.Apply(ctx, out("A", 1))
	require.Error(t, err)

	it, _ := f.store.GetByID(context.Background(), "A")
	assert.Equal(t, int64(10), it.Stock)
}

// blockingPublisher retiene la primera publicación hasta que se cierre release.
type blockingPublisher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *blockingPublisher) Publish(context.Context, ports.StockEvent) error {
	first := false
	p.once.Do(func() { first = true })
	if first {
		close(p.entered)
		<-p.release
	}
	return nil
}

func TestApply_SlowPublisherDoesNotHoldItemLock(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.AddItem(entity.Item{ID: "A", Name: "Etanol", Stock: 10, MinLevel: 0, Active: true}))
	pub := &blockingPublisher{entered: make(chan struct{}), release: make(chan struct{})}
	manager := alerts.NewManager(store, pub, alerts.Policy{}, zerolog.Nop())
	engine := inventory.NewApplyTransactionUseCase(store, store, lock.NewKeyedMutex(), manager, pub,
		zerolog.Nop(), inventory.Options{})

	done := make(chan error, 1)
	go func() {
		_, err := engine.Apply(context.Background(), out("A", 1))
		done <- err
	}()
	<-pub.entered

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	res, err := engine.Apply(ctx, out("A", 1))
	require.NoError(t, err, "el candado debe liberarse antes de publicar")
	assert.Equal(t, int64(8), res.Item.Stock)

	close(pub.release)
	require.NoError(t, <-done)
}

// cancelAfterCommit cancela el contexto de la petición justo después de confirmar.
type cancelAfterCommit struct {
	inner  inventory.TxRunner
	cancel context.CancelFunc
}

func (r cancelAfterCommit) Run(ctx context.Context, fn func(repository.ItemRepository, repository.TransactionRepository) error) error {
	err := r.inner.Run(ctx, fn)
	r.cancel()
	return err
}

func TestApply_ReconcilesEvenIfRequestCanceledAfterCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := memory.NewStore()
	require.NoError(t, store.AddItem(entity.Item{ID: "A", Name: "Etanol", Stock: 10, MinLevel: 5, Active: true}))
	manager := alerts.NewManager(store, nil, alerts.Policy{}, zerolog.Nop())
	engine := inventory.NewApplyTransactionUseCase(cancelAfterCommit{inner: store, cancel: cancel}, store,
		lock.NewKeyedMutex(), manager, nil, zerolog.Nop(), inventory.Options{})

	res, err := engine.Apply(ctx, out("A", 6))
	require.NoError(t, err)
	assert.NoError(t, res.Warning)
	require.NotNil(t, res.AlertCreated)

	open, err := manager.ListOpen(context.Background())
	require.NoError(t, err)
	assert.Len(t, open, 1)
}
