// Package memory implementa los puertos de catálogo, ledger y alertas en memoria.
// Se usa en pruebas y con APP_STORAGE=memory para ejecuciones locales de una sola instancia.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/labstock/internal/application/inventory"
	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
)

var (
	_ repository.ItemRepository        = (*Store)(nil)
	_ repository.TransactionRepository = (*Store)(nil)
	_ repository.AlertRepository       = (*Store)(nil)
	_ repository.SummaryRepository     = (*Store)(nil)
	_ inventory.TxRunner               = (*Store)(nil)
)

// OpeningBalanceComment comentario de la transacción de saldo inicial creada por AddItem.
const OpeningBalanceComment = "saldo inicial"

// Store almacenamiento en memoria protegido por un único mutex. Los valores se copian al
// entrar y al salir para que nadie fuera del store comparta punteros internos.
type Store struct {
	mu       sync.Mutex
	items    map[string]*entity.Item
	txs      []entity.Transaction
	nextTxID int64
	alerts   map[string]*entity.Alert
	now      func() time.Time
}

// NewStore construye un store vacío.
func NewStore() *Store {
	return &Store{
		items:  make(map[string]*entity.Item),
		alerts: make(map[string]*entity.Alert),
		now:    time.Now,
	}
}

// AddItem da de alta un artículo (la creación pertenece al catálogo, no al motor).
// Si trae stock inicial se registra como transacción de entrada para que stock == Σ deltas.
func (s *Store) AddItem(item entity.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" || item.Stock < 0 || item.MinLevel < 0 {
		return domain.ErrInvalidInput
	}
	if _, ok := s.items[item.ID]; ok {
		return domain.ErrDuplicate
	}
	if item.Barcode != nil {
		for _, it := range s.items {
			if it.Barcode != nil && *it.Barcode == *item.Barcode {
				return domain.ErrDuplicate
			}
		}
	}
	now := s.now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	s.items[item.ID] = copyItem(&item)

	if item.Stock > 0 {
		comment := OpeningBalanceComment
		s.nextTxID++
		s.txs = append(s.txs, entity.Transaction{
			ID:        s.nextTxID,
			ItemID:    item.ID,
			Kind:      entity.TransactionInbound,
			Delta:     item.Stock,
			Comment:   &comment,
			CreatedAt: now,
		})
	}
	return nil
}

// SetActive activa o desactiva un artículo (operación del catálogo).
func (s *Store) SetActive(id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return domain.ErrItemNotFound
	}
	it.Active = active
	it.UpdatedAt = s.now()
	return nil
}

// ── Catálogo ────────────────────────────────────────────────────────────────

// GetByID obtiene el artículo; nil, nil si no existe.
func (s *Store) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getItemLocked(id), nil
}

// GetActiveByBarcode busca por código exacto entre artículos activos.
func (s *Store) GetActiveByBarcode(ctx context.Context, barcode string) (*entity.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findByBarcodeLocked(barcode), nil
}

// UpdateStock escritura condicional del stock (compare-and-swap).
func (s *Store) UpdateStock(ctx context.Context, id string, newQty, expectedPrior int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateStockLocked(id, newQty, expectedPrior)
}

// ── Ledger ──────────────────────────────────────────────────────────────────

// Append anexa la transacción asignando ID monótono.
func (s *Store) Append(ctx context.Context, tx *entity.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(tx)
	return nil
}

// RecentFor últimas transacciones de un artículo.
func (s *Store) RecentFor(ctx context.Context, itemID string, limit int) ([]repository.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recentLocked(itemID, limit), nil
}

// RecentAll últimas transacciones de todos los artículos.
func (s *Store) RecentAll(ctx context.Context, limit int) ([]repository.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recentLocked("", limit), nil
}

// SumDeltas suma de deltas del artículo.
func (s *Store) SumDeltas(ctx context.Context, itemID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, t := range s.txs {
		if t.ItemID == itemID {
			sum += t.Delta
		}
	}
	return sum, nil
}

// ── Alertas ─────────────────────────────────────────────────────────────────

// FindOpen alerta abierta del artículo o nil.
func (s *Store) FindOpen(ctx context.Context, itemID string) (*entity.Alert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.findOpenLocked(itemID); a != nil {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

// Insert crea la alerta si no hay otra abierta para el artículo (verificación e inserción atómicas).
func (s *Store) Insert(ctx context.Context, alert *entity.Alert) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if alert.ID == "" || alert.ItemID == "" {
		return false, domain.ErrInvalidInput
	}
	if s.findOpenLocked(alert.ItemID) != nil {
		return false, nil
	}
	if _, ok := s.alerts[alert.ID]; ok {
		return false, domain.ErrDuplicate
	}
	cp := *alert
	cp.Resolved = false
	cp.ResolvedAt = nil
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now()
	}
	s.alerts[cp.ID] = &cp
	return true, nil
}

// MarkResolved marca la alerta como resuelta; idempotente.
func (s *Store) MarkResolved(ctx context.Context, alertID string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertID]
	if !ok {
		return false, domain.ErrAlertNotFound
	}
	if a.Resolved {
		return false, nil
	}
	a.Resolved = true
	a.ResolvedAt = &at
	return true, nil
}

// ResolveOpenForItem resuelve las alertas abiertas del artículo.
func (s *Store) ResolveOpenForItem(ctx context.Context, itemID string, at time.Time) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, a := range s.alerts {
		if a.ItemID == itemID && !a.Resolved {
			a.Resolved = true
			resolvedAt := at
			a.ResolvedAt = &resolvedAt
			ids = append(ids, a.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ListOpen alertas abiertas con el estado actual del artículo, más recientes primero.
func (s *Store) ListOpen(ctx context.Context) ([]repository.OpenAlert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.OpenAlert, 0)
	for _, a := range s.alerts {
		if a.Resolved {
			continue
		}
		oa := repository.OpenAlert{Alert: *a}
		if it, ok := s.items[a.ItemID]; ok {
			oa.ItemName = it.Name
			oa.Unit = it.Unit
			oa.Stock = it.Stock
			oa.MinLevel = it.MinLevel
		}
		out = append(out, oa)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Alert.CreatedAt.Equal(out[j].Alert.CreatedAt) {
			return out[i].Alert.CreatedAt.After(out[j].Alert.CreatedAt)
		}
		return out[i].Alert.ID > out[j].Alert.ID
	})
	return out, nil
}

// ── Resumen ─────────────────────────────────────────────────────────────────

// InventorySummary cifras del panel.
func (s *Store) InventorySummary(ctx context.Context, since time.Time) (*repository.InventorySummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := &repository.InventorySummary{StockValue: decimal.Zero}
	for _, it := range s.items {
		if !it.Active {
			continue
		}
		sum.ActiveItems++
		if it.IsLowStock(it.Stock) {
			sum.LowStockItems++
		}
		sum.StockValue = sum.StockValue.Add(it.Price.Mul(decimal.NewFromInt(it.Stock)))
	}
	for _, t := range s.txs {
		if !t.CreatedAt.Before(since) {
			sum.TransactionsSince++
		}
	}
	return sum, nil
}

// ── Transacciones de almacenamiento ─────────────────────────────────────────

// Run ejecuta fn con repositorios atados a una transacción: las escrituras se preparan y solo
// se aplican si fn termina sin error y el contexto sigue vigente.
func (s *Store) Run(ctx context.Context, fn func(
	itemRepo repository.ItemRepository,
	ledgerRepo repository.TransactionRepository,
) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &storeTx{store: s, stock: make(map[string]int64)}
	if err := fn(tx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// ── helpers (requieren s.mu) ────────────────────────────────────────────────

func (s *Store) getItemLocked(id string) *entity.Item {
	it, ok := s.items[id]
	if !ok {
		return nil
	}
	return copyItem(it)
}

func (s *Store) findByBarcodeLocked(code string) *entity.Item {
	for _, it := range s.items {
		if it.Active && it.Barcode != nil && *it.Barcode == code {
			return copyItem(it)
		}
	}
	return nil
}

func (s *Store) updateStockLocked(id string, newQty, expectedPrior int64) error {
	it, ok := s.items[id]
	if !ok {
		return domain.ErrItemNotFound
	}
	if it.Stock != expectedPrior {
		return domain.ErrConflict
	}
	if newQty < 0 {
		return domain.ErrInsufficientStock
	}
	it.Stock = newQty
	it.UpdatedAt = s.now()
	return nil
}

func (s *Store) appendLocked(tx *entity.Transaction) {
	s.nextTxID++
	tx.ID = s.nextTxID
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	s.txs = append(s.txs, copyTransaction(tx))
}

func (s *Store) recentLocked(itemID string, limit int) []repository.LedgerEntry {
	out := make([]repository.LedgerEntry, 0, limit)
	for i := len(s.txs) - 1; i >= 0; i-- {
		t := s.txs[i]
		if itemID != "" && t.ItemID != itemID {
			continue
		}
		e := repository.LedgerEntry{Transaction: copyTransaction(&t)}
		if it, ok := s.items[t.ItemID]; ok {
			e.ItemName = it.Name
			e.Unit = it.Unit
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Transaction, out[j].Transaction
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Store) findOpenLocked(itemID string) *entity.Alert {
	for _, a := range s.alerts {
		if a.ItemID == itemID && !a.Resolved {
			return a
		}
	}
	return nil
}

// storeTx vista transaccional; el mutex del store ya está tomado por Run.
type storeTx struct {
	store   *Store
	stock   map[string]int64
	pending []*entity.Transaction
}

func (t *storeTx) GetByID(_ context.Context, id string) (*entity.Item, error) {
	it := t.store.getItemLocked(id)
	if it != nil {
		if q, ok := t.stock[id]; ok {
			it.Stock = q
		}
	}
	return it, nil
}

func (t *storeTx) GetActiveByBarcode(_ context.Context, code string) (*entity.Item, error) {
	it := t.store.findByBarcodeLocked(code)
	if it != nil {
		if q, ok := t.stock[it.ID]; ok {
			it.Stock = q
		}
	}
	return it, nil
}

func (t *storeTx) UpdateStock(_ context.Context, id string, newQty, expectedPrior int64) error {
	it, ok := t.store.items[id]
	if !ok {
		return domain.ErrItemNotFound
	}
	current := it.Stock
	if q, ok := t.stock[id]; ok {
		current = q
	}
	if current != expectedPrior {
		return domain.ErrConflict
	}
	if newQty < 0 {
		return domain.ErrInsufficientStock
	}
	t.stock[id] = newQty
	return nil
}

func (t *storeTx) Append(_ context.Context, tx *entity.Transaction) error {
	tx.ID = t.store.nextTxID + int64(len(t.pending)) + 1
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = t.store.now()
	}
	cp := copyTransaction(tx)
	t.pending = append(t.pending, &cp)
	return nil
}

func (t *storeTx) RecentFor(_ context.Context, itemID string, limit int) ([]repository.LedgerEntry, error) {
	return t.store.recentLocked(itemID, limit), nil
}

func (t *storeTx) RecentAll(_ context.Context, limit int) ([]repository.LedgerEntry, error) {
	return t.store.recentLocked("", limit), nil
}

func (t *storeTx) SumDeltas(_ context.Context, itemID string) (int64, error) {
	var sum int64
	for _, tr := range t.store.txs {
		if tr.ItemID == itemID {
			sum += tr.Delta
		}
	}
	for _, tr := range t.pending {
		if tr.ItemID == itemID {
			sum += tr.Delta
		}
	}
	return sum, nil
}

func (t *storeTx) commit() {
	now := t.store.now()
	for id, q := range t.stock {
		it := t.store.items[id]
		it.Stock = q
		it.UpdatedAt = now
	}
	for _, tr := range t.pending {
		t.store.txs = append(t.store.txs, *tr)
	}
	t.store.nextTxID += int64(len(t.pending))
}

func copyItem(it *entity.Item) *entity.Item {
	cp := *it
	if it.Barcode != nil {
		b := *it.Barcode
		cp.Barcode = &b
	}
	return &cp
}

func copyTransaction(t *entity.Transaction) entity.Transaction {
	cp := *t
	if t.Comment != nil {
		c := *t.Comment
		cp.Comment = &c
	}
	if t.Actor != nil {
		a := *t.Actor
		cp.Actor = &a
	}
	return cp
}
