// Package analytics contiene los casos de uso de solo lectura para el panel del laboratorio.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/labstock/internal/application/dto"
	"github.com/jhoicas/labstock/internal/domain/repository"
)

const dashboardRecentActivity = 5 // movimientos en el widget de actividad reciente

// DashboardUseCase genera el resumen del inventario del mes en curso.
// Solo lee: cifras agregadas, actividad reciente y alertas abiertas.
type DashboardUseCase struct {
	summaryRepo repository.SummaryRepository
	ledgerRepo  repository.TransactionRepository
	alertRepo   repository.AlertRepository
	now         func() time.Time
}

// NewDashboardUseCase construye el caso de uso.
func NewDashboardUseCase(
	summaryRepo repository.SummaryRepository,
	ledgerRepo repository.TransactionRepository,
	alertRepo repository.AlertRepository,
) *DashboardUseCase {
	return &DashboardUseCase{
		summaryRepo: summaryRepo,
		ledgerRepo:  ledgerRepo,
		alertRepo:   alertRepo,
		now:         time.Now,
	}
}

// GetSummary construye el DashboardSummaryDTO.
//
// Tres consultas en paralelo:
//  1. InventorySummary(mes) → artículos activos, stock bajo, valor, transacciones del mes
//  2. RecentAll(5)          → actividad reciente
//  3. ListOpen              → número de alertas abiertas
func (uc *DashboardUseCase) GetSummary(ctx context.Context) (*dto.DashboardSummaryDTO, error) {
	now := uc.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	type summaryResult struct {
		s   *repository.InventorySummary
		err error
	}
	type recentResult struct {
		entries []repository.LedgerEntry
		err     error
	}
	type alertsResult struct {
		count int
		err   error
	}

	summaryCh := make(chan summaryResult, 1)
	recentCh := make(chan recentResult, 1)
	alertsCh := make(chan alertsResult, 1)

	go func() {
		s, err := uc.summaryRepo.InventorySummary(ctx, monthStart)
		summaryCh <- summaryResult{s, err}
	}()
	go func() {
		entries, err := uc.ledgerRepo.RecentAll(ctx, dashboardRecentActivity)
		recentCh <- recentResult{entries, err}
	}()
	go func() {
		open, err := uc.alertRepo.ListOpen(ctx)
		alertsCh <- alertsResult{len(open), err}
	}()

	summary := <-summaryCh
	recent := <-recentCh
	alerts := <-alertsCh

	if summary.err != nil {
		return nil, fmt.Errorf("dashboard: resumen de inventario: %w", summary.err)
	}
	if recent.err != nil {
		return nil, fmt.Errorf("dashboard: actividad reciente: %w", recent.err)
	}
	if alerts.err != nil {
		return nil, fmt.Errorf("dashboard: alertas abiertas: %w", alerts.err)
	}

	return &dto.DashboardSummaryDTO{
		ActiveItems:         summary.s.ActiveItems,
		LowStockItems:       summary.s.LowStockItems,
		OpenAlerts:          alerts.count,
		MonthlyTransactions: summary.s.TransactionsSince,
		StockValue:          summary.s.StockValue.Round(2),
		RecentActivity:      dto.NewLedgerEntryDTOs(recent.entries),
		DateLabel:           monthLabel(now),
	}, nil
}

// monthLabel devuelve una etiqueta legible del mes, ej: "Febrero 2026".
func monthLabel(t time.Time) string {
	months := [...]string{
		"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
		"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
	}
	return fmt.Sprintf("%s %d", months[t.Month()-1], t.Year())
}
