package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"services/symbol-data-service/internal/dispatch"
	"services/symbol-data-service/internal/metrics"
	"services/symbol-data-service/internal/model"

	"go.uber.org/zap"
)

// Task names understood by the external worker pool.
const (
	TaskInitialImport  = "tasks.initial_import"
	TaskUpdateSymbols  = "tasks.update_symbols"
	TaskGenerateReport = "tasks.generate_csv_report"
)

// SymbolRegistry is the registry surface the coordinator needs
type SymbolRegistry interface {
	GetAllSymbols(ctx context.Context, onlyImported bool) ([]model.Symbol, error)
	InsertIfAbsent(ctx context.Context, symbol string) (*model.Symbol, error)
	GetSymbol(ctx context.Context, symbol string) (*model.Symbol, error)
}

// TaskDispatcher is the broker surface the coordinator needs
type TaskDispatcher interface {
	Submit(taskName string, args ...interface{}) (dispatch.Handle, error)
	Await(handle dispatch.Handle, timeout time.Duration) (interface{}, error)
}

// SymbolService coordinates symbol registration: an idempotent insert into the
// registry followed by a one-time import job dispatch for the caller that
// actually created the row.
type SymbolService struct {
	registry     SymbolRegistry
	dispatcher   TaskDispatcher
	metrics      *metrics.Metrics
	awaitTimeout time.Duration
	logger       *zap.Logger
	observers    sync.WaitGroup
}

// NewSymbolService creates a new symbol service
func NewSymbolService(
	registry SymbolRegistry,
	dispatcher TaskDispatcher,
	m *metrics.Metrics,
	awaitTimeout time.Duration,
	logger *zap.Logger,
) *SymbolService {
	return &SymbolService{
		registry:     registry,
		dispatcher:   dispatcher,
		metrics:      m,
		awaitTimeout: awaitTimeout,
		logger:       logger,
	}
}

// NormalizeSymbol canonicalizes a raw symbol: trimmed and upper-cased.
// Empty input is rejected before any storage call.
func NormalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" {
		return "", model.ErrSymbolInvalid
	}
	return symbol, nil
}

// RegisterSymbol registers a symbol exactly once. The caller that created the
// row submits the initial import job; every other caller gets
// model.ErrSymbolExists and no job is dispatched.
//
// Dispatch is decoupled from the response: the job result is observed on a
// separate goroutine with a bounded await, and its outcome is logged and
// counted. Registration success means "row created" and is never rolled back
// by a broker failure or a failed import.
func (s *SymbolService) RegisterSymbol(ctx context.Context, raw string) (*model.Symbol, error) {
	symbol, err := NormalizeSymbol(raw)
	if err != nil {
		return nil, err
	}

	created, err := s.registry.InsertIfAbsent(ctx, symbol)
	if err != nil {
		if errors.Is(err, model.ErrSymbolExists) {
			s.metrics.DuplicatesTotal.Inc()
		}
		return nil, err
	}

	s.metrics.RegistrationsTotal.Inc()
	s.logger.Info("Symbol registered", zap.String("symbol", symbol))

	handle, err := s.dispatcher.Submit(TaskInitialImport, symbol)
	if err != nil {
		// The row stays registered with a null import date; the import can be
		// re-driven out of band once the broker is back.
		s.metrics.DispatchFailuresTotal.Inc()
		s.logger.Error("Failed to dispatch initial import",
			zap.Error(err),
			zap.String("symbol", symbol))
		return created, nil
	}

	s.observers.Add(1)
	go s.observeImport(symbol, handle)

	return created, nil
}

// observeImport waits for the eventual result of an initial import so a
// failure or timeout is never left unobserved
func (s *SymbolService) observeImport(symbol string, handle dispatch.Handle) {
	defer s.observers.Done()

	_, err := s.dispatcher.Await(handle, s.awaitTimeout)
	switch {
	case err == nil:
		s.metrics.ImportResultsTotal.WithLabelValues(metrics.OutcomeCompleted).Inc()
		s.logger.Info("Initial import completed",
			zap.String("symbol", symbol),
			zap.String("task_id", handle.TaskID()))
	case errors.Is(err, dispatch.ErrAwaitTimeout):
		s.metrics.ImportResultsTotal.WithLabelValues(metrics.OutcomeTimeout).Inc()
		s.logger.Error("Initial import timed out",
			zap.Error(err),
			zap.String("symbol", symbol),
			zap.String("task_id", handle.TaskID()))
	default:
		s.metrics.ImportResultsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		s.logger.Error("Initial import failed",
			zap.Error(err),
			zap.String("symbol", symbol),
			zap.String("task_id", handle.TaskID()))
	}
}

// WaitForImports blocks until every pending import observer has finished.
// Called during shutdown and by tests that assert on the observed outcome.
func (s *SymbolService) WaitForImports() {
	s.observers.Wait()
}

// ListSymbols retrieves registered symbols ordered by symbol; onlyImported
// restricts the listing to symbols whose initial import has completed
func (s *SymbolService) ListSymbols(ctx context.Context, onlyImported bool) ([]model.Symbol, error) {
	return s.registry.GetAllSymbols(ctx, onlyImported)
}

// RequestReport submits a CSV report job for a registered symbol and returns
// the task ID; the report itself is produced by the external worker
func (s *SymbolService) RequestReport(ctx context.Context, raw string) (string, error) {
	symbol, err := NormalizeSymbol(raw)
	if err != nil {
		return "", err
	}

	existing, err := s.registry.GetSymbol(ctx, symbol)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "", model.ErrSymbolNotFound
	}

	handle, err := s.dispatcher.Submit(TaskGenerateReport, symbol)
	if err != nil {
		s.logger.Error("Failed to dispatch report generation",
			zap.Error(err),
			zap.String("symbol", symbol))
		return "", err
	}

	return handle.TaskID(), nil
}
