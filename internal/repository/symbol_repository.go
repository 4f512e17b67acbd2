package repository

import (
	"context"
	"database/sql"
	"errors"

	"services/symbol-data-service/internal/model"

	"github.com/jackc/pgconn"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// SymbolRepository handles database operations for the symbol registry
type SymbolRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSymbolRepository creates a new symbol repository
func NewSymbolRepository(db *sqlx.DB, logger *zap.Logger) *SymbolRepository {
	return &SymbolRepository{
		db:     db,
		logger: logger,
	}
}

// GetAllSymbols retrieves all registered symbols ordered by symbol. When
// onlyImported is set, rows still waiting for their initial import are
// excluded.
func (r *SymbolRepository) GetAllSymbols(ctx context.Context, onlyImported bool) ([]model.Symbol, error) {
	query := `
		SELECT symbol, added_date, initial_import_date, last_update_date
		FROM symbols
		ORDER BY symbol
	`
	if onlyImported {
		query = `
			SELECT symbol, added_date, initial_import_date, last_update_date
			FROM symbols
			WHERE initial_import_date IS NOT NULL
			ORDER BY symbol
		`
	}

	symbols := []model.Symbol{}
	err := r.db.SelectContext(ctx, &symbols, query)
	if err != nil {
		r.logger.Error("Failed to get symbols", zap.Error(err), zap.Bool("onlyImported", onlyImported))
		return nil, err
	}

	return symbols, nil
}

// InsertIfAbsent atomically inserts a symbol unless it already exists. The
// insert and the duplicate check are one conditional statement so that under
// concurrent registration exactly one caller gets the created row back and
// every other caller gets model.ErrSymbolExists.
func (r *SymbolRepository) InsertIfAbsent(ctx context.Context, symbol string) (*model.Symbol, error) {
	query := `
		INSERT INTO symbols (symbol, added_date)
		VALUES ($1, NOW())
		ON CONFLICT (symbol) DO NOTHING
		RETURNING symbol, added_date, initial_import_date, last_update_date
	`

	var created model.Symbol
	err := r.db.GetContext(ctx, &created, query, symbol)
	if err != nil {
		// No row returned means the conflict clause fired: the symbol was
		// already registered.
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrSymbolExists
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			r.logger.Error("Failed to insert symbol",
				zap.Error(err),
				zap.String("symbol", symbol),
				zap.String("pg_code", pgErr.Code))
			return nil, err
		}

		r.logger.Error("Failed to insert symbol", zap.Error(err), zap.String("symbol", symbol))
		return nil, err
	}

	return &created, nil
}

// GetSymbol retrieves a single symbol row, or nil when it does not exist
func (r *SymbolRepository) GetSymbol(ctx context.Context, symbol string) (*model.Symbol, error) {
	query := `
		SELECT symbol, added_date, initial_import_date, last_update_date
		FROM symbols
		WHERE symbol = $1
	`

	var row model.Symbol
	err := r.db.GetContext(ctx, &row, query, symbol)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get symbol", zap.Error(err), zap.String("symbol", symbol))
		return nil, err
	}

	return &row, nil
}
