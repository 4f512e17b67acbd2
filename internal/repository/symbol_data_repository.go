package repository

import (
	"context"
	"database/sql"

	"services/symbol-data-service/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// SymbolDataRepository handles windowed reads over historical symbol data
type SymbolDataRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSymbolDataRepository creates a new symbol data repository
func NewSymbolDataRepository(db *sqlx.DB, logger *zap.Logger) *SymbolDataRepository {
	return &SymbolDataRepository{
		db:     db,
		logger: logger,
	}
}

// GetSymbolWithWindow fetches a symbol joined with its data points whose date
// falls inside the trailing window [current_date - windowDays, current_date],
// both ends inclusive, ordered by date descending. Both reads run inside one
// read-only transaction so the aggregate is a single consistent snapshot.
//
// A registered symbol with no rows in the window returns successfully with an
// empty data slice; only a missing symbol row is model.ErrSymbolNotFound.
func (r *SymbolDataRepository) GetSymbolWithWindow(ctx context.Context, symbol string, windowDays int) (*model.SymbolWithData, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return nil, err
	}
	defer tx.Rollback()

	symbolQuery := `
		SELECT symbol, added_date, initial_import_date, last_update_date
		FROM symbols
		WHERE symbol = $1
	`

	var rows []model.Symbol
	if err := tx.SelectContext(ctx, &rows, symbolQuery, symbol); err != nil {
		r.logger.Error("Failed to get symbol", zap.Error(err), zap.String("symbol", symbol))
		return nil, err
	}

	if len(rows) == 0 {
		return nil, model.ErrSymbolNotFound
	}
	if len(rows) > 1 {
		// The symbol column is the primary key; more than one row means the
		// schema invariant is broken. Never coerce this into first-row-wins.
		r.logger.Error("Symbol lookup returned multiple rows",
			zap.String("symbol", symbol),
			zap.Int("rows", len(rows)))
		return nil, model.ErrIntegrity
	}

	dataQuery := `
		SELECT symbol, date, open, high, low, close, sma100d, rsi100d
		FROM symbol_data
		WHERE symbol = $1
		  AND date BETWEEN CURRENT_DATE - $2::int AND CURRENT_DATE
		ORDER BY date DESC
	`

	points := []model.DataPoint{}
	if err := tx.SelectContext(ctx, &points, dataQuery, symbol, windowDays); err != nil {
		r.logger.Error("Failed to get symbol data window",
			zap.Error(err),
			zap.String("symbol", symbol),
			zap.Int("windowDays", windowDays))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit transaction", zap.Error(err))
		return nil, err
	}

	return &model.SymbolWithData{Symbol: rows[0], Data: points}, nil
}
