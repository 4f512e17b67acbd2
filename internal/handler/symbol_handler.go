package handler

import (
	"errors"
	"net/http"
	"strconv"

	"services/symbol-data-service/internal/model"
	"services/symbol-data-service/internal/service"
	"services/symbol-data-service/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SymbolHandler handles symbol HTTP requests
type SymbolHandler struct {
	symbolService     *service.SymbolService
	timeSeriesService *service.TimeSeriesService
	logger            *zap.Logger
}

// NewSymbolHandler creates a new symbol handler
func NewSymbolHandler(
	symbolService *service.SymbolService,
	timeSeriesService *service.TimeSeriesService,
	logger *zap.Logger,
) *SymbolHandler {
	return &SymbolHandler{
		symbolService:     symbolService,
		timeSeriesService: timeSeriesService,
		logger:            logger,
	}
}

// GetAllSymbols handles listing registered symbols, ordered by symbol.
// GET /api/v1/symbols?imported=true
//
// By default every row is returned and callers can tell importing from
// available by the presence of initial_import_date; imported=true restores
// the filtered listing.
func (h *SymbolHandler) GetAllSymbols(c *gin.Context) {
	onlyImported := c.Query("imported") == "true"

	symbols, err := h.symbolService.ListSymbols(c.Request.Context(), onlyImported)
	if err != nil {
		h.logger.Error("Failed to list symbols", zap.Error(err))
		utils.SendErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve symbols")
		return
	}

	c.JSON(http.StatusOK, symbols)
}

// RegisterSymbol handles registering a new symbol
// POST /api/v1/symbols/:symbol
func (h *SymbolHandler) RegisterSymbol(c *gin.Context) {
	raw := c.Param("symbol")

	created, err := h.symbolService.RegisterSymbol(c.Request.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrSymbolInvalid):
			utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid symbol")
		case errors.Is(err, model.ErrSymbolExists):
			// Expected outcome of repeated registration; a client error,
			// not a server failure.
			c.String(http.StatusBadRequest, "Symbol %s already exists.", raw)
		default:
			h.logger.Error("Failed to register symbol", zap.Error(err), zap.String("symbol", raw))
			utils.SendErrorResponse(c, http.StatusInternalServerError, "Failed to register symbol: "+err.Error())
		}
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetSymbolData handles the windowed time-series query for one symbol
// GET /api/v1/symbols/:symbol?days=100
func (h *SymbolHandler) GetSymbolData(c *gin.Context) {
	raw := c.Param("symbol")

	windowDays := service.DefaultWindowDays
	if daysStr := c.Query("days"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil || days <= 0 {
			utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid days parameter")
			return
		}
		windowDays = days
	}

	series, err := h.timeSeriesService.GetSymbolTimeSeries(c.Request.Context(), raw, windowDays)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrSymbolInvalid):
			utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid symbol")
		case errors.Is(err, model.ErrSymbolNotFound):
			utils.SendErrorResponse(c, http.StatusNotFound, "Symbol not found")
		case errors.Is(err, model.ErrIntegrity):
			h.logger.Error("Integrity violation on symbol lookup", zap.Error(err), zap.String("symbol", raw))
			utils.SendErrorResponse(c, http.StatusInternalServerError, "Storage integrity violation")
		default:
			h.logger.Error("Failed to get symbol data", zap.Error(err), zap.String("symbol", raw))
			utils.SendErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve symbol data")
		}
		return
	}

	c.JSON(http.StatusOK, series)
}

// RequestReport handles dispatching a CSV report job for a symbol
// POST /api/v1/symbols/:symbol/report
func (h *SymbolHandler) RequestReport(c *gin.Context) {
	raw := c.Param("symbol")

	taskID, err := h.symbolService.RequestReport(c.Request.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrSymbolInvalid):
			utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid symbol")
		case errors.Is(err, model.ErrSymbolNotFound):
			utils.SendErrorResponse(c, http.StatusNotFound, "Symbol not found")
		default:
			h.logger.Error("Failed to request report", zap.Error(err), zap.String("symbol", raw))
			utils.SendErrorResponse(c, http.StatusInternalServerError, "Failed to request report: "+err.Error())
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"task_id": taskID})
}
