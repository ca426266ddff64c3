package http

import (
	"errors"
	"net/http"

	"main/internal/application/service/intake"
	"main/internal/domain/interfaces"

	"github.com/gin-gonic/gin"
)

// Handler is the internal ingress for the order pipeline. The caller is the
// trusted user-facing API, which has already authenticated the user; this
// layer only validates shape and maps service errors onto the response
// envelope.
type Handler struct {
	router *gin.Engine
	orders *intake.Service
}

func NewHandler(orders *intake.Service) *Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	h := &Handler{
		router: router,
		orders: orders,
	}
	h.registerRoutes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.POST("/placeLimitSell", h.placeLimitSell)
	h.router.POST("/placeMarketBuy", h.placeMarketBuy)
	h.router.POST("/cancelStockTransaction", h.cancelStockTransaction)
	h.router.GET("/health", h.health)
}

type limitSellRequest struct {
	StockID  string  `json:"stock_id" binding:"required"`
	Quantity int64   `json:"quantity" binding:"required"`
	Price    float64 `json:"price" binding:"required"`
	UserName string  `json:"user_name" binding:"required"`
}

func (h *Handler) placeLimitSell(c *gin.Context) {
	var req limitSellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, err)
		return
	}
	if err := h.orders.PlaceLimitSell(c.Request.Context(), req.StockID, req.Quantity, req.Price, req.UserName); err != nil {
		failure(c, statusFor(err), err)
		return
	}
	success(c, http.StatusCreated)
}

type marketBuyRequest struct {
	StockID  string `json:"stock_id" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required"`
	UserName string `json:"user_name" binding:"required"`
}

func (h *Handler) placeMarketBuy(c *gin.Context) {
	var req marketBuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	stockTxID, err := h.orders.PlaceMarketBuy(ctx, req.StockID, req.Quantity, req.UserName)
	if err != nil {
		failure(c, statusFor(err), err)
		return
	}
	if err := h.orders.WaitForCompletion(ctx, stockTxID); err != nil {
		failure(c, statusFor(err), err)
		return
	}
	success(c, http.StatusCreated)
}

type cancelRequest struct {
	StockTxID string `json:"stock_tx_id" binding:"required"`
	UserName  string `json:"user_name" binding:"required"`
}

func (h *Handler) cancelStockTransaction(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, err)
		return
	}
	if err := h.orders.CancelTransaction(c.Request.Context(), req.StockTxID, req.UserName); err != nil {
		failure(c, statusFor(err), err)
		return
	}
	success(c, http.StatusOK)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "order-intake OK"})
}

func success(c *gin.Context, status int) {
	c.JSON(status, gin.H{"success": true, "data": nil})
}

func failure(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"success": false, "data": gin.H{"error": err.Error()}})
}

// statusFor sorts service errors into the validation bucket (returned as
// 400) and everything else (500, including timeouts which the caller is
// expected to reconcile later).
func statusFor(err error) int {
	switch {
	case errors.Is(err, intake.ErrInvalidOrder),
		errors.Is(err, intake.ErrStockNotOwned),
		errors.Is(err, intake.ErrInsufficientShares),
		errors.Is(err, intake.ErrInsufficientFunds),
		errors.Is(err, interfaces.ErrUserNotFound),
		errors.Is(err, interfaces.ErrStockNotFound),
		errors.Is(err, interfaces.ErrTransactionNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
