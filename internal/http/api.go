package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sharebrokering/internal/domain"
	"sharebrokering/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	stocks    service.StockService
	users     service.UserService
	jwtSecret string
	tokenTTL  time.Duration
}

func NewHandler(stocks service.StockService, users service.UserService, jwtSecret string, tokenTTL time.Duration) *Handler {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &Handler{
		stocks:    stocks,
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/stocks", h.getAllStocks)
		api.GET("/stocks/search", h.searchShares)
		api.GET("/stocks/:symbol", h.getStockBySymbol)
		api.POST("/stocks/:symbol/purchase", h.purchaseShare)
		api.POST("/stocks/:symbol/sell", h.sellShare)

		admin := api.Group("", requireRole(h.jwtSecret, domain.RoleAdmin))
		{
			admin.POST("/stocks", h.addShare)
			admin.DELETE("/stocks/:symbol", h.deleteShare)
			admin.PATCH("/stocks/:symbol", h.modifyShare)
		}

		api.POST("/users", h.registerUser)
		api.POST("/users/login", h.loginUser)
		api.GET("/users/:guid/funds", h.getUserFunds)
		api.POST("/users/:guid/deposit", h.depositFunds)
		api.POST("/users/:guid/withdraw", h.withdrawFunds)
		api.GET("/users/:guid/stocks", h.getUserStocks)

		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// statusForError maps service failures onto HTTP statuses. Anything not
// covered by a sentinel is treated as a validation failure.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrStockNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrStockAlreadyExists),
		errors.Is(err, service.ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrInsufficientShares),
		errors.Is(err, service.ErrPositionNotHeld),
		errors.Is(err, service.ErrNoChanges):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"success": false, "error": err.Error()})
}

func ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) getAllStocks(c *gin.Context) {
	stocks, err := h.stocks.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stocks)
}

func (h *Handler) getStockBySymbol(c *gin.Context) {
	stock, err := h.stocks.GetBySymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stock)
}

func (h *Handler) searchShares(c *gin.Context) {
	price := -1.0
	if raw := c.Query("sharePrice"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid sharePrice"})
			return
		}
		price = parsed
	}

	criteria := service.SearchCriteria{
		Name:        c.Query("stockName"),
		Symbol:      c.Query("stockSymbol"),
		Currency:    c.Query("currency"),
		PriceFilter: service.PriceFilter(c.Query("sharePriceFilter")),
		Price:       price,
		SortBy:      service.SortKey(c.Query("sortBy")),
		Order:       service.SortOrder(c.Query("order")),
	}

	stocks, err := h.stocks.Search(c.Request.Context(), criteria)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stocks)
}

type tradeRequest struct {
	GUID     string  `json:"guid" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required"`
}

func (h *Handler) purchaseShare(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := h.stocks.Purchase(c.Request.Context(), req.GUID, c.Param("symbol"), req.Quantity); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (h *Handler) sellShare(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := h.stocks.Sell(c.Request.Context(), req.GUID, c.Param("symbol"), req.Quantity); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

type addShareRequest struct {
	StockName       string  `json:"stockName" binding:"required"`
	StockSymbol     string  `json:"stockSymbol" binding:"required"`
	AvailableShares float64 `json:"availableShares"`
}

func (h *Handler) addShare(c *gin.Context) {
	var req addShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := h.stocks.Add(c.Request.Context(), req.StockName, req.StockSymbol, req.AvailableShares); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (h *Handler) deleteShare(c *gin.Context) {
	if err := h.stocks.Remove(c.Request.Context(), c.Param("symbol")); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

type modifyShareRequest struct {
	StockName       string   `json:"stockName"`
	NewStockSymbol  string   `json:"newStockSymbol"`
	AvailableShares *float64 `json:"availableShares"`
}

func (h *Handler) modifyShare(c *gin.Context) {
	var req modifyShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	changes := service.StockChanges{
		Name:            req.StockName,
		NewSymbol:       req.NewStockSymbol,
		AvailableShares: req.AvailableShares,
	}
	if err := h.stocks.Modify(c.Request.Context(), c.Param("symbol"), changes); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

type registerRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Currency  string `json:"currency" binding:"required"`
}

func (h *Handler) registerUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := h.users.Register(c.Request.Context(), req.FirstName, req.LastName, req.Username, req.Password, req.Currency); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned by the login operation. Failed logins have the
// same shape regardless of which credential was wrong.
type LoginResponse struct {
	Success bool   `json:"success"`
	GUID    string `json:"guid,omitempty"`
	Role    string `json:"role,omitempty"`
	Token   string `json:"token,omitempty"`
}

func (h *Handler) loginUser(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, LoginResponse{Success: false})
		return
	}

	auth, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, LoginResponse{Success: false})
		return
	}

	token, err := issueToken(h.jwtSecret, h.tokenTTL, auth.GUID, auth.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, LoginResponse{Success: false})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Success: true,
		GUID:    auth.GUID,
		Role:    string(auth.Role),
		Token:   token,
	})
}

// FundsResponse reports a user's available balance and account currency.
type FundsResponse struct {
	AvailableFunds float64 `json:"availableFunds"`
	Currency       string  `json:"currency"`
}

func (h *Handler) getUserFunds(c *gin.Context) {
	funds, err := h.users.GetFunds(c.Request.Context(), c.Param("guid"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, FundsResponse{
		AvailableFunds: funds.AvailableFunds,
		Currency:       funds.Currency,
	})
}

type amountRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

func (h *Handler) depositFunds(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := h.users.Deposit(c.Request.Context(), c.Param("guid"), req.Amount); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (h *Handler) withdrawFunds(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := h.users.Withdraw(c.Request.Context(), c.Param("guid"), req.Amount); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (h *Handler) getUserStocks(c *gin.Context) {
	stocks, err := h.users.UserStocks(c.Request.Context(), c.Param("guid"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stocks)
}
