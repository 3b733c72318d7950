package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"safe-gateway-lite/internal/auth"
	"safe-gateway-lite/internal/delegate"
	"safe-gateway-lite/internal/handler"
	"safe-gateway-lite/internal/hub"
	"safe-gateway-lite/internal/middleware"
	"safe-gateway-lite/internal/store"
	"safe-gateway-lite/internal/txengine"
)

type Deps struct {
	Store         *store.Store
	Authenticator *auth.Authenticator
	Delegates     *delegate.Registry
	Engine        *txengine.Engine
	Hub           *hub.Hub
	Logger        *slog.Logger

	// AuthRateLimit caps nonce and verify calls per client IP and minute;
	// 0 disables the limit.
	AuthRateLimit int
	SecureCookie  bool
	About         handler.AboutHandler
}

func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))

	about := deps.About
	r.GET("/health/live", about.Live)
	r.GET("/health/ready", about.Readiness)
	r.GET("/about", about.About)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.RequireAuth(deps.Authenticator)
	limited := []gin.HandlerFunc{}
	if deps.AuthRateLimit > 0 {
		limited = append(limited, middleware.RateLimitMiddleware(middleware.NewRateLimiter(deps.AuthRateLimit, time.Minute)))
	}

	v1 := r.Group("/v1")

	authHandler := &handler.AuthHandler{Authenticator: deps.Authenticator, SecureCookie: deps.SecureCookie}
	v1.GET("/auth/nonce", append(limited, authHandler.Nonce)...)
	v1.POST("/auth/verify", append(limited, authHandler.Verify)...)
	v1.POST("/auth/logout", authHandler.Logout)

	accountHandler := &handler.AccountHandler{Store: deps.Store}
	v1.GET("/data-types", accountHandler.DataTypes)
	accounts := v1.Group("/accounts", requireAuth)
	accounts.POST("", accountHandler.Create)
	accounts.GET("/:address", accountHandler.Get)
	accounts.DELETE("/:address", accountHandler.Delete)
	accounts.GET("/:address/data-settings", accountHandler.DataSettings)
	accounts.PUT("/:address/data-settings", accountHandler.UpsertDataSettings)

	bookHandler := &handler.AddressBookHandler{Store: deps.Store}
	accounts.GET("/:address/address-books/:chainId", bookHandler.Get)
	accounts.POST("/:address/address-books/:chainId", bookHandler.CreateItem)
	accounts.DELETE("/:address/address-books/:chainId", bookHandler.Delete)
	accounts.PUT("/:address/address-books/:chainId/:itemId", bookHandler.UpdateItem)
	accounts.DELETE("/:address/address-books/:chainId/:itemId", bookHandler.DeleteItem)

	cfHandler := &handler.CounterfactualSafeHandler{Store: deps.Store}
	accounts.GET("/:address/counterfactual-safes", cfHandler.List)
	accounts.POST("/:address/counterfactual-safes", cfHandler.Create)
	accounts.DELETE("/:address/counterfactual-safes", cfHandler.DeleteAll)
	accounts.GET("/:address/counterfactual-safes/:chainId/:predictedAddress", cfHandler.Get)
	accounts.DELETE("/:address/counterfactual-safes/:chainId/:predictedAddress", cfHandler.Delete)

	txHandler := &handler.TransactionHandler{Engine: deps.Engine}
	chains := v1.Group("/chains/:chainId")
	chains.GET("/safes/:safeAddress/nonces", txHandler.Nonces)
	chains.GET("/safes/:safeAddress/transactions/queued", txHandler.Queued)
	chains.GET("/safes/:safeAddress/transactions/history", txHandler.History)
	chains.POST("/safes/:safeAddress/transactions/propose", requireAuth, txHandler.Propose)
	chains.GET("/transactions/:safeTxHash", txHandler.Get)
	chains.DELETE("/transactions/:safeTxHash", requireAuth, txHandler.Delete)
	chains.POST("/transactions/:safeTxHash/confirmations", requireAuth, txHandler.Confirm)

	eventsHandler := &handler.EventsHandler{Hub: deps.Hub, Sessions: deps.Authenticator}
	chains.GET("/safes/:safeAddress/events", eventsHandler.Serve)

	delegateHandler := &handler.DelegateHandler{Registry: deps.Delegates}
	v2 := r.Group("/v2/chains/:chainId")
	v2.GET("/delegates", delegateHandler.List)
	v2.POST("/delegates", delegateHandler.Create)
	v2.DELETE("/delegates/:delegate", delegateHandler.Delete)

	return r
}
