package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ibernabel/lamas-backend/internal/auth"
	"github.com/ibernabel/lamas-backend/internal/config"
	"github.com/ibernabel/lamas-backend/internal/http/handlers"
	"github.com/ibernabel/lamas-backend/internal/http/middleware"
	"github.com/ibernabel/lamas-backend/internal/version"
	"github.com/ibernabel/lamas-backend/internal/ws"
)

type Dependencies struct {
	Pinger             handlers.Pinger
	AuthHandler        *handlers.AuthHandler
	ApplicationHandler *handlers.LoanApplicationHandler
	CustomerHandler    *handlers.CustomerHandler
	CreditRiskHandler  *handlers.CreditRiskHandler
	Hub                *ws.Hub
	JWTManager         *auth.JWTManager
}

func NewRouter(cfg config.Config, logger *slog.Logger, deps Dependencies) *gin.Engine {
	if cfg.Env == "prod" || cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(func(c *gin.Context) {
		logger.Info("request", "method", c.Request.Method, "path", c.Request.URL.Path, "request_id", c.GetString("request_id"))
		c.Next()
	})
	r.Use(middleware.RequestBodyLimit(1 << 20))

	health := handlers.NewHealthHandler(deps.Pinger)
	meta := handlers.NewMetaHandler(cfg.Env, version.Version)

	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/v1/meta", meta.GetMeta)

	if deps.AuthHandler != nil && deps.JWTManager != nil {
		authGroup := r.Group("/v1/auth")
		authGroup.POST("/login", deps.AuthHandler.Login)
		authGroup.POST("/refresh", deps.AuthHandler.Refresh)
		authGroup.POST("/logout", deps.AuthHandler.Logout)

		protected := authGroup.Group("")
		protected.Use(middleware.RequireAuth(deps.JWTManager))
		protected.GET("/me", deps.AuthHandler.Me)

		api := r.Group("/v1")
		api.Use(middleware.RequireAuth(deps.JWTManager), middleware.RequireRole(auth.RoleAnalyst, auth.RoleAdmin))

		if deps.CustomerHandler != nil {
			api.POST("/customers", deps.CustomerHandler.Create)
			api.GET("/customers", deps.CustomerHandler.List)
			api.GET("/customers/validate-nid", deps.CustomerHandler.ValidateNID)
			api.GET("/customers/:id", deps.CustomerHandler.Get)
			api.DELETE("/customers/:id", deps.CustomerHandler.Delete)
		}

		if deps.ApplicationHandler != nil {
			api.POST("/loan-applications", deps.ApplicationHandler.Create)
			api.GET("/loan-applications", deps.ApplicationHandler.List)
			api.GET("/loan-applications/:id", deps.ApplicationHandler.Get)
			api.PUT("/loan-applications/:id/detail", deps.ApplicationHandler.UpdateDetail)
			api.DELETE("/loan-applications/:id", deps.ApplicationHandler.Delete)
			api.POST("/loan-applications/:id/transition", deps.ApplicationHandler.Transition)
			api.GET("/loan-applications/:id/transitions", deps.ApplicationHandler.AllowedTransitions)
			api.POST("/loan-applications/:id/notes", deps.ApplicationHandler.AddNote)
			api.GET("/loan-applications/:id/notes", deps.ApplicationHandler.ListNotes)
			api.POST("/loan-applications/:id/credit-risk", deps.ApplicationHandler.AssociateCreditRisk)
			api.POST("/loan-applications/:id/evaluate", deps.ApplicationHandler.Evaluate)
		}

		if deps.CreditRiskHandler != nil {
			api.GET("/credit-risks/categories", deps.CreditRiskHandler.ListCategories)
			api.GET("/credit-risks", deps.CreditRiskHandler.ListRisks)
			api.GET("/credit-risks/:id", deps.CreditRiskHandler.GetRisk)
		}

		if deps.Hub != nil {
			wsHandler := ws.NewHandler(deps.Hub)
			api.GET("/ws", wsHandler.HandleWebSocket)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	return r
}
