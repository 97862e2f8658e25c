package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"placement-engine/internal/handler/api"
	"placement-engine/internal/handler/middleware"
	"placement-engine/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

type Handlers struct {
	Placement *api.PlacementHandler
	Admin     *api.AdminHandler
	Webhook   *api.WebhookHandler
}

func NewRouter(engine *gin.Engine, cfg config.Config, handlers Handlers, authMiddleware *middleware.AuthMiddleware) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, handlers, authMiddleware)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(nil, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	engine.GET("/health", healthCheck)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiGroup := engine.Group("/api")
	{
		// authenticated by signature, not by token
		addRoutes(apiGroup, []route{
			{Method: http.MethodPost, Path: "/webhooks/payments", Handler: h.Webhook.PaymentEvent},
		})

		tenant := apiGroup.Group("")
		tenant.Use(authMiddleware.RequireAuth())
		addRoutes(tenant, []route{
			{Method: http.MethodPost, Path: "/placements", Handler: h.Placement.Purchase},
			{Method: http.MethodGet, Path: "/placements", Handler: h.Placement.List},
			{Method: http.MethodPost, Path: "/placements/submissions", Handler: h.Placement.Submit},
			{Method: http.MethodGet, Path: "/placements/:id", Handler: h.Placement.Get},
			{Method: http.MethodPost, Path: "/placements/:id/pay", Handler: h.Placement.Pay},
			{Method: http.MethodPost, Path: "/placements/:id/confirm", Handler: h.Placement.Confirm},
			{Method: http.MethodPost, Path: "/waitlist", Handler: h.Placement.JoinWaitlist},
			{Method: http.MethodGet, Path: "/capacity", Handler: h.Placement.Availability},
		})

		admin := apiGroup.Group("/admin")
		admin.Use(authMiddleware.RequireAuth())
		{
			requireAdmin := []gin.HandlerFunc{authMiddleware.RequireAdmin()}
			addRoutes(admin, []route{
				{Method: http.MethodPost, Path: "/placements", Handler: h.Admin.Assign, Mw: requireAdmin},
				{Method: http.MethodPost, Path: "/placements/:id/approve", Handler: h.Admin.Approve, Mw: requireAdmin},
				{Method: http.MethodPost, Path: "/placements/:id/reject", Handler: h.Admin.Reject, Mw: requireAdmin},
				{Method: http.MethodPost, Path: "/placements/:id/metrics", Handler: h.Admin.RecordEngagement, Mw: requireAdmin},
			})
		}
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
