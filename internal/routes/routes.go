// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"sensaur-hub/internal/config"
	"sensaur-hub/internal/database"
	"sensaur-hub/internal/handler"
	"sensaur-hub/internal/middleware"
	"sensaur-hub/internal/repository"
	"sensaur-hub/internal/service"
	"sensaur-hub/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config           *config.Config
	logger           *zap.Logger
	db               *database.DB
	hubService       *service.HubService
	discoveryService *service.DiscoveryService
	readings         repository.ReadingRepository
	connections      *handler.ConnectionManager
	eventBus         *handler.EventBus
}

// NewRouter creates a new router instance. db and readings are nil when
// persistence is disabled.
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	db *database.DB,
	hubService *service.HubService,
	discoveryService *service.DiscoveryService,
	readings repository.ReadingRepository,
	connections *handler.ConnectionManager,
	eventBus *handler.EventBus,
) *Router {
	return &Router{
		config:           config,
		logger:           logger,
		db:               db,
		hubService:       hubService,
		discoveryService: discoveryService,
		readings:         readings,
		connections:      connections,
		eventBus:         eventBus,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.db, r.hubService, r.config, r.logger)
	hubHandler := handler.NewHubHandler(r.hubService, r.readings, r.logger)
	discoveryHandler := handler.NewDiscoveryHandler(r.discoveryService, r.logger)
	wsHandler := handler.NewWebSocketHandler(
		r.connections,
		r.eventBus,
		r.hubService,
		r.hubService.Hub().Topics(),
		r.config.Security.AllowedOrigins,
		r.logger,
	)

	// Health check routes
	healthHandler.RegisterRoutes(router)

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	hubHandler.RegisterRoutes(apiV1)
	discoveryHandler.RegisterRoutes(apiV1)
	apiV1.GET("/ws/stats", wsHandler.Stats)

	// WebSocket routes
	wsHandler.RegisterRoutes(router)

	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
