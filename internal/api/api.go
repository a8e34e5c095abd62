package api

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ethanbaker/transcribe/pkg/sdk"
	"github.com/ethanbaker/transcribe/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	health_module "github.com/ethanbaker/transcribe/internal/api/modules/health"
	library_module "github.com/ethanbaker/transcribe/internal/api/modules/library"
	recovery_module "github.com/ethanbaker/transcribe/internal/api/modules/recovery"
	runs_module "github.com/ethanbaker/transcribe/internal/api/modules/runs"
)

func Start(cfg *utils.Config) {
	// Initialized configuration settings
	port := cfg.GetWithDefault("API_PORT", "8080")

	// Add app level settings/routes
	engine := gin.Default()
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Route not found", nil).AsGinResponse())
	})

	// Add trusted proxies
	engine.SetTrustedProxies(nil)

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.GetWithDefault("CORS_ALLOWED_ORIGINS", "*"), ","),
		AllowMethods:     []string{"OPTIONS", "GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Base group '/api' for all API routes
	baseGroup := engine.Group("/api")

	// Adding custom modules
	health_module.RegisterRoutes(baseGroup)

	// The runs module catalogs finished runs through the library
	// module, so the library comes up first
	if err := library_module.Init(cfg); err != nil {
		log.Fatal("[API-MAIN]: Failed to initialize library module: ", err)
	}
	library_module.RegisterRoutes(baseGroup)

	if err := recovery_module.Init(cfg); err != nil {
		log.Fatal("[API-MAIN]: Failed to initialize recovery module: ", err)
	}
	recovery_module.RegisterRoutes(baseGroup)

	if err := runs_module.Init(cfg); err != nil {
		log.Fatal("[API-MAIN]: Failed to initialize runs module: ", err)
	}
	runs_module.RegisterRoutes(baseGroup)

	// Then after performing initial setup, start the server
	if err := engine.Run(":" + port); err != nil {
		log.Fatal("[API-MAIN]: Failed to start server: ", err)
	}
}
