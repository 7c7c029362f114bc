package http

import (
	"github.com/gin-gonic/gin"

	"github.com/limglenaldin/ai-insurance-agent/internal/bootstrap"
	"github.com/limglenaldin/ai-insurance-agent/internal/transport/http/handler"
	"github.com/limglenaldin/ai-insurance-agent/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	if app.Config.App.GinMode != "" {
		gin.SetMode(app.Config.App.GinMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS(app.Config.CORS.AllowedOrigins))

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/", healthHandler.Root)
	router.GET("/health", healthHandler.Check)

	searchHandler := handler.NewSearchHandler(app.Search, app.Config.Search.MaxTopK)
	router.POST("/search", searchHandler.Search)

	if app.Documents != nil {
		documentsHandler := handler.NewDocumentsHandler(app.Documents)
		router.GET("/documents", documentsHandler.List)
	}

	return router
}
