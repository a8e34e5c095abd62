package runs_module

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the routes for the runs module
func RegisterRoutes(g *gin.RouterGroup) {
	group := g.Group("/runs")

	group.POST("", StartRun)           // Start a new transcription run
	group.GET("", ListRuns)            // List active runs
	group.GET("/status", GetRunStatus) // Get the run for an audio path
	group.POST("/cancel", CancelRun)   // Cancel the run for an audio path
}
