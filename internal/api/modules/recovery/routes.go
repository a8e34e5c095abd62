package recovery_module

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the routes for the recovery module
func RegisterRoutes(g *gin.RouterGroup) {
	group := g.Group("/recovery")

	group.GET("/checkpoints", ListCheckpoints)                // Scan for recoverable checkpoints
	group.POST("/checkpoints/:id/promote", PromoteCheckpoint) // Reconstruct and claim a checkpoint
	group.POST("/checkpoints/:id/discard", DiscardCheckpoint) // Archive a checkpoint
}
