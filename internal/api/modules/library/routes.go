package library_module

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the routes for the library module
func RegisterRoutes(g *gin.RouterGroup) {
	group := g.Group("/library")

	group.GET("/entries", ListEntries)          // List all cataloged transcripts
	group.GET("/entries/search", SearchEntries) // Search the catalog
	group.GET("/entries/:uuid", GetEntry)       // Get a single entry by UUID
	group.DELETE("/entries/:uuid", DeleteEntry) // Remove an entry from the catalog
}
