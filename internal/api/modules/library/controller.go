package library_module

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ethanbaker/transcribe/pkg/sdk"
)

// ListEntries handles GET requests to list all cataloged transcripts
func ListEntries(c *gin.Context) {
	service := GetService()

	entries, err := service.List(c.Request.Context())
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to list entries", err.Error()).AsGinResponse())
		return
	}

	resp := sdk.LibraryListResponse{Count: len(entries)}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, toSDKEntry(entry))
	}

	c.JSON(sdk.NewSuccessResponse("Entries retrieved successfully", resp).AsGinResponse())
}

// SearchEntries handles GET requests to search the catalog
func SearchEntries(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Missing query parameter 'q'", nil).AsGinResponse())
		return
	}

	service := GetService()

	entries, err := service.Search(c.Request.Context(), query)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to search entries", err.Error()).AsGinResponse())
		return
	}

	resp := sdk.LibraryListResponse{Count: len(entries)}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, toSDKEntry(entry))
	}

	c.JSON(sdk.NewSuccessResponse("Entries retrieved successfully", resp).AsGinResponse())
}

// GetEntry handles GET requests to retrieve one entry by UUID
func GetEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Invalid entry UUID", err.Error()).AsGinResponse())
		return
	}

	service := GetService()

	entry, err := service.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Entry not found", err.Error()).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Entry retrieved successfully", toSDKEntry(entry)).AsGinResponse())
}

// DeleteEntry handles DELETE requests to remove an entry from the catalog
func DeleteEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Invalid entry UUID", err.Error()).AsGinResponse())
		return
	}

	service := GetService()

	if err := service.Delete(c.Request.Context(), id); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Entry not found", err.Error()).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccess("Entry deleted successfully").AsGinResponse())
}
