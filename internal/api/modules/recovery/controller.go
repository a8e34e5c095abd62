package recovery_module

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ethanbaker/transcribe/pkg/sdk"
)

// ListCheckpoints handles GET requests to scan for recoverable checkpoints
func ListCheckpoints(c *gin.Context) {
	service := GetService()

	manifests, err := service.List()
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to scan checkpoints", err.Error()).AsGinResponse())
		return
	}

	resp := sdk.RecoveryListResponse{Count: len(manifests)}
	for _, m := range manifests {
		resp.Manifests = append(resp.Manifests, toSDKManifest(m))
	}

	c.JSON(sdk.NewSuccessResponse("Checkpoints retrieved successfully", resp).AsGinResponse())
}

// PromoteCheckpoint handles POST requests to reconstruct and claim a checkpoint
func PromoteCheckpoint(c *gin.Context) {
	id := c.Param("id")

	service := GetService()

	tr, claimedPath, err := service.Promote(id)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Failed to promote checkpoint", err.Error()).AsGinResponse())
		return
	}

	resp := sdk.PromoteResponse{
		Transcript:  tr,
		ClaimedPath: claimedPath,
	}

	c.JSON(sdk.NewSuccessResponse("Checkpoint promoted successfully", resp).AsGinResponse())
}

// DiscardCheckpoint handles POST requests to archive a checkpoint
func DiscardCheckpoint(c *gin.Context) {
	id := c.Param("id")

	service := GetService()

	if err := service.Discard(id); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Failed to discard checkpoint", err.Error()).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccess("Checkpoint discarded successfully").AsGinResponse())
}
