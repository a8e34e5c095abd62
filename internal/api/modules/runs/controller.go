package runs_module

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ethanbaker/transcribe/internal/supervisor"
	"github.com/ethanbaker/transcribe/pkg/sdk"
)

// StartRun handles POST requests to start a new transcription run
func StartRun(c *gin.Context) {
	// Parse request body
	var req sdk.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err.Error()).AsGinResponse())
		return
	}

	service := GetService()

	run, err := service.Start(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, supervisor.ErrAlreadyRunning):
			c.JSON(sdk.NewErrorResponse(http.StatusConflict, "A run is already active for this audio file", err.Error()).AsGinResponse())
		case errors.Is(err, supervisor.ErrNoSlot):
			c.JSON(sdk.NewErrorResponse(http.StatusTooManyRequests, "All worker slots are busy", err.Error()).AsGinResponse())
		default:
			c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to start run", err.Error()).AsGinResponse())
		}
		return
	}

	c.JSON(sdk.NewSuccessResponse("Run started successfully", toSDKRun(run, true)).AsGinResponse())
}

// ListRuns handles GET requests to list active runs
func ListRuns(c *gin.Context) {
	service := GetService()

	var runs []sdk.Run
	for _, run := range service.List() {
		runs = append(runs, toSDKRun(run, true))
	}

	c.JSON(sdk.NewSuccessResponse("Runs retrieved successfully", runs).AsGinResponse())
}

// GetRunStatus handles GET requests to retrieve the run for an audio path
func GetRunStatus(c *gin.Context) {
	audioPath := c.Query("audio")
	if audioPath == "" {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Missing query parameter 'audio'", nil).AsGinResponse())
		return
	}

	service := GetService()

	run, ok := service.Get(audioPath)
	if !ok {
		c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "No active run for this audio file", nil).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Run retrieved successfully", toSDKRun(run, true)).AsGinResponse())
}

// CancelRun handles POST requests to cancel the run for an audio path
func CancelRun(c *gin.Context) {
	audioPath := c.Query("audio")
	if audioPath == "" {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Missing query parameter 'audio'", nil).AsGinResponse())
		return
	}

	service := GetService()

	if err := service.Cancel(audioPath); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "No active run for this audio file", err.Error()).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccess("Run cancelled successfully").AsGinResponse())
}
