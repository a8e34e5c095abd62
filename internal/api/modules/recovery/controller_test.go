package recovery_module

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanbaker/transcribe/internal/checkpoint"
	"github.com/ethanbaker/transcribe/pkg/sdk"
	"github.com/ethanbaker/transcribe/pkg/transcript"
	"github.com/ethanbaker/transcribe/pkg/utils"
)

func parseBody(w *httptest.ResponseRecorder, out any) error {
	return json.Unmarshal(w.Body.Bytes(), out)
}

func setupRouter(t *testing.T, dir string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := utils.NewConfig(map[string]string{
		"CHECKPOINT_DIR":   dir,
		"JANITOR_SCHEDULE": "off",
	})
	require.Nil(t, Init(cfg))

	router := gin.New()
	RegisterRoutes(router.Group("/api"))
	return router
}

func writeCheckpoint(t *testing.T, dir, audio string, segments int, finalize bool) {
	t.Helper()

	writer, err := checkpoint.NewWriter(dir, checkpoint.Header{
		AudioPath: audio,
		Model:     "small",
		PID:       os.Getpid(),
		StartedAt: time.Now(),
	}, 1)
	require.Nil(t, err)

	for i := 0; i < segments; i++ {
		writer.Append(transcript.Segment{
			ID:    transcript.NewSegmentID(),
			Start: float64(i),
			End:   float64(i + 1),
			Text:  "segment",
		})
		_, err := writer.FlushIfDue()
		require.Nil(t, err)
	}

	if finalize {
		require.Nil(t, writer.Finalize())
	}
	require.Nil(t, writer.Close())
}

func listCheckpoints(t *testing.T, router *gin.Engine) sdk.RecoveryListResponse {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/recovery/checkpoints", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp sdk.ApiResponse[sdk.RecoveryListResponse]
	require.Nil(t, parseBody(w, &resp))
	return resp.Data
}

func TestListCheckpoints(t *testing.T) {
	dir := t.TempDir()
	router := setupRouter(t, dir)

	writeCheckpoint(t, dir, "/audio/a.wav", 2, false)

	data := listCheckpoints(t, router)
	require.Equal(t, 1, data.Count)
	assert.Equal(t, "/audio/a.wav", data.Manifests[0].AudioPath)
	assert.Equal(t, 2, data.Manifests[0].SegmentCount)
	assert.Equal(t, "partial", data.Manifests[0].Status)
}

func TestPromoteCheckpoint(t *testing.T) {
	dir := t.TempDir()
	router := setupRouter(t, dir)

	writeCheckpoint(t, dir, "/audio/a.wav", 3, true)

	data := listCheckpoints(t, router)
	require.Equal(t, 1, data.Count)
	id := data.Manifests[0].ID

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/recovery/checkpoints/"+id+"/promote", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp sdk.ApiResponse[sdk.PromoteResponse]
	require.Nil(t, parseBody(w, &resp))
	require.NotNil(t, resp.Data.Transcript)
	assert.Len(t, resp.Data.Transcript.Segments, 3)
	assert.Equal(t, transcript.StatusComplete, resp.Data.Transcript.Status)

	// The claimed file exists and the checkpoint no longer shows up
	_, err := os.Stat(resp.Data.ClaimedPath)
	assert.Nil(t, err)
	assert.Equal(t, 0, listCheckpoints(t, router).Count)
}

func TestPromoteUnknownID(t *testing.T) {
	router := setupRouter(t, t.TempDir())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/recovery/checkpoints/nope/promote", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDiscardCheckpoint(t *testing.T) {
	dir := t.TempDir()
	router := setupRouter(t, dir)

	writeCheckpoint(t, dir, "/audio/a.wav", 1, false)

	data := listCheckpoints(t, router)
	require.Equal(t, 1, data.Count)
	id := data.Manifests[0].ID

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/recovery/checkpoints/"+id+"/discard", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 0, listCheckpoints(t, router).Count)
}
