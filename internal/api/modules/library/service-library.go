package library_module

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ethanbaker/transcribe/internal/library"
	"github.com/ethanbaker/transcribe/pkg/sdk"
	"github.com/ethanbaker/transcribe/pkg/utils"
)

// LibraryService wraps the transcript catalog store
type LibraryService struct {
	store library.Store
	mutex sync.RWMutex
}

var libraryService *LibraryService

/** ---- INIT ---- */

// Init creates the library service. With MySQL settings present it
// persists to the database; otherwise the catalog lives in memory for
// the lifetime of the process.
func Init(cfg *utils.Config) error {
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	libraryService = &LibraryService{store: store}
	return nil
}

// GetService returns the initialized library service
func GetService() *LibraryService {
	return libraryService
}

func newStore(cfg *utils.Config) (library.Store, error) {
	if cfg.Get("MYSQL_DATABASE") == "" {
		return library.NewInMemoryStore(), nil
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.Get("MYSQL_USER"),
		cfg.Get("MYSQL_ROOT_PASSWORD"),
		cfg.Get("MYSQL_HOST"),
		cfg.GetWithDefault("MYSQL_PORT", "3306"),
		cfg.Get("MYSQL_DATABASE"),
	)

	store, err := library.NewMySqlStore(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog store: %w", err)
	}
	return store, nil
}

/** ---- OPERATIONS ---- */

// Register adds a finished run to the catalog
func (s *LibraryService) Register(ctx context.Context, entry *library.Entry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.store.CreateEntry(ctx, entry)
}

// List returns all cataloged entries, newest first
func (s *LibraryService) List(ctx context.Context) ([]*library.Entry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.store.ListEntries(ctx)
}

// Get returns one entry by ID
func (s *LibraryService) Get(ctx context.Context, id uuid.UUID) (*library.Entry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.store.GetEntry(ctx, id)
}

// Search returns entries matching the query
func (s *LibraryService) Search(ctx context.Context, query string) ([]*library.Entry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.store.SearchEntries(ctx, query)
}

// Delete removes one entry by ID
func (s *LibraryService) Delete(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.store.DeleteEntry(ctx, id)
}

// toSDKEntry converts a catalog entry to its wire representation
func toSDKEntry(entry *library.Entry) sdk.LibraryEntry {
	return sdk.LibraryEntry{
		ID:              entry.ID.String(),
		AudioPath:       entry.AudioPath,
		Model:           entry.Model,
		Status:          entry.Status,
		SegmentCount:    entry.SegmentCount,
		WordCount:       entry.WordCount,
		DurationSec:     entry.DurationSec,
		TranscriptPath:  entry.TranscriptPath,
		CheckpointPath:  entry.CheckpointPath,
		CaseNumber:      entry.CaseNumber,
		ParticipantName: entry.ParticipantName,
		Notes:           entry.Notes,
		CreatedAt:       entry.CreatedAt,
		UpdatedAt:       entry.UpdatedAt,
	}
}
