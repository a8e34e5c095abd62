package library

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Store interface defines methods for catalog persistence
type Store interface {
	CreateEntry(ctx context.Context, entry *Entry) error
	GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListEntries(ctx context.Context) ([]*Entry, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	SearchEntries(ctx context.Context, query string) ([]*Entry, error)
	DeleteEntry(ctx context.Context, id uuid.UUID) error
}

// MySqlStore handles catalog persistence using GORM
type MySqlStore struct {
	db *gorm.DB
}

// NewMySqlStore creates a new catalog store with GORM connection
func NewMySqlStore(databaseURL string) (*MySqlStore, error) {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &MySqlStore{db: db}

	// Auto-migrate tables
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return store, nil
}

// CreateEntry inserts a new entry into the catalog
func (s *MySqlStore) CreateEntry(ctx context.Context, entry *Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Create(entry)
	if result.Error != nil {
		return fmt.Errorf("failed to create entry: %w", result.Error)
	}

	return nil
}

// GetEntry retrieves an entry by ID
func (s *MySqlStore) GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	var entry Entry
	result := s.db.WithContext(ctx).First(&entry, "id = ?", id)

	if result.Error != nil {
		// Handle not found error
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("entry not found")
		}
		// Handle generic errors
		return nil, fmt.Errorf("failed to get entry: %w", result.Error)
	}

	return &entry, nil
}

// ListEntries retrieves all entries, newest first
func (s *MySqlStore) ListEntries(ctx context.Context) ([]*Entry, error) {
	var entries []*Entry
	result := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&entries)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to query entries: %w", result.Error)
	}

	return entries, nil
}

// UpdateStatus changes the status of an entry (e.g. partial -> complete
// after an interrupted run was resumed)
func (s *MySqlStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	result := s.db.WithContext(ctx).Model(&Entry{}).Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update entry status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("entry not found")
	}

	return nil
}

// SearchEntries performs substring search across audio path, case
// number, participant name and notes
func (s *MySqlStore) SearchEntries(ctx context.Context, query string) ([]*Entry, error) {
	var entries []*Entry
	searchPattern := "%" + query + "%"

	result := s.db.WithContext(ctx).
		Where("audio_path LIKE ? OR case_number LIKE ? OR participant_name LIKE ? OR notes LIKE ?",
			searchPattern, searchPattern, searchPattern, searchPattern).
		Order("created_at DESC").Limit(50).Find(&entries)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to search entries: %w", result.Error)
	}

	return entries, nil
}

// DeleteEntry removes an entry from the catalog
func (s *MySqlStore) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Entry{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("entry not found")
	}

	return nil
}

// GetDB returns the underlying GORM database connection
func (s *MySqlStore) GetDB() *gorm.DB {
	return s.db
}

// Close closes the database connection
func (s *MySqlStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}
	return sqlDB.Close()
}

// InMemoryStore creates a new in-memory catalog (for one-off runs and tests)
type InMemoryStore struct {
	entries map[uuid.UUID]*Entry
	mu      sync.RWMutex
}

// NewInMemoryStore creates a new in-memory catalog store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[uuid.UUID]*Entry),
	}
}

// CreateEntry inserts a new entry into the catalog
func (s *InMemoryStore) CreateEntry(ctx context.Context, entry *Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.ID]; exists {
		return fmt.Errorf("entry already exists")
	}

	// Set timestamps
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	stored := *entry
	s.entries[entry.ID] = &stored

	return nil
}

// GetEntry retrieves an entry by ID
func (s *InMemoryStore) GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[id]
	if !exists {
		return nil, fmt.Errorf("entry not found")
	}

	copied := *entry
	return &copied, nil
}

// ListEntries retrieves all entries, newest first
func (s *InMemoryStore) ListEntries(ctx context.Context) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		copied := *entry
		entries = append(entries, &copied)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	return entries, nil
}

// UpdateStatus changes the status of an entry
func (s *InMemoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[id]
	if !exists {
		return fmt.Errorf("entry not found")
	}

	entry.Status = status
	entry.UpdatedAt = time.Now().UTC()

	return nil
}

// SearchEntries performs case-insensitive substring search
func (s *InMemoryStore) SearchEntries(ctx context.Context, query string) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)

	var entries []*Entry
	for _, entry := range s.entries {
		haystack := strings.ToLower(strings.Join([]string{
			entry.AudioPath, entry.CaseNumber, entry.ParticipantName, entry.Notes,
		}, "\n"))
		if strings.Contains(haystack, needle) {
			copied := *entry
			entries = append(entries, &copied)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	// Limit to 50 results like MySQL version
	if len(entries) > 50 {
		entries = entries[:50]
	}

	return entries, nil
}

// DeleteEntry removes an entry from the catalog
func (s *InMemoryStore) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; !exists {
		return fmt.Errorf("entry not found")
	}

	delete(s.entries, id)

	return nil
}
