package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:notes_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Note{}, &Tag{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestRepository(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	repo, err := NewRepository(db)
	if err != nil {
		t.Fatalf("failed to construct repository: %v", err)
	}
	return repo, db
}

// memoryCache implements Cache over a map, storing JSON exactly as the Redis
// store does so stale-entry behavior is observable in tests.
type memoryCache struct {
	data     map[string]string
	disabled bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]string{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) bool {
	if c.disabled {
		return false
	}
	payload, ok := c.data[key]
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(payload), dest) == nil
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) bool {
	if c.disabled {
		return false
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return false
	}
	c.data[key] = string(payload)
	return true
}

func (c *memoryCache) Delete(_ context.Context, key string) bool {
	if c.disabled {
		return false
	}
	delete(c.data, key)
	return true
}

func (c *memoryCache) ClearPattern(_ context.Context, pattern string) int {
	if c.disabled {
		return 0
	}
	cleared := 0
	for key := range c.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.data, key)
			cleared++
		}
	}
	return cleared
}

func newTestService(t *testing.T) (*Service, *Repository, *memoryCache) {
	t.Helper()

	repo, _ := newTestRepository(t)
	store := newMemoryCache()
	service, err := NewService(ServiceConfig{
		Repository: repo,
		Cache:      store,
		NoteTTL:    10 * time.Minute,
		ListTTL:    5 * time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service, repo, store
}

func mustCreate(t *testing.T, repo *Repository, userID uint, title, content string, tags []string) Note {
	t.Helper()
	note, err := repo.Create(context.Background(), userID, title, content, tags)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	return note
}
