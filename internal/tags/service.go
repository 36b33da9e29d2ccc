package tags

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/inkpadhq/inkpad/internal/notes"
)

var errMissingDatabase = errors.New("tags: database handle is required")

// TagCount is a tag together with the number of the caller's notes carrying
// it. Tags referenced by no note at all never appear here: the inner join
// through note_tags keeps orphaned rows invisible without deleting them.
type TagCount struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	NoteCount int64     `json:"note_count"`
}

// Service lists the tags in use by a given owner.
type Service struct {
	db *gorm.DB
}

// NewService constructs the tag listing service.
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	return &Service{db: db}, nil
}

// ListForUser returns the owner's tags ordered by descending note count,
// plus the distinct total for pagination.
func (s *Service) ListForUser(ctx context.Context, userID uint, offset, limit int) ([]TagCount, int64, error) {
	joined := func() *gorm.DB {
		return s.db.WithContext(ctx).
			Model(&notes.Tag{}).
			Joins("JOIN note_tags ON note_tags.tag_id = tags.id").
			Joins("JOIN notes ON notes.id = note_tags.note_id").
			Where("notes.user_id = ?", userID)
	}

	var total int64
	if err := joined().Distinct("tags.id").Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("tags: count failed: %w", err)
	}

	var result []TagCount
	err := joined().
		Select("tags.id, tags.name, tags.created_at, COUNT(notes.id) AS note_count").
		Group("tags.id").
		Order("note_count DESC").
		Offset(offset).
		Limit(limit).
		Scan(&result).Error
	if err != nil {
		return nil, 0, fmt.Errorf("tags: list failed: %w", err)
	}
	return result, total, nil
}
