package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/inkpadhq/inkpad/internal/apperrors"
)

var errMissingDatabase = errors.New("notes: database handle is required")

// Repository owns note CRUD against the relational store. Tag associations
// are loaded with an explicit prefetch on every read path; nothing here
// relies on lazy loading.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs the note repository.
func NewRepository(db *gorm.DB) (*Repository, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	return &Repository{db: db}, nil
}

// UpdateInput carries a partial note update. Nil fields are left untouched;
// a non-nil Tags slice fully replaces the association set.
type UpdateInput struct {
	Title   *string
	Content *string
	Tags    *[]string
}

// Create inserts a note and its normalized tag associations in one
// transaction. Tag rows minted for first-seen names roll back with the note
// on failure.
func (r *Repository) Create(ctx context.Context, userID uint, title, content string, tagNames []string) (Note, error) {
	title, err := validateTitle(title)
	if err != nil {
		return Note{}, err
	}
	content, err = validateContent(content)
	if err != nil {
		return Note{}, err
	}
	names, err := NormalizeTagNames(tagNames)
	if err != nil {
		return Note{}, err
	}

	note := Note{Title: title, Content: content, UserID: userID}
	txErr := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&note).Error; err != nil {
			return fmt.Errorf("notes: insert failed: %w", err)
		}
		if len(names) == 0 {
			return nil
		}
		tags, err := resolveTags(tx, names)
		if err != nil {
			return err
		}
		if err := tx.Model(&note).Association("Tags").Replace(tags); err != nil {
			return fmt.Errorf("notes: tag association failed: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return Note{}, txErr
	}

	return r.Get(ctx, note.ID, userID)
}

// Get loads a note with its tag set. Existence is checked before ownership
// so a missing id and a foreign note produce distinct errors.
func (r *Repository) Get(ctx context.Context, noteID, userID uint) (Note, error) {
	return get(r.db.WithContext(ctx), noteID, userID)
}

func get(db *gorm.DB, noteID, userID uint) (Note, error) {
	var note Note
	err := db.Preload("Tags").Take(&note, "id = ?", noteID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Note{}, apperrors.NotFound(fmt.Sprintf("Note with id %d not found", noteID))
	}
	if err != nil {
		return Note{}, fmt.Errorf("notes: lookup failed: %w", err)
	}
	if note.UserID != userID {
		return Note{}, apperrors.Authorization("You don't have permission to access this note")
	}
	return note, nil
}

// List returns one page of the owner's notes, newest first, plus the
// authoritative total for pagination math. A non-empty tagFilter restricts
// the result to notes carrying that canonical tag.
func (r *Repository) List(ctx context.Context, userID uint, offset, limit int, tagFilter string) ([]Note, int64, error) {
	scope := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&Note{}).Where("notes.user_id = ?", userID)
		if tagFilter != "" {
			query = query.
				Joins("JOIN note_tags ON note_tags.note_id = notes.id").
				Joins("JOIN tags ON tags.id = note_tags.tag_id").
				Where("tags.name = ?", strings.ToLower(strings.TrimSpace(tagFilter)))
		}
		return query
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("notes: count failed: %w", err)
	}

	var result []Note
	err := scope().
		Preload("Tags").
		Order("notes.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&result).Error
	if err != nil {
		return nil, 0, fmt.Errorf("notes: list failed: %w", err)
	}
	return result, total, nil
}

// Search matches the query as a case-insensitive substring of title or
// content, scoped to the owner and ordered like List.
func (r *Repository) Search(ctx context.Context, userID uint, query string, offset, limit int) ([]Note, int64, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	scope := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&Note{}).
			Where("user_id = ? AND (LOWER(title) LIKE ? OR LOWER(content) LIKE ?)", userID, pattern, pattern)
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("notes: search count failed: %w", err)
	}

	var result []Note
	err := scope().
		Preload("Tags").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&result).Error
	if err != nil {
		return nil, 0, fmt.Errorf("notes: search failed: %w", err)
	}
	return result, total, nil
}

// Update applies the provided fields after the existence and ownership
// checks. When tags are provided the association set is replaced wholesale,
// never merged.
func (r *Repository) Update(ctx context.Context, noteID, userID uint, input UpdateInput) (Note, error) {
	txErr := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		note, err := get(tx, noteID, userID)
		if err != nil {
			return err
		}

		if input.Title != nil {
			title, err := validateTitle(*input.Title)
			if err != nil {
				return err
			}
			note.Title = title
		}
		if input.Content != nil {
			content, err := validateContent(*input.Content)
			if err != nil {
				return err
			}
			note.Content = content
		}

		if err := tx.Omit("Tags").Save(&note).Error; err != nil {
			return fmt.Errorf("notes: update failed: %w", err)
		}

		if input.Tags != nil {
			names, err := NormalizeTagNames(*input.Tags)
			if err != nil {
				return err
			}
			tags, err := resolveTags(tx, names)
			if err != nil {
				return err
			}
			if err := tx.Model(&note).Association("Tags").Replace(tags); err != nil {
				return fmt.Errorf("notes: tag replacement failed: %w", err)
			}
		}
		return nil
	})
	if txErr != nil {
		return Note{}, txErr
	}

	return r.Get(ctx, noteID, userID)
}

// Delete removes the note and its join rows. Tag rows themselves survive;
// orphans just stop showing up in counted listings.
func (r *Repository) Delete(ctx context.Context, noteID, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		note, err := get(tx, noteID, userID)
		if err != nil {
			return err
		}
		if err := tx.Model(&note).Association("Tags").Clear(); err != nil {
			return fmt.Errorf("notes: association clear failed: %w", err)
		}
		if err := tx.Delete(&note).Error; err != nil {
			return fmt.Errorf("notes: delete failed: %w", err)
		}
		return nil
	})
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", apperrors.Validation("Title cannot be empty")
	}
	if len(title) > maxTitleLength {
		return "", apperrors.Validation(fmt.Sprintf("Title cannot exceed %d characters", maxTitleLength))
	}
	return title, nil
}

func validateContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", apperrors.Validation("Content cannot be empty")
	}
	return content, nil
}
