package notes

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/inkpadhq/inkpad/internal/apperrors"
)

// NormalizeTagNames maps free-text tag input to the canonical set: trimmed,
// lowercased, empties dropped, duplicates removed preserving first
// occurrence. The tag budget applies to the normalized set, so
// ["Go", "go", " GO "] spends a single slot.
func NormalizeTagNames(raw []string) ([]string, error) {
	normalized := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, name := range raw {
		canonical := strings.ToLower(strings.TrimSpace(name))
		if canonical == "" {
			continue
		}
		if len(canonical) > maxTagNameLength {
			return nil, apperrors.Validation(fmt.Sprintf("Tag name cannot exceed %d characters", maxTagNameLength))
		}
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}
		normalized = append(normalized, canonical)
	}
	if len(normalized) > maxTagsPerNote {
		return nil, apperrors.Validation(fmt.Sprintf("Maximum %d tags allowed per note", maxTagsPerNote))
	}
	return normalized, nil
}

// resolveTags maps canonical names to Tag rows, creating missing ones inside
// the caller's transaction so a rolled-back note write also rolls back any
// tag rows it minted.
func resolveTags(tx *gorm.DB, names []string) ([]Tag, error) {
	tags := make([]Tag, 0, len(names))
	for _, name := range names {
		var tag Tag
		err := tx.Where("name = ?", name).Take(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = Tag{Name: name}
			if err := tx.Create(&tag).Error; err != nil {
				return nil, fmt.Errorf("notes: tag insert failed: %w", err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("notes: tag lookup failed: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
