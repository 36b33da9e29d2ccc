package notes

import "time"

const (
	maxTitleLength   = 200
	maxTagNameLength = 50
	maxTagsPerNote   = 10
)

// Note is a user-owned note with an unordered set of tags. The note_tags
// join rows belong to the note and go with it on delete; tag rows are shared
// and never deleted.
type Note struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	Title     string    `gorm:"column:title;size:200;not null;index"`
	Content   string    `gorm:"column:content;type:text;not null"`
	UserID    uint      `gorm:"column:user_id;not null;index;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
	Tags      []Tag     `gorm:"many2many:note_tags;constraint:OnDelete:CASCADE"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}

// Tag is a canonical lowercase label. Rows are created lazily on first
// reference and persist even when no note references them any longer.
type Tag struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;size:50;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Tag) TableName() string {
	return "tags"
}
