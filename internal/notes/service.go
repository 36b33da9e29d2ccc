package notes

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/inkpadhq/inkpad/internal/cache"
)

var (
	errMissingRepository = errors.New("notes: repository is required")
	errMissingCache      = errors.New("notes: cache is required")
)

const (
	defaultNoteTTL = 10 * time.Minute
	defaultListTTL = 5 * time.Minute
)

// Cache is the facade's view of the cache layer. Implementations are
// best-effort: a false or zero return means "treat as miss", never an error.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool
	Delete(ctx context.Context, key string) bool
	ClearPattern(ctx context.Context, pattern string) int
}

// TagView is the serialized form of a tag inside API payloads and cache
// entries.
type TagView struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NoteView is the serialized form of a note. Cached entries hold exactly
// this shape, so a cache hit can be returned verbatim.
type NoteView struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UserID    uint      `json:"user_id"`
	Tags      []TagView `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NotePage is one page of a listing or search result.
type NotePage struct {
	Notes      []NoteView `json:"notes"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
	TotalPages int        `json:"total_pages"`
}

// CreateInput carries the fields of a new note.
type CreateInput struct {
	Title   string
	Content string
	Tags    []string
}

// ServiceConfig describes the facade dependencies.
type ServiceConfig struct {
	Repository *Repository
	Cache      Cache
	NoteTTL    time.Duration
	ListTTL    time.Duration
	Logger     *zap.Logger
}

// Service sequences repository calls with cache population and invalidation.
// Reads are cache-first; every mutation clears the owner's listing cache
// after — and only after — the repository transaction has committed.
type Service struct {
	repo    *Repository
	cache   Cache
	noteTTL time.Duration
	listTTL time.Duration
	logger  *zap.Logger
}

// NewService constructs the note service facade.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repository == nil {
		return nil, errMissingRepository
	}
	if cfg.Cache == nil {
		return nil, errMissingCache
	}
	if cfg.NoteTTL <= 0 {
		cfg.NoteTTL = defaultNoteTTL
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = defaultListTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    cfg.Repository,
		cache:   cfg.Cache,
		noteTTL: cfg.NoteTTL,
		listTTL: cfg.ListTTL,
		logger:  logger,
	}, nil
}

// GetNote returns a single note, serving the cached payload verbatim when
// present. A stale entry is returned as-is until its TTL or an invalidation
// catches up; that staleness window is part of the contract.
func (s *Service) GetNote(ctx context.Context, noteID, userID uint) (NoteView, error) {
	key := cache.NoteKey(noteID, userID)

	var cached NoteView
	if s.cache.Get(ctx, key, &cached) {
		s.logger.Debug("note cache hit", zap.String("key", key))
		return cached, nil
	}

	note, err := s.repo.Get(ctx, noteID, userID)
	if err != nil {
		return NoteView{}, err
	}

	view := newNoteView(note)
	s.cache.Set(ctx, key, view, s.noteTTL)
	return view, nil
}

// ListNotes returns one cached-or-computed page of the owner's notes. Page
// numbers start at 1.
func (s *Service) ListNotes(ctx context.Context, userID uint, page, perPage int, tagFilter string) (NotePage, error) {
	page, perPage = clampPagination(page, perPage)
	key := cache.NoteListKey(userID, page, tagFilter)

	var cached NotePage
	if s.cache.Get(ctx, key, &cached) {
		s.logger.Debug("note list cache hit", zap.String("key", key))
		return cached, nil
	}

	result, total, err := s.repo.List(ctx, userID, (page-1)*perPage, perPage, tagFilter)
	if err != nil {
		return NotePage{}, err
	}

	pageView := newNotePage(result, total, page, perPage)
	s.cache.Set(ctx, key, pageView, s.listTTL)
	return pageView, nil
}

// SearchNotes runs a substring search over the owner's notes. Search pages
// are never cached: the query parameter gives the key space unbounded
// cardinality, unlike the page/tag-bounded listing keys.
func (s *Service) SearchNotes(ctx context.Context, userID uint, query string, page, perPage int) (NotePage, error) {
	page, perPage = clampPagination(page, perPage)

	result, total, err := s.repo.Search(ctx, userID, query, (page-1)*perPage, perPage)
	if err != nil {
		return NotePage{}, err
	}
	return newNotePage(result, total, page, perPage), nil
}

// CreateNote persists a note, then populates its single-note cache entry and
// drops every cached listing page for the owner, which would otherwise serve
// pages that silently miss the new note until TTL expiry.
func (s *Service) CreateNote(ctx context.Context, userID uint, input CreateInput) (NoteView, error) {
	note, err := s.repo.Create(ctx, userID, input.Title, input.Content, input.Tags)
	if err != nil {
		return NoteView{}, err
	}

	view := newNoteView(note)
	s.cache.Set(ctx, cache.NoteKey(note.ID, userID), view, s.noteTTL)
	s.invalidateListings(ctx, userID)
	return view, nil
}

// UpdateNote applies a partial update, then invalidates the stale single-note
// entry and the owner's listing pages before repopulating the single-note key
// with the fresh record. Cache work starts only after the repository commit.
func (s *Service) UpdateNote(ctx context.Context, noteID, userID uint, input UpdateInput) (NoteView, error) {
	note, err := s.repo.Update(ctx, noteID, userID, input)
	if err != nil {
		return NoteView{}, err
	}

	key := cache.NoteKey(noteID, userID)
	s.cache.Delete(ctx, key)
	s.invalidateListings(ctx, userID)

	view := newNoteView(note)
	s.cache.Set(ctx, key, view, s.noteTTL)
	return view, nil
}

// DeleteNote removes the note, its single-note cache entry, and the owner's
// listing pages.
func (s *Service) DeleteNote(ctx context.Context, noteID, userID uint) error {
	if err := s.repo.Delete(ctx, noteID, userID); err != nil {
		return err
	}

	s.cache.Delete(ctx, cache.NoteKey(noteID, userID))
	s.invalidateListings(ctx, userID)
	return nil
}

func (s *Service) invalidateListings(ctx context.Context, userID uint) {
	cleared := s.cache.ClearPattern(ctx, cache.NoteListPattern(userID))
	if cleared > 0 {
		s.logger.Debug("note list cache invalidated",
			zap.Uint("user_id", userID),
			zap.Int("cleared", cleared))
	}
}

func newNoteView(note Note) NoteView {
	tags := make([]TagView, 0, len(note.Tags))
	for _, tag := range note.Tags {
		tags = append(tags, TagView{ID: tag.ID, Name: tag.Name, CreatedAt: tag.CreatedAt})
	}
	return NoteView{
		ID:        note.ID,
		Title:     note.Title,
		Content:   note.Content,
		UserID:    note.UserID,
		Tags:      tags,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
}

func newNotePage(result []Note, total int64, page, perPage int) NotePage {
	views := make([]NoteView, 0, len(result))
	for _, note := range result {
		views = append(views, newNoteView(note))
	}
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return NotePage{
		Notes:      views,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}
}

func clampPagination(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
