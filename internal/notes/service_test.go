package notes

import (
	"context"
	"testing"

	"github.com/inkpadhq/inkpad/internal/apperrors"
	"github.com/inkpadhq/inkpad/internal/cache"
)

func TestGetNotePopulatesCacheOnMiss(t *testing.T) {
	service, repo, store := newTestService(t)
	ctx := context.Background()

	note := mustCreate(t, repo, 1, "Cached", "content", []string{"go"})

	view, err := service.GetNote(ctx, note.ID, 1)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if view.Title != "Cached" || len(view.Tags) != 1 {
		t.Fatalf("unexpected view: %#v", view)
	}
	if _, ok := store.data[cache.NoteKey(note.ID, 1)]; !ok {
		t.Fatalf("expected single-note cache entry after miss")
	}
}

func TestGetNoteServesStaleCacheUntilInvalidated(t *testing.T) {
	service, repo, _ := newTestService(t)
	ctx := context.Background()

	note := mustCreate(t, repo, 1, "Original", "content", nil)
	if _, err := service.GetNote(ctx, note.ID, 1); err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}

	// Mutate the store behind the facade's back. The cached payload must be
	// returned verbatim, demonstrating the accepted staleness window.
	title := "Changed directly"
	if _, err := repo.Update(ctx, note.ID, 1, UpdateInput{Title: &title}); err != nil {
		t.Fatalf("unexpected repo update error: %v", err)
	}

	view, err := service.GetNote(ctx, note.ID, 1)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if view.Title != "Original" {
		t.Fatalf("expected stale cached title, got %q", view.Title)
	}
}

func TestUpdateNoteInvalidatesThenRepopulates(t *testing.T) {
	service, repo, store := newTestService(t)
	ctx := context.Background()

	note := mustCreate(t, repo, 1, "Before", "content", nil)
	if _, err := service.GetNote(ctx, note.ID, 1); err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if _, err := service.ListNotes(ctx, 1, 1, 10, ""); err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if _, ok := store.data[cache.NoteListKey(1, 1, "")]; !ok {
		t.Fatalf("expected listing page to be cached")
	}

	title := "After"
	if _, err := service.UpdateNote(ctx, note.ID, 1, UpdateInput{Title: &title}); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}

	// The updated read must never see the pre-update payload.
	view, err := service.GetNote(ctx, note.ID, 1)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if view.Title != "After" {
		t.Fatalf("expected fresh title after update, got %q", view.Title)
	}
	if _, ok := store.data[cache.NoteListKey(1, 1, "")]; ok {
		t.Fatalf("listing cache must be invalidated by update")
	}
}

func TestCreateNoteInvalidatesListingsAndPrimesNoteKey(t *testing.T) {
	service, _, store := newTestService(t)
	ctx := context.Background()

	if _, err := service.ListNotes(ctx, 1, 1, 10, ""); err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}

	view, err := service.CreateNote(ctx, 1, CreateInput{
		Title:   "Test Note",
		Content: "This is a test note content",
		Tags:    []string{"test", "python", "fastapi"},
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if len(view.Tags) != 3 {
		t.Fatalf("expected 3 tags on created view, got %d", len(view.Tags))
	}

	if _, ok := store.data[cache.NoteKey(view.ID, 1)]; !ok {
		t.Fatalf("expected single-note cache entry after create")
	}
	if _, ok := store.data[cache.NoteListKey(1, 1, "")]; ok {
		t.Fatalf("stale listing page must not survive a create")
	}

	// The next listing reflects the new note rather than the cached empty page.
	page, err := service.ListNotes(ctx, 1, 1, 10, "")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if page.Total != 1 || len(page.Notes) != 1 {
		t.Fatalf("expected fresh listing with the new note, got %#v", page)
	}
}

func TestDeleteNoteClearsCaches(t *testing.T) {
	service, repo, store := newTestService(t)
	ctx := context.Background()

	note := mustCreate(t, repo, 1, "Doomed", "content", nil)
	if _, err := service.GetNote(ctx, note.ID, 1); err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if _, err := service.ListNotes(ctx, 1, 1, 10, ""); err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}

	if err := service.DeleteNote(ctx, note.ID, 1); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	if _, ok := store.data[cache.NoteKey(note.ID, 1)]; ok {
		t.Fatalf("single-note entry must be deleted")
	}
	if _, ok := store.data[cache.NoteListKey(1, 1, "")]; ok {
		t.Fatalf("listing pages must be invalidated by delete")
	}

	_, err := service.GetNote(ctx, note.ID, 1)
	if code, ok := apperrors.CodeOf(err); !ok || code != apperrors.CodeNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestFailedWriteLeavesCacheUntouched(t *testing.T) {
	service, repo, store := newTestService(t)
	ctx := context.Background()

	note := mustCreate(t, repo, 1, "Stable", "content", nil)
	if _, err := service.GetNote(ctx, note.ID, 1); err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}

	blank := "   "
	_, err := service.UpdateNote(ctx, note.ID, 1, UpdateInput{Title: &blank})
	if code, ok := apperrors.CodeOf(err); !ok || code != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	// No invalidation after a failed write: the cached entry stays.
	if _, ok := store.data[cache.NoteKey(note.ID, 1)]; !ok {
		t.Fatalf("failed update must not touch the cache")
	}
}

func TestListNotesComputesPaginationFromAuthoritativeTotal(t *testing.T) {
	service, repo, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		mustCreate(t, repo, 1, "Note", "content", nil)
	}

	page1, err := service.ListNotes(ctx, 1, 1, 10, "")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if page1.Total != 15 || page1.TotalPages != 2 {
		t.Fatalf("expected total=15 total_pages=2, got %#v", page1)
	}
	if len(page1.Notes) != 10 {
		t.Fatalf("expected 10 notes on page 1, got %d", len(page1.Notes))
	}

	page2, err := service.ListNotes(ctx, 1, 2, 10, "")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(page2.Notes) != 5 {
		t.Fatalf("expected 5 notes on page 2, got %d", len(page2.Notes))
	}
}

func TestSearchNotesIsNeverCached(t *testing.T) {
	service, repo, store := newTestService(t)
	ctx := context.Background()

	mustCreate(t, repo, 1, "Python Programming Guide", "content", nil)
	mustCreate(t, repo, 1, "JavaScript Tutorial", "content", nil)
	mustCreate(t, repo, 1, "Python Advanced Topics", "content", nil)
	mustCreate(t, repo, 1, "Docker Basics", "content", nil)

	page, err := service.SearchNotes(ctx, 1, "Python", 1, 10)
	if err != nil {
		t.Fatalf("unexpected search error: %v", err)
	}
	if page.Total != 2 || len(page.Notes) != 2 {
		t.Fatalf("expected 2 matches, got %#v", page)
	}
	if len(store.data) != 0 {
		t.Fatalf("search results must not populate the cache, found %v", store.data)
	}
}

func TestServiceWorksWhenCacheIsUnavailable(t *testing.T) {
	service, repo, store := newTestService(t)
	store.disabled = true
	ctx := context.Background()

	note := mustCreate(t, repo, 1, "Resilient", "content", []string{"ops"})

	view, err := service.GetNote(ctx, note.ID, 1)
	if err != nil {
		t.Fatalf("reads must not fail without a cache: %v", err)
	}
	if view.Title != "Resilient" {
		t.Fatalf("unexpected view: %#v", view)
	}

	title := "Still resilient"
	if _, err := service.UpdateNote(ctx, note.ID, 1, UpdateInput{Title: &title}); err != nil {
		t.Fatalf("writes must not fail without a cache: %v", err)
	}
	if err := service.DeleteNote(ctx, note.ID, 1); err != nil {
		t.Fatalf("deletes must not fail without a cache: %v", err)
	}
}
