package server

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/inkpadhq/inkpad/internal/notes"
)

func createNote(t *testing.T, api *testAPI, token, title, content string, tagNames []string) notes.NoteView {
	t.Helper()

	response := api.do(t, http.MethodPost, "/api/v1/notes", token, map[string]interface{}{
		"title":   title,
		"content": content,
		"tags":    tagNames,
	})
	if response.Code != http.StatusCreated {
		t.Fatalf("expected 201 from create, got %d: %s", response.Code, response.Body.String())
	}
	var view notes.NoteView
	decodeBody(t, response, &view)
	return view
}

func TestNoteLifecycle(t *testing.T) {
	api := newTestAPI(t)
	token := api.registerAndLogin(t, "alice")

	created := createNote(t, api, token, "Meeting notes", "Quarterly planning", []string{"Work", " work ", "Planning"})
	if created.ID == 0 {
		t.Fatal("expected the created note to carry an id")
	}
	if len(created.Tags) != 2 {
		t.Fatalf("expected normalized tags [work planning], got %#v", created.Tags)
	}
	if created.Tags[0].Name != "work" || created.Tags[1].Name != "planning" {
		t.Fatalf("unexpected tag order or names: %#v", created.Tags)
	}

	response := api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/notes/%d", created.ID), token, nil)
	if response.Code != http.StatusOK {
		t.Fatalf("expected 200 from get, got %d", response.Code)
	}

	response = api.do(t, http.MethodPut, fmt.Sprintf("/api/v1/notes/%d", created.ID), token, map[string]interface{}{
		"title": "Renamed",
	})
	if response.Code != http.StatusOK {
		t.Fatalf("expected 200 from update, got %d: %s", response.Code, response.Body.String())
	}
	var updated notes.NoteView
	decodeBody(t, response, &updated)
	if updated.Title != "Renamed" || updated.Content != "Quarterly planning" {
		t.Fatalf("partial update must leave content untouched, got %#v", updated)
	}
	if len(updated.Tags) != 2 {
		t.Fatalf("update without tags must keep the tag set, got %#v", updated.Tags)
	}

	response = api.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/notes/%d", created.ID), token, nil)
	if response.Code != http.StatusNoContent {
		t.Fatalf("expected 204 from delete, got %d", response.Code)
	}

	response = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/notes/%d", created.ID), token, nil)
	if response.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", response.Code)
	}
}

func TestForeignNoteReturnsForbidden(t *testing.T) {
	api := newTestAPI(t)
	owner := api.registerAndLogin(t, "alice")
	intruder := api.registerAndLogin(t, "bob")

	created := createNote(t, api, owner, "Private", "Secret", nil)

	response := api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/notes/%d", created.ID), intruder, nil)
	if response.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a foreign note, got %d", response.Code)
	}
	if code := errorCode(t, response); code != "AUTHORIZATION_ERROR" {
		t.Fatalf("expected AUTHORIZATION_ERROR, got %s", code)
	}

	// A note that does not exist at all is a 404, not a 403.
	response = api.do(t, http.MethodGet, "/api/v1/notes/9999", intruder, nil)
	if response.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a missing note, got %d", response.Code)
	}
}

func TestListPaginationAndTagFilter(t *testing.T) {
	api := newTestAPI(t)
	token := api.registerAndLogin(t, "alice")

	for i := 0; i < 12; i++ {
		tagNames := []string{"bulk"}
		if i%2 == 0 {
			tagNames = append(tagNames, "even")
		}
		createNote(t, api, token, fmt.Sprintf("Note %02d", i), "content", tagNames)
	}

	response := api.do(t, http.MethodGet, "/api/v1/notes?page=2&per_page=5", token, nil)
	if response.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", response.Code)
	}
	var page notes.NotePage
	decodeBody(t, response, &page)
	if page.Total != 12 || page.Page != 2 || page.PerPage != 5 || page.TotalPages != 3 {
		t.Fatalf("unexpected page metadata: %#v", page)
	}
	if len(page.Notes) != 5 {
		t.Fatalf("expected 5 notes on page 2, got %d", len(page.Notes))
	}

	response = api.do(t, http.MethodGet, "/api/v1/notes?tag=EVEN", token, nil)
	if response.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", response.Code)
	}
	decodeBody(t, response, &page)
	if page.Total != 6 {
		t.Fatalf("expected 6 notes tagged even, got %d", page.Total)
	}
}

func TestSearchMatchesTitleAndContent(t *testing.T) {
	api := newTestAPI(t)
	token := api.registerAndLogin(t, "alice")

	createNote(t, api, token, "Gopher guide", "stdlib tour", nil)
	createNote(t, api, token, "Groceries", "buy gopher plush", nil)
	createNote(t, api, token, "Unrelated", "nothing here", nil)

	response := api.do(t, http.MethodGet, "/api/v1/notes/search?q=GOPHER", token, nil)
	if response.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", response.Code)
	}
	var page notes.NotePage
	decodeBody(t, response, &page)
	if page.Total != 2 {
		t.Fatalf("expected 2 search hits, got %d", page.Total)
	}

	response = api.do(t, http.MethodGet, "/api/v1/notes/search?q=", token, nil)
	if response.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty query, got %d", response.Code)
	}
}

func TestCreateRejectsTooManyTags(t *testing.T) {
	api := newTestAPI(t)
	token := api.registerAndLogin(t, "alice")

	tagNames := make([]string, 11)
	for i := range tagNames {
		tagNames[i] = fmt.Sprintf("tag-%d", i)
	}
	response := api.do(t, http.MethodPost, "/api/v1/notes", token, map[string]interface{}{
		"title":   "Overloaded",
		"content": "content",
		"tags":    tagNames,
	})
	if response.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for 11 tags, got %d", response.Code)
	}
	if code := errorCode(t, response); code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %s", code)
	}
}

func TestTagListingEndpoint(t *testing.T) {
	api := newTestAPI(t)
	token := api.registerAndLogin(t, "alice")

	createNote(t, api, token, "One", "content", []string{"work"})
	createNote(t, api, token, "Two", "content", []string{"work", "ideas"})

	response := api.do(t, http.MethodGet, "/api/v1/tags", token, nil)
	if response.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", response.Code)
	}
	var payload struct {
		Tags []struct {
			Name      string `json:"name"`
			NoteCount int64  `json:"note_count"`
		} `json:"tags"`
		Total int64 `json:"total"`
	}
	decodeBody(t, response, &payload)
	if payload.Total != 2 || len(payload.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %#v", payload)
	}
	if payload.Tags[0].Name != "work" || payload.Tags[0].NoteCount != 2 {
		t.Fatalf("expected work with 2 notes first, got %#v", payload.Tags[0])
	}
}

func TestCacheAdminEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token := api.registerAndLogin(t, "alice")

	created := createNote(t, api, token, "Cached", "content", nil)
	// Prime both a single-note entry and a listing page.
	api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/notes/%d", created.ID), token, nil)
	api.do(t, http.MethodGet, "/api/v1/notes", token, nil)
	if len(api.cache.data) == 0 {
		t.Fatal("expected cache entries after reads")
	}

	response := api.do(t, http.MethodGet, "/api/v1/cache/stats", token, nil)
	if response.Code != http.StatusOK {
		t.Fatalf("expected 200 from stats, got %d", response.Code)
	}
	if !strings.Contains(response.Body.String(), "healthy") {
		t.Fatalf("expected healthy status in %s", response.Body.String())
	}

	response = api.do(t, http.MethodDelete, "/api/v1/cache/user", token, nil)
	if response.Code != http.StatusOK {
		t.Fatalf("expected 200 from cache clear, got %d: %s", response.Code, response.Body.String())
	}
	if len(api.cache.data) != 0 {
		t.Fatalf("expected the user's cache keys gone, still have %v", api.cache.data)
	}
}
