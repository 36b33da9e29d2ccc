package cache

import "fmt"

// Cache key builders live in one place so the layout never drifts between
// readers and invalidators. The Store prepends the configured prefix; callers
// only ever see the logical suffix produced here.
//
// Persisted layout (monitoring tooling depends on it staying bit-exact):
//
//	{prefix}:note:{note_id}:user:{user_id}
//	{prefix}:notes:user:{user_id}:page:{page}:tag:{tag|all}

// NoteKey addresses the cached payload of a single note.
func NoteKey(noteID, userID uint) string {
	return fmt.Sprintf("note:%d:user:%d", noteID, userID)
}

// NoteListKey addresses one cached page of a user's note listing. An empty
// tag filter maps to the literal "all" segment.
func NoteListKey(userID uint, page int, tag string) string {
	if tag == "" {
		tag = "all"
	}
	return fmt.Sprintf("notes:user:%d:page:%d:tag:%s", userID, page, tag)
}

// NoteListPattern matches every cached listing page for a user.
func NoteListPattern(userID uint) string {
	return fmt.Sprintf("notes:user:%d:*", userID)
}

// UserNotePattern matches every cached single-note entry for a user.
func UserNotePattern(userID uint) string {
	return fmt.Sprintf("note:*:user:%d", userID)
}
