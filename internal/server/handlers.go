package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inkpadhq/inkpad/internal/auth"
	"github.com/inkpadhq/inkpad/internal/cache"
	"github.com/inkpadhq/inkpad/internal/notes"
	"github.com/inkpadhq/inkpad/internal/users"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

type registerPayload struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginPayload struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshPayload struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type userResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserResponse(user users.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var payload registerPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusUnprocessableEntity,
			errorEnvelope("VALIDATION_ERROR", "username, email and a password of at least 8 characters are required"))
		return
	}

	user, err := h.users.Register(c.Request.Context(), users.RegisterInput{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newUserResponse(user))
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var payload loginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusUnprocessableEntity,
			errorEnvelope("VALIDATION_ERROR", "username and password are required"))
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), payload.Username, payload.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	accessToken, expiresIn, err := h.tokens.IssueAccessToken(user.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	refreshToken, err := h.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    expiresIn,
	})
}

func (h *httpHandler) handleRefresh(c *gin.Context) {
	var payload refreshPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusUnprocessableEntity,
			errorEnvelope("VALIDATION_ERROR", "refresh_token is required"))
		return
	}

	userID, err := h.tokens.ValidateToken(payload.RefreshToken, auth.TokenTypeRefresh)
	if err != nil {
		abortUnauthorized(c, "Invalid refresh token")
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil || !user.IsActive {
		abortUnauthorized(c, "Invalid refresh token")
		return
	}

	accessToken, expiresIn, err := h.tokens.IssueAccessToken(user.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   expiresIn,
	})
}

func (h *httpHandler) handleMe(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

type createNotePayload struct {
	Title   string   `json:"title" binding:"required"`
	Content string   `json:"content" binding:"required"`
	Tags    []string `json:"tags"`
}

type updateNotePayload struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	var payload createNotePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusUnprocessableEntity,
			errorEnvelope("VALIDATION_ERROR", "title and content are required"))
		return
	}

	view, err := h.notes.CreateNote(c.Request.Context(), currentUserID(c), notes.CreateInput{
		Title:   payload.Title,
		Content: payload.Content,
		Tags:    payload.Tags,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *httpHandler) handleGetNote(c *gin.Context) {
	noteID, ok := notePathID(c)
	if !ok {
		return
	}

	view, err := h.notes.GetNote(c.Request.Context(), noteID, currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	page, perPage := paginationParams(c)
	tag := strings.TrimSpace(c.Query("tag"))

	result, err := h.notes.ListNotes(c.Request.Context(), currentUserID(c), page, perPage, tag)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleSearchNotes(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusUnprocessableEntity,
			errorEnvelope("VALIDATION_ERROR", "Search query cannot be empty"))
		return
	}
	page, perPage := paginationParams(c)

	result, err := h.notes.SearchNotes(c.Request.Context(), currentUserID(c), query, page, perPage)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	noteID, ok := notePathID(c)
	if !ok {
		return
	}

	var payload updateNotePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusUnprocessableEntity,
			errorEnvelope("VALIDATION_ERROR", "request body is not a valid note update"))
		return
	}

	view, err := h.notes.UpdateNote(c.Request.Context(), noteID, currentUserID(c), notes.UpdateInput{
		Title:   payload.Title,
		Content: payload.Content,
		Tags:    payload.Tags,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	noteID, ok := notePathID(c)
	if !ok {
		return
	}

	if err := h.notes.DeleteNote(c.Request.Context(), noteID, currentUserID(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleListTags(c *gin.Context) {
	page, perPage := paginationParams(c)

	result, total, err := h.tags.ListForUser(c.Request.Context(), currentUserID(c), (page-1)*perPage, perPage)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": result, "total": total})
}

func (h *httpHandler) handleCacheStats(c *gin.Context) {
	status := "healthy"
	if err := h.cache.Ping(c.Request.Context()); err != nil {
		h.logger.Warn("cache health probe failed", zap.Error(err))
		status = "unhealthy"
	}
	c.JSON(http.StatusOK, gin.H{
		"redis_health": gin.H{"status": status},
		"cache_prefix": h.cache.KeyPrefix(),
	})
}

func (h *httpHandler) handleClearUserCache(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUserID(c)

	listsCleared := h.cache.ClearPattern(ctx, cache.NoteListPattern(userID))
	notesCleared := h.cache.ClearPattern(ctx, cache.UserNotePattern(userID))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"details": gin.H{
			"notes_lists_cleared":      listsCleared,
			"individual_notes_cleared": notesCleared,
			"total_cleared":            listsCleared + notesCleared,
		},
	})
}

func notePathID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	noteID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || noteID == 0 {
		c.JSON(http.StatusUnprocessableEntity,
			errorEnvelope("VALIDATION_ERROR", "note id must be a positive integer"))
		return 0, false
	}
	return uint(noteID), true
}

func paginationParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if err != nil || perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
