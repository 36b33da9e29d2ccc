package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkpadhq/inkpad/internal/apperrors"
	"github.com/inkpadhq/inkpad/internal/auth"
	"github.com/inkpadhq/inkpad/internal/notes"
	"github.com/inkpadhq/inkpad/internal/tags"
	"github.com/inkpadhq/inkpad/internal/users"
)

const (
	userIDContextKey    = "inkpad_user_id"
	requestIDContextKey = "inkpad_request_id"
	requestIDHeader     = "X-Request-ID"
	apiPrefix           = "/api/v1"
)

var (
	errMissingUsersService = errors.New("users service dependency required")
	errMissingNotesService = errors.New("notes service dependency required")
	errMissingTagsService  = errors.New("tags service dependency required")
	errMissingTokenManager = errors.New("token manager dependency required")
	errMissingCacheStore   = errors.New("cache store dependency required")
)

// TokenManager issues and validates the API's JWTs.
type TokenManager interface {
	IssueAccessToken(userID uint) (string, int64, error)
	IssueRefreshToken(userID uint) (string, error)
	ValidateToken(token string, want auth.TokenType) (uint, error)
}

// CacheStore is the slice of the cache layer the admin endpoints use.
type CacheStore interface {
	Ping(ctx context.Context) error
	ClearPattern(ctx context.Context, pattern string) int
	KeyPrefix() string
}

// Dependencies wires the HTTP layer to its collaborators.
type Dependencies struct {
	Users  *users.Service
	Notes  *notes.Service
	Tags   *tags.Service
	Tokens TokenManager
	Cache  CacheStore
	Logger *zap.Logger
}

// NewHTTPHandler builds the gin router with all API routes registered.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Users == nil {
		return nil, errMissingUsersService
	}
	if deps.Notes == nil {
		return nil, errMissingNotesService
	}
	if deps.Tags == nil {
		return nil, errMissingTagsService
	}
	if deps.Tokens == nil {
		return nil, errMissingTokenManager
	}
	if deps.Cache == nil {
		return nil, errMissingCacheStore
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := &httpHandler{
		users:  deps.Users,
		notes:  deps.Notes,
		tags:   deps.Tags,
		tokens: deps.Tokens,
		cache:  deps.Cache,
		logger: logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/healthz", handler.handleHealth)

	api := router.Group(apiPrefix)
	api.POST("/auth/register", handler.handleRegister)
	api.POST("/auth/login", handler.handleLogin)
	api.POST("/auth/refresh", handler.handleRefresh)

	protected := api.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/auth/me", handler.handleMe)
	protected.POST("/notes", handler.handleCreateNote)
	protected.GET("/notes", handler.handleListNotes)
	protected.GET("/notes/search", handler.handleSearchNotes)
	protected.GET("/notes/:id", handler.handleGetNote)
	protected.PUT("/notes/:id", handler.handleUpdateNote)
	protected.DELETE("/notes/:id", handler.handleDeleteNote)
	protected.GET("/tags", handler.handleListTags)
	protected.GET("/cache/stats", handler.handleCacheStats)
	protected.DELETE("/cache/user", handler.handleClearUserCache)

	return router, nil
}

type httpHandler struct {
	users  *users.Service
	notes  *notes.Service
	tags   *tags.Service
	tokens TokenManager
	cache  CacheStore
	logger *zap.Logger
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDContextKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDContextKey)))
	}
}

// authorizeRequest validates the bearer token and loads the active user it
// names. Every failure mode collapses to 401 so the response does not reveal
// whether a token was malformed, expired, or orphaned.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		abortUnauthorized(c, "Authorization header missing or invalid")
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		abortUnauthorized(c, "Authorization header missing or invalid")
		return
	}

	userID, err := h.tokens.ValidateToken(token, auth.TokenTypeAccess)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		abortUnauthorized(c, "Invalid authentication credentials")
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		abortUnauthorized(c, "User not found")
		return
	}
	if !user.IsActive {
		abortUnauthorized(c, "Inactive user")
		return
	}

	c.Set(userIDContextKey, user.ID)
	c.Next()
}

func currentUserID(c *gin.Context) uint {
	value, ok := c.Get(userIDContextKey)
	if !ok {
		return 0
	}
	userID, ok := value.(uint)
	if !ok {
		return 0
	}
	return userID
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorEnvelope(apperrors.CodeAuthentication, message))
}

func errorEnvelope(code apperrors.Code, message string) gin.H {
	return gin.H{
		"success": false,
		"error": gin.H{
			"code":    string(code),
			"message": message,
		},
	}
}

func statusForCode(code apperrors.Code) int {
	switch code {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeAuthorization:
		return http.StatusForbidden
	case apperrors.CodeValidation:
		return http.StatusUnprocessableEntity
	case apperrors.CodeConflict:
		return http.StatusConflict
	case apperrors.CodeAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a domain error to its status and envelope; anything
// outside the taxonomy is logged and reported as an opaque 500.
func (h *httpHandler) writeError(c *gin.Context, err error) {
	if code, ok := apperrors.CodeOf(err); ok {
		c.JSON(statusForCode(code), errorEnvelope(code, err.Error()))
		return
	}
	h.logger.Error("request failed",
		zap.String("request_id", c.GetString(requestIDContextKey)),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError,
		errorEnvelope("INTERNAL_SERVER_ERROR", "An internal server error occurred"))
}
