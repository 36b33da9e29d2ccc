package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/inkpadhq/inkpad/internal/apperrors"
)

var errMissingDatabase = errors.New("users: database handle is required")

// ServiceConfig describes the dependencies of the credential store.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service persists user records and verifies credentials.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService constructs the credential store service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, logger: logger}, nil
}

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a new user after checking username and email uniqueness.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" || email == "" || input.Password == "" {
		return User{}, apperrors.Validation("username, email and password are required")
	}

	var existing User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&existing).Error
	if err == nil {
		return User{}, apperrors.Conflict("Username already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, fmt.Errorf("users: username lookup failed: %w", err)
	}

	err = s.db.WithContext(ctx).Where("email = ?", email).Take(&existing).Error
	if err == nil {
		return User{}, apperrors.Conflict("Email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, fmt.Errorf("users: email lookup failed: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("users: password hashing failed: %w", err)
	}

	user := User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return User{}, fmt.Errorf("users: insert failed: %w", err)
	}

	s.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Authenticate verifies a password against the user found by username or
// email. Lookup misses and bad passwords produce the same authentication
// error so the response does not leak which part was wrong.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, apperrors.Authentication("Incorrect username or password")
	}
	if err != nil {
		return User{}, fmt.Errorf("users: credential lookup failed: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, apperrors.Authentication("Incorrect username or password")
	}
	if !user.IsActive {
		return User{}, apperrors.Authentication("Inactive user")
	}

	return user, nil
}

// GetByID loads a user record by primary key.
func (s *Service) GetByID(ctx context.Context, userID uint) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, apperrors.NotFound(fmt.Sprintf("User with id %d not found", userID))
	}
	if err != nil {
		return User{}, fmt.Errorf("users: lookup failed: %w", err)
	}
	return user, nil
}
