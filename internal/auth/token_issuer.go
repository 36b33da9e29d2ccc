package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes the two JWT flavors the API issues.
type TokenType string

const (
	// TokenTypeAccess tokens authorize API requests.
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh tokens may only be exchanged for a new access token.
	TokenTypeRefresh TokenType = "refresh"
)

const (
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	errMissingSigningSecret = errors.New("auth: signing secret must be provided")
	errMissingSubjectClaim  = errors.New("auth: subject claim must be provided")
	// ErrInvalidToken reports a token that failed signature, expiry, or
	// audience checks.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrWrongTokenType reports a structurally valid token presented in the
	// wrong role, e.g. a refresh token on an API request.
	ErrWrongTokenType = errors.New("auth: wrong token type")
)

// Claims is the JWT payload: registered claims plus the token flavor.
type Claims struct {
	TokenType TokenType `json:"type"`
	jwt.RegisteredClaims
}

// TokenIssuerConfig configures the JWT issuer.
type TokenIssuerConfig struct {
	SigningSecret []byte
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Clock         func() time.Time
}

// TokenIssuer issues and validates HS256 access and refresh tokens whose
// subject is the numeric user id.
type TokenIssuer struct {
	config TokenIssuerConfig
	clock  func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer with sane defaults.
func NewTokenIssuer(cfg TokenIssuerConfig) *TokenIssuer {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	cfg.Clock = clock
	return &TokenIssuer{config: cfg, clock: clock}
}

// IssueAccessToken produces a signed access token for the user and the
// token lifetime in seconds.
func (i *TokenIssuer) IssueAccessToken(userID uint) (string, int64, error) {
	token, err := i.issue(userID, TokenTypeAccess, i.config.AccessTTL)
	if err != nil {
		return "", 0, err
	}
	return token, int64(i.config.AccessTTL.Seconds()), nil
}

// IssueRefreshToken produces a signed refresh token for the user.
func (i *TokenIssuer) IssueRefreshToken(userID uint) (string, error) {
	return i.issue(userID, TokenTypeRefresh, i.config.RefreshTTL)
}

func (i *TokenIssuer) issue(userID uint, tokenType TokenType, ttl time.Duration) (string, error) {
	if len(i.config.SigningSecret) == 0 {
		return "", errMissingSigningSecret
	}
	if userID == 0 {
		return "", errMissingSubjectClaim
	}

	now := i.clock().UTC()
	claims := Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    i.config.Issuer,
			Audience:  []string{i.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.config.SigningSecret)
}

// ValidateToken verifies the token signature, expiry, issuer and audience,
// checks the token flavor, and returns the user id from the subject claim.
func (i *TokenIssuer) ValidateToken(tokenString string, want TokenType) (uint, error) {
	if len(i.config.SigningSecret) == 0 {
		return 0, errMissingSigningSecret
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("%w: unexpected signing algorithm %s", ErrInvalidToken, token.Method.Alg())
			}
			return i.config.SigningSecret, nil
		},
		jwt.WithAudience(i.config.Audience),
		jwt.WithIssuer(i.config.Issuer),
		jwt.WithTimeFunc(i.clock),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.TokenType != want {
		return 0, ErrWrongTokenType
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return 0, errMissingSubjectClaim
	}
	return uint(userID), nil
}
