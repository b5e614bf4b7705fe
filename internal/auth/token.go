package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/farah699/Users-Permissions-Backend/internal/config"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

const (
	// TokenTypeAccess is the typ claim of access tokens.
	TokenTypeAccess = "access"
	// TokenTypeRefresh is the typ claim of refresh tokens.
	TokenTypeRefresh = "refresh"

	signingAlgorithm = "HS256"
)

// TokenConfig holds what the token service needs to sign and verify tokens.
type TokenConfig struct {
	Issuer              string
	AccessSecret        []byte
	RefreshSecret       []byte
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	RotateRefreshTokens bool
}

// TokenConfigFrom converts the token section of the service configuration.
func TokenConfigFrom(c config.Token) TokenConfig {
	return TokenConfig{
		Issuer:              c.Issuer,
		AccessSecret:        []byte(c.AccessSecret),
		RefreshSecret:       []byte(c.RefreshSecret),
		AccessTTL:           c.AccessTTL,
		RefreshTTL:          c.RefreshTTL,
		RotateRefreshTokens: c.RotateRefreshTokens,
	}
}

// PrincipalLoader resolves a principal with its roles and their permissions.
// Unknown ids return ErrPrincipalNotFound.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, id uint64) (*models.User, error)
}

// RefreshTokenStore keeps the outstanding refresh token hashes per principal.
type RefreshTokenStore interface {
	Add(ctx context.Context, principalID uint64, hash string, expiresAt time.Time) error
	Remove(ctx context.Context, principalID uint64, hash string) (bool, error)
	Has(ctx context.Context, principalID uint64, hash string) (bool, error)
	Clear(ctx context.Context, principalID uint64) (int64, error)
}

// Claims of both token classes. Email and RoleIDs are only set on access tokens.
type Claims struct {
	Type    string `json:"typ"`
	Email   string `json:"email,omitempty"`
	RoleIDs []uint `json:"role_ids,omitempty"`
	jwt.RegisteredClaims
}

// PrincipalID returns the subject as a principal id.
func (c *Claims) PrincipalID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}

	return id, nil
}

// Token is a signed token and the instant it stops verifying.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenPair is what login and refresh hand out.
type TokenPair struct {
	Access  Token `json:"access"`
	Refresh Token `json:"refresh"`
}

// TokenService issues and verifies access and refresh tokens.
type TokenService struct {
	cfg    TokenConfig
	loader PrincipalLoader
	store  RefreshTokenStore
	now    func() time.Time
	parser *jwt.Parser
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithTokenClock replaces time.Now.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService validates cfg and returns a token service.
func NewTokenService(
	cfg TokenConfig, loader PrincipalLoader, store RefreshTokenStore, opts ...TokenOption,
) (*TokenService, error) {
	switch {
	case len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0:
		return nil, fmt.Errorf("%w: secrets must be set", ErrTokenConfig)
	case string(cfg.AccessSecret) == string(cfg.RefreshSecret):
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrTokenConfig)
	case cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0:
		return nil, fmt.Errorf("%w: lifetimes must be positive", ErrTokenConfig)
	case loader == nil || store == nil:
		return nil, fmt.Errorf("%w: loader and store are required", ErrTokenConfig)
	}

	s := &TokenService{
		cfg:    cfg,
		loader: loader,
		store:  store,
		now:    time.Now,
		// expiry and issuer are checked against the injected clock below
		parser: jwt.NewParser(jwt.WithValidMethods([]string{signingAlgorithm}), jwt.WithoutClaimsValidation()),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// RotatesRefreshTokens reports whether RefreshAccessToken replaces the presented refresh token.
func (s *TokenService) RotatesRefreshTokens() bool {
	return s.cfg.RotateRefreshTokens
}

// IssueAccessToken signs a short-lived access token for principal.
func (s *TokenService) IssueAccessToken(principal *models.User) (Token, error) {
	claims := s.claims(principal.ID, TokenTypeAccess, s.cfg.AccessTTL)
	claims.Email = principal.Email
	claims.RoleIDs = principal.RoleIDs()

	return s.sign(claims, s.cfg.AccessSecret)
}

// IssueRefreshToken signs a refresh token and adds it to the principal's outstanding set.
func (s *TokenService) IssueRefreshToken(ctx context.Context, principal *models.User) (Token, error) {
	token, err := s.sign(s.claims(principal.ID, TokenTypeRefresh, s.cfg.RefreshTTL), s.cfg.RefreshSecret)
	if err != nil {
		return Token{}, err
	}

	if err = s.store.Add(ctx, principal.ID, HashToken(token.Value), token.ExpiresAt); err != nil {
		return Token{}, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return token, nil
}

// IssueTokenPair issues an access and a refresh token.
func (s *TokenService) IssueTokenPair(ctx context.Context, principal *models.User) (*TokenPair, error) {
	access, err := s.IssueAccessToken(principal)
	if err != nil {
		return nil, err
	}

	refresh, err := s.IssueRefreshToken(ctx, principal)
	if err != nil {
		return nil, err
	}

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// ParseAccessToken checks signature, class, issuer and expiry of an access token.
// It does not look at the principal.
func (s *TokenService) ParseAccessToken(raw string) (*Claims, error) {
	return s.parse(raw, TokenTypeAccess, s.cfg.AccessSecret, true)
}

// VerifyAccessToken returns the resolved principal of a valid access token.
// The principal must still exist and be active.
func (s *TokenService) VerifyAccessToken(ctx context.Context, raw string) (*models.User, error) {
	claims, err := s.ParseAccessToken(raw)
	if err != nil {
		return nil, err
	}

	return s.activePrincipal(ctx, claims)
}

// VerifyRefreshToken returns the claims of a refresh token that is valid and still outstanding.
func (s *TokenService) VerifyRefreshToken(ctx context.Context, raw string) (*Claims, error) {
	claims, err := s.parse(raw, TokenTypeRefresh, s.cfg.RefreshSecret, true)
	if err != nil {
		return nil, err
	}

	id, err := claims.PrincipalID()
	if err != nil {
		return nil, err
	}

	ok, err := s.store.Has(ctx, id, HashToken(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	if !ok {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// RefreshAccessToken exchanges a refresh token for a new access token.
// With rotation the presented refresh token is removed and a new one issued,
// otherwise the presented one is handed back unchanged.
// An inactive principal loses every outstanding refresh token.
func (s *TokenService) RefreshAccessToken(ctx context.Context, raw string) (*TokenPair, *models.User, error) {
	claims, err := s.VerifyRefreshToken(ctx, raw)
	if err != nil {
		return nil, nil, err
	}

	principal, err := s.loadPrincipal(ctx, claims)
	if err != nil {
		return nil, nil, err
	}

	if !principal.Active {
		if _, clearErr := s.store.Clear(ctx, principal.ID); clearErr != nil {
			log.Error().Err(clearErr).Uint64("principal_id", principal.ID).
				Msg("failed to clear refresh tokens of inactive principal")
		}

		return nil, principal, ErrPrincipalInactive
	}

	access, err := s.IssueAccessToken(principal)
	if err != nil {
		return nil, principal, err
	}

	if !s.cfg.RotateRefreshTokens {
		return &TokenPair{
			Access:  access,
			Refresh: Token{Value: raw, ExpiresAt: claims.ExpiresAt.UTC()},
		}, principal, nil
	}

	removed, err := s.store.Remove(ctx, principal.ID, HashToken(raw))
	if err != nil {
		return nil, principal, fmt.Errorf("failed to remove refresh token: %w", err)
	}

	// a concurrent refresh with the same token won
	if !removed {
		return nil, principal, ErrTokenRevoked
	}

	refresh, err := s.IssueRefreshToken(ctx, principal)
	if err != nil {
		return nil, principal, err
	}

	return &TokenPair{Access: access, Refresh: refresh}, principal, nil
}

// Logout removes one refresh token from the principal's outstanding set.
// Removing a token that is not outstanding is not an error. Expired tokens are accepted.
func (s *TokenService) Logout(ctx context.Context, principalID uint64, raw string) error {
	claims, err := s.parse(raw, TokenTypeRefresh, s.cfg.RefreshSecret, false)
	if err != nil {
		return err
	}

	id, err := claims.PrincipalID()
	if err != nil {
		return err
	}

	if id != principalID {
		return fmt.Errorf("%w: token belongs to another principal", ErrTokenInvalid)
	}

	if _, err = s.store.Remove(ctx, principalID, HashToken(raw)); err != nil {
		return fmt.Errorf("failed to remove refresh token: %w", err)
	}

	return nil
}

// GlobalLogout clears the principal's outstanding set and returns how many tokens it held.
func (s *TokenService) GlobalLogout(ctx context.Context, principalID uint64) (int64, error) {
	n, err := s.store.Clear(ctx, principalID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear refresh tokens: %w", err)
	}

	return n, nil
}

func (s *TokenService) claims(principalID uint64, typ string, ttl time.Duration) *Claims {
	now := s.now()

	return &Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   strconv.FormatUint(principalID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
}

func (s *TokenService) sign(claims *Claims, secret []byte) (Token, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %w", ErrTokenSigning, err)
	}

	return Token{Value: signed, ExpiresAt: claims.ExpiresAt.UTC()}, nil
}

func (s *TokenService) parse(raw, typ string, secret []byte, checkExpiry bool) (*Claims, error) {
	if raw == "" {
		return nil, ErrTokenMissing
	}

	claims := &Claims{}

	_, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if claims.Type != typ || claims.Issuer != s.cfg.Issuer || claims.ExpiresAt == nil {
		return nil, ErrTokenInvalid
	}

	// exp is exclusive
	if checkExpiry && !s.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}

func (s *TokenService) loadPrincipal(ctx context.Context, claims *Claims) (*models.User, error) {
	id, err := claims.PrincipalID()
	if err != nil {
		return nil, err
	}

	principal, err := s.loader.LoadPrincipal(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAuthentication) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to load principal: %w", err)
	}

	return principal, nil
}

func (s *TokenService) activePrincipal(ctx context.Context, claims *Claims) (*models.User, error) {
	principal, err := s.loadPrincipal(ctx, claims)
	if err != nil {
		return nil, err
	}

	if !principal.Active {
		return nil, ErrPrincipalInactive
	}

	return principal, nil
}

// HashToken returns the hex SHA-256 of a signed token, the form kept in the outstanding set.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
