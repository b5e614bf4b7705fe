package auth

import (
	"context"
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/farah699/Users-Permissions-Backend/internal/audit"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

const (
	checkPermission = "permission"
	checkOwner      = "owner_or_permission"
	checkRole       = "role"

	outcomeDenied = "denied"
)

var decisions = promauto.NewCounterVec( //nolint:gochecknoglobals
	prometheus.CounterOpts{
		Name: "authz_decisions_total",
		Help: "Authorization decisions by check kind and result.",
	},
	[]string{"check", "result"},
)

// CredentialVerifier checks a login.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (*models.User, error)
}

// Auditor records audit entries. *audit.Recorder implements it.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry) *models.AuditRecord
}

// Service is the audited entry point of the authorization core.
type Service struct {
	tokens      *TokenService
	credentials CredentialVerifier
	auditor     Auditor
}

// NewService creates a new auth service.
func NewService(tokens *TokenService, credentials CredentialVerifier, auditor Auditor) *Service {
	return &Service{
		tokens:      tokens,
		credentials: credentials,
		auditor:     auditor,
	}
}

// Tokens returns the underlying token service.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Login verifies the credentials and issues a token pair.
// Success and failure are both audited; failed attempts carry the attempted email only.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, *models.User, error) {
	principal, err := s.credentials.VerifyCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrAuthentication) {
			s.auditor.Record(ctx, audit.Entry{
				Action:   models.AuditActionLogin,
				Resource: ResourceAuth,
				Metadata: map[string]any{
					"success": false,
					"email":   models.NormalizeEmail(email),
					"reason":  failureReason(err),
				},
			})
		}

		return nil, nil, err
	}

	pair, err := s.tokens.IssueTokenPair(ctx, principal)
	if err != nil {
		return nil, nil, err
	}

	s.auditor.Record(ctx, audit.Entry{
		Action:         models.AuditActionLogin,
		Resource:       ResourceAuth,
		ResourceID:     idString(principal.ID),
		PrincipalID:    principal.ID,
		PrincipalEmail: principal.Email,
		Metadata:       map[string]any{"success": true},
	})

	return pair, principal, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, *models.User, error) {
	pair, principal, err := s.tokens.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		if principal != nil && errors.Is(err, ErrAuthentication) {
			s.auditor.Record(ctx, audit.Entry{
				Action:         models.AuditActionLogin,
				Resource:       ResourceAuth,
				ResourceID:     idString(principal.ID),
				PrincipalID:    principal.ID,
				PrincipalEmail: principal.Email,
				Metadata: map[string]any{
					"success": false,
					"grant":   "refresh_token",
					"reason":  failureReason(err),
				},
			})
		}

		return nil, nil, err
	}

	s.auditor.Record(ctx, audit.Entry{
		Action:         models.AuditActionLogin,
		Resource:       ResourceAuth,
		ResourceID:     idString(principal.ID),
		PrincipalID:    principal.ID,
		PrincipalEmail: principal.Email,
		Metadata: map[string]any{
			"success": true,
			"grant":   "refresh_token",
			"rotated": s.tokens.RotatesRefreshTokens(),
		},
	})

	return pair, principal, nil
}

// Authenticate resolves the principal of an access token.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	return s.tokens.VerifyAccessToken(ctx, accessToken)
}

// Logout revokes one refresh token of principal.
func (s *Service) Logout(ctx context.Context, principal *models.User, refreshToken string) error {
	if err := s.tokens.Logout(ctx, principal.ID, refreshToken); err != nil {
		return err
	}

	s.auditor.Record(ctx, audit.Entry{
		Action:         models.AuditActionLogout,
		Resource:       ResourceAuth,
		ResourceID:     idString(principal.ID),
		PrincipalID:    principal.ID,
		PrincipalEmail: principal.Email,
		Metadata:       map[string]any{"scope": "single"},
	})

	return nil
}

// GlobalLogout revokes every refresh token of principal.
func (s *Service) GlobalLogout(ctx context.Context, principal *models.User) error {
	revoked, err := s.tokens.GlobalLogout(ctx, principal.ID)
	if err != nil {
		return err
	}

	s.auditor.Record(ctx, audit.Entry{
		Action:         models.AuditActionLogout,
		Resource:       ResourceAuth,
		ResourceID:     idString(principal.ID),
		PrincipalID:    principal.ID,
		PrincipalEmail: principal.Email,
		Metadata:       map[string]any{"scope": "all", "revoked": revoked},
	})

	return nil
}

// Check returns an *AuthorizationError unless principal may perform action on resource.
// Denials are logged and audited.
func (s *Service) Check(ctx context.Context, principal *models.User, resource, action string) error {
	if Authorize(principal, resource, action) {
		decisions.WithLabelValues(checkPermission, "allowed").Inc()
		return nil
	}

	return s.deny(ctx, principal, checkPermission, "", &AuthorizationError{Resource: resource, Action: action})
}

// CheckOwnerOrPermission is Check with the ownership exception of AuthorizeOwnerOrPermission.
func (s *Service) CheckOwnerOrPermission(
	ctx context.Context, principal *models.User, resource string, targetID uint64, action string,
) error {
	if AuthorizeOwnerOrPermission(principal, resource, targetID, action) {
		decisions.WithLabelValues(checkOwner, "allowed").Inc()
		return nil
	}

	return s.deny(ctx, principal, checkOwner, idString(targetID),
		&AuthorizationError{Resource: resource, Action: action})
}

// CheckAnyRole returns an *AuthorizationError unless principal holds one of the active roles.
func (s *Service) CheckAnyRole(ctx context.Context, principal *models.User, names ...string) error {
	if HasAnyRole(principal, names...) {
		decisions.WithLabelValues(checkRole, "allowed").Inc()
		return nil
	}

	return s.deny(ctx, principal, checkRole, "", &AuthorizationError{Roles: names})
}

func (s *Service) deny(
	ctx context.Context, principal *models.User, check, resourceID string, authzErr *AuthorizationError,
) error {
	decisions.WithLabelValues(check, outcomeDenied).Inc()

	entry := audit.Entry{
		Action:     deniedAuditAction(authzErr.Action),
		Resource:   authzErr.Resource,
		ResourceID: resourceID,
		Metadata: map[string]any{
			"outcome": outcomeDenied,
			"check":   check,
		},
	}

	logEvent := log.Warn().Str("check", check)

	if principal != nil {
		entry.PrincipalID = principal.ID
		entry.PrincipalEmail = principal.Email
		logEvent = logEvent.Uint64("principal_id", principal.ID)
	}

	if len(authzErr.Roles) > 0 {
		entry.Resource = ResourceRole
		entry.Metadata["required_roles"] = authzErr.Roles
		logEvent = logEvent.Strs("roles", authzErr.Roles)
	} else {
		entry.Metadata["required_action"] = authzErr.Action
		logEvent = logEvent.Str("resource", authzErr.Resource).Str("action", authzErr.Action)
	}

	logEvent.Msg("principal lacks required grant")
	s.auditor.Record(ctx, entry)

	return authzErr
}

// deniedAuditAction maps the requested action to the audit kind of its denial record.
func deniedAuditAction(action string) models.AuditAction {
	switch models.Action(action) {
	case models.ActionCreate:
		return models.AuditActionCreate
	case models.ActionUpdate, models.ActionManage:
		return models.AuditActionUpdate
	case models.ActionDelete:
		return models.AuditActionDelete
	default:
		return models.AuditActionRead
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrPrincipalInactive):
		return "principal_inactive"
	case errors.Is(err, ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, ErrPrincipalNotFound):
		return "principal_not_found"
	default:
		return "invalid_credentials"
	}
}

func idString(id uint64) string {
	return strconv.FormatUint(id, 10)
}
