// Package auth implements the authorization core: the decision engine, the
// token lifecycle and the audited service the HTTP layer calls into.
//
// # Permission model
//
// A principal (models.User) holds roles, a role holds permissions, and a
// permission grants one action on one resource:
//   - a principal is authorized for (resource, action) iff it is active and
//     one of its active roles holds a permission on resource whose action is
//     either action or the wildcard "manage"
//   - inactive roles never contribute, inactive principals are always denied
//   - every active role is searched, not just the first one
//
// Authorize, AuthorizeOwnerOrPermission and HasAnyRole are pure functions over
// a principal whose roles and permissions are already resolved; see
// Loader.LoadPrincipal for the path that resolves them.
//
// # Tokens
//
// TokenService issues two classes of HS256 JWT signed with distinct secrets:
//   - access tokens are stateless and short-lived; verification checks the
//     signature and expiry and that the principal still exists and is active
//   - refresh tokens are tracked server-side: the SHA-256 of every issued
//     refresh token is kept in the principal's outstanding set, and only
//     tokens still in the set verify
//
// Logout removes one refresh token from the set, GlobalLogout clears it.
// Access tokens already handed out stay valid until they expire.
//
// # Auditing
//
// Service wraps engine and tokens and emits one audit record per login,
// logout, token refresh and denied check. Audit failures never surface to the
// caller.
//
// Example usage:
//
//	tokens, err := auth.NewTokenService(auth.TokenConfigFrom(cfg.Token), loader, auth.NewGormRefreshTokenStore(db))
//	svc := auth.NewService(tokens, auth.NewLocalProvider(db), recorder)
//
//	pair, principal, err := svc.Login(ctx, "jane@example.com", "s3cret-pass")
//
//	app.Delete("/admin/users/:id",
//	    auth.Authenticate(svc),
//	    auth.RequirePermission(svc, auth.ResourceUser, models.ActionDelete),
//	    handler,
//	)
package auth
