package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/audit"
	"github.com/farah699/Users-Permissions-Backend/internal/auth"
	"github.com/farah699/Users-Permissions-Backend/internal/cache"
	"github.com/farah699/Users-Permissions-Backend/internal/config"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/permission"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/role"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/user"
	"github.com/farah699/Users-Permissions-Backend/internal/db/dbtest"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
	"github.com/farah699/Users-Permissions-Backend/internal/web/handler"
)

const testPassword = "correct-horse-battery"

type fixture struct {
	t       *testing.T
	db      *gorm.DB
	svc     *Service
	manager *models.User
	admin   *models.User
	roles   map[string]*models.Role
}

func newTestConfig() *config.Config {
	return &config.Config{
		Title: "Users & Permissions (test)",
		Webserver: config.Webserver{
			URL:           "http://localhost",
			Port:          8080,
			ShutDownTime:  0,
			EnableMetrics: true,
		},
		Token: config.Token{
			Issuer:              "users-permissions-test",
			AccessSecret:        "test-access-secret-0123456789",
			RefreshSecret:       "test-refresh-secret-0123456789",
			AccessTTL:           15 * time.Minute,
			RefreshTTL:          24 * time.Hour,
			RotateRefreshTokens: true,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	cfg := newTestConfig()
	db := dbtest.New(t)

	mem := cache.NewMemory(time.Minute)
	require.NoError(t, cache.RegisterInvalidation(db, mem))

	f := &fixture{t: t, db: db, roles: map[string]*models.Role{}}

	var allIDs, userRead []uint

	for _, entry := range auth.Catalog() {
		p, err := permission.Create(ctx, db, entry.Resource, entry.Action, "", entry.Description)
		require.NoError(t, err)

		if entry.Action == models.ActionManage {
			allIDs = append(allIDs, p.ID)
		}

		if entry.Resource == auth.ResourceUser && entry.Action == models.ActionRead {
			userRead = append(userRead, p.ID)
		}
	}

	var err error

	f.roles["Admin"], err = role.Create(ctx, db, "Admin", "", allIDs)
	require.NoError(t, err)
	f.roles["Manager"], err = role.Create(ctx, db, "Manager", "", userRead)
	require.NoError(t, err)

	f.admin, err = user.Create(ctx, db, user.NewUser{
		Email: "admin@example.com", Password: testPassword, RoleIDs: []uint{f.roles["Admin"].ID},
	})
	require.NoError(t, err)
	f.manager, err = user.Create(ctx, db, user.NewUser{
		Email: "manager@example.com", Password: testPassword, RoleIDs: []uint{f.roles["Manager"].ID},
	})
	require.NoError(t, err)

	loader := auth.NewLoader(db, mem)
	tokens, err := auth.NewTokenService(auth.TokenConfigFrom(cfg.Token), loader, auth.NewGormRefreshTokenStore(db))
	require.NoError(t, err)

	recorder := audit.NewRecorder([]audit.Sink{audit.NewDBSink(db)})

	f.svc = New(&handler.Deps{
		Cfg:    cfg,
		DB:     db,
		Auth:   auth.NewService(tokens, auth.NewLocalProvider(db), recorder),
		Audit:  recorder,
		Loader: loader,
	})

	return f
}

// do sends a request and decodes a JSON response into out when out is not nil.
func (f *fixture) do(method, path, bearer string, body any, out any) int {
	f.t.Helper()

	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderUserAgent, "web-test")

	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}

	resp, err := f.svc.App.Test(req, -1)
	require.NoError(f.t, err)

	defer resp.Body.Close()

	if out != nil {
		require.NoError(f.t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func (f *fixture) login(email string) tokenResponse {
	f.t.Helper()

	var out tokenResponse

	status := f.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": testPassword}, &out)
	require.Equal(f.t, http.StatusOK, status)

	return out
}

func (f *fixture) auditCount(action models.AuditAction) int64 {
	f.t.Helper()

	var n int64
	require.NoError(f.t, f.db.Model(&models.AuditRecord{}).Where("action = ?", action).Count(&n).Error)

	return n
}

func id(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, HealthPath, "", nil, nil))
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, MetricsPath, "", nil, nil))

	f.svc.alive.Store(false)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, HealthPath, "", nil, nil))
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t)

	testCases := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{name: "valid", body: map[string]string{"email": "manager@example.com", "password": testPassword}, wantStatus: http.StatusOK},
		{name: "wrong password", body: map[string]string{"email": "manager@example.com", "password": "nope-nope"}, wantStatus: http.StatusUnauthorized},
		{name: "unknown email", body: map[string]string{"email": "ghost@example.com", "password": testPassword}, wantStatus: http.StatusUnauthorized},
		{name: "missing password", body: map[string]string{"email": "manager@example.com"}, wantStatus: http.StatusBadRequest},
		{name: "bad email", body: map[string]string{"email": "manager", "password": testPassword}, wantStatus: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out map[string]any

			status := f.do(http.MethodPost, "/auth/login", "", tc.body, &out)
			assert.Equal(t, tc.wantStatus, status)

			if status == http.StatusOK {
				assert.Equal(t, "Bearer", out["token_type"])
				assert.NotEmpty(t, out["access_token"])
				assert.NotEmpty(t, out["refresh_token"])
				assert.NotContains(t, out["principal"], "password")
			} else {
				assert.NotEmpty(t, out["error"])
			}
		})
	}

	// success plus the two credential failures
	assert.Equal(t, int64(3), f.auditCount(models.AuditActionLogin))
}

func TestMeRefreshLogout(t *testing.T) {
	f := newFixture(t)
	tokens := f.login("manager@example.com")

	var me struct {
		Principal   models.User `json:"principal"`
		Roles       []string    `json:"roles"`
		Permissions []string    `json:"permissions"`
	}

	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/auth/me", tokens.AccessToken, nil, &me))
	assert.Equal(t, f.manager.ID, me.Principal.ID)
	assert.Equal(t, []string{"Manager"}, me.Roles)
	assert.Equal(t, []string{"user.read"}, me.Permissions)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/auth/me", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/auth/me", tokens.RefreshToken, nil, nil))

	var refreshed tokenResponse

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/auth/refresh", "",
		map[string]string{"refresh_token": tokens.RefreshToken}, &refreshed))
	assert.NotEqual(t, tokens.RefreshToken, refreshed.RefreshToken)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/auth/refresh", "",
		map[string]string{"refresh_token": tokens.RefreshToken}, nil))

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/auth/logout", refreshed.AccessToken,
		map[string]string{"refresh_token": refreshed.RefreshToken}, nil))
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/auth/logout", refreshed.AccessToken,
		map[string]string{"refresh_token": refreshed.RefreshToken}, nil))

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/auth/refresh", "",
		map[string]string{"refresh_token": refreshed.RefreshToken}, nil))

	second := f.login("manager@example.com")
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/auth/logout-all", second.AccessToken, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/auth/refresh", "",
		map[string]string{"refresh_token": second.RefreshToken}, nil))

	assert.Equal(t, int64(3), f.auditCount(models.AuditActionLogout))
}

func TestManagerScenario(t *testing.T) {
	f := newFixture(t)
	tokens := f.login("manager@example.com")

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/admin/users", tokens.AccessToken, nil, nil))
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/admin/users/"+id(f.admin.ID), tokens.AccessToken, nil, nil))
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/admin/users/"+id(f.manager.ID), tokens.AccessToken, nil, nil))

	before := f.auditCount(models.AuditActionDelete)

	var denied map[string]any
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodDelete, "/admin/users/"+id(f.admin.ID), tokens.AccessToken, nil, &denied))
	assert.Contains(t, denied["error"], "user.delete")
	assert.Equal(t, before+1, f.auditCount(models.AuditActionDelete), "denial must be audited")

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/admin/roles", tokens.AccessToken, nil, nil))
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/admin/audit", tokens.AccessToken, nil, nil))

	var denial models.AuditRecord
	require.NoError(t, f.db.Where("action = ?", models.AuditActionDelete).Order("created_at DESC").First(&denial).Error)
	assert.Equal(t, f.manager.ID, denial.PrincipalID)
	assert.Equal(t, "web-test", denial.UserAgent)
	assert.Equal(t, "denied", denial.Metadata["outcome"])
}

func TestAdminScenario(t *testing.T) {
	f := newFixture(t)
	adminTokens := f.login("admin@example.com")
	managerTokens := f.login("manager@example.com")

	// create a user
	var created models.User
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/admin/users", adminTokens.AccessToken, map[string]any{
		"email": "New.Hire@Example.com", "password": testPassword, "role_ids": []uint{f.roles["Manager"].ID},
	}, &created))
	assert.Equal(t, "new.hire@example.com", created.Email)

	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/admin/users", adminTokens.AccessToken, map[string]any{
		"email": "new.hire@example.com", "password": testPassword,
	}, nil))

	// grant the manager user.delete through a new role
	var deleteRole models.Role
	deletePerm, err := permission.GetByKey(context.Background(), f.db, auth.ResourceUser, models.ActionDelete)
	require.NoError(t, err)

	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/admin/roles", adminTokens.AccessToken, map[string]any{
		"name": "Remover", "permission_ids": []uint{deletePerm.ID},
	}, &deleteRole))

	require.Equal(t, http.StatusOK, f.do(http.MethodPut, "/admin/users/"+id(f.manager.ID)+"/roles", adminTokens.AccessToken,
		map[string]any{"role_ids": []uint{f.roles["Manager"].ID, deleteRole.ID}}, nil))
	assert.Equal(t, int64(1), f.auditCount(models.AuditActionAssignRole))

	// the change is visible on the manager's next request with the same access token
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/admin/users/"+id(created.ID), managerTokens.AccessToken, nil, nil))

	// self deletion is refused
	assert.Equal(t, http.StatusConflict, f.do(http.MethodDelete, "/admin/users/"+id(f.admin.ID), adminTokens.AccessToken, nil, nil))

	// take it away again
	require.Equal(t, http.StatusOK, f.do(http.MethodPut, "/admin/roles/"+strconv.FormatUint(uint64(deleteRole.ID), 10)+"/permissions",
		adminTokens.AccessToken, map[string]any{"permission_ids": []uint{}}, nil))
	assert.Equal(t, int64(1), f.auditCount(models.AuditActionPermissionChange))

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodDelete, "/admin/users/"+id(f.admin.ID), managerTokens.AccessToken, nil, nil))

	// role in use cannot be deactivated
	assert.Equal(t, http.StatusConflict, f.do(http.MethodDelete, "/admin/roles/"+strconv.FormatUint(uint64(deleteRole.ID), 10),
		adminTokens.AccessToken, nil, nil))

	require.Equal(t, http.StatusOK, f.do(http.MethodPut, "/admin/users/"+id(f.manager.ID)+"/roles", adminTokens.AccessToken,
		map[string]any{"role_ids": []uint{f.roles["Manager"].ID}}, nil))
	assert.Equal(t, int64(1), f.auditCount(models.AuditActionRemoveRole))

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/admin/roles/"+strconv.FormatUint(uint64(deleteRole.ID), 10),
		adminTokens.AccessToken, nil, nil))

	// inactive roles cannot be assigned
	assert.Equal(t, http.StatusUnprocessableEntity, f.do(http.MethodPut, "/admin/users/"+id(f.manager.ID)+"/roles",
		adminTokens.AccessToken, map[string]any{"role_ids": []uint{deleteRole.ID}}, nil))

	var records []models.AuditRecord
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/admin/audit?resource=role&limit=10", adminTokens.AccessToken, nil, &records))
	assert.NotEmpty(t, records)

	for _, rec := range records {
		assert.Equal(t, auth.ResourceRole, rec.Resource)
	}

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/admin/audit?since=yesterday", adminTokens.AccessToken, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/admin/users/99999", adminTokens.AccessToken, nil, nil))
}

func TestDeactivatedUserLosesAccess(t *testing.T) {
	f := newFixture(t)
	adminTokens := f.login("admin@example.com")
	managerTokens := f.login("manager@example.com")

	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/auth/me", managerTokens.AccessToken, nil, nil))
	require.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/admin/users/"+id(f.manager.ID), adminTokens.AccessToken, nil, nil))

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/auth/me", managerTokens.AccessToken, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/auth/refresh", "",
		map[string]string{"refresh_token": managerTokens.RefreshToken}, nil))
}

func TestPermissionCatalog(t *testing.T) {
	f := newFixture(t)
	adminTokens := f.login("admin@example.com")

	var perms []models.Permission
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/admin/permissions", adminTokens.AccessToken, nil, &perms))
	assert.Len(t, perms, len(auth.Catalog()))

	var created models.Permission
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/admin/permissions", adminTokens.AccessToken,
		map[string]string{"resource": "report", "action": "read"}, &created))
	assert.Equal(t, "report.read", created.Name)

	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/admin/permissions", adminTokens.AccessToken,
		map[string]string{"resource": "report", "action": "read"}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/admin/permissions", adminTokens.AccessToken,
		map[string]string{"resource": "report", "action": "export"}, nil))

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete,
		"/admin/permissions/"+strconv.FormatUint(uint64(created.ID), 10), adminTokens.AccessToken, nil, nil))

	userManage, err := permission.GetByKey(context.Background(), f.db, auth.ResourceUser, models.ActionManage)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodDelete,
		"/admin/permissions/"+strconv.FormatUint(uint64(userManage.ID), 10), adminTokens.AccessToken, nil, nil))
}

func TestRepeatedDeleteIsAuditedOnce(t *testing.T) {
	f := newFixture(t)
	adminTokens := f.login("admin@example.com")

	temp, err := role.Create(context.Background(), f.db, "Temporary", "", nil)
	require.NoError(t, err)

	testCases := []struct {
		name       string
		path       string
		resource   string
		resourceID string
	}{
		{name: "user", path: "/admin/users/" + id(f.manager.ID), resource: auth.ResourceUser, resourceID: id(f.manager.ID)},
		{name: "role", path: "/admin/roles/" + id(uint64(temp.ID)), resource: auth.ResourceRole, resourceID: id(uint64(temp.ID))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, tc.path, adminTokens.AccessToken, nil, nil))
			assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, tc.path, adminTokens.AccessToken, nil, nil))

			var n int64
			require.NoError(t, f.db.Model(&models.AuditRecord{}).
				Where("action = ? AND resource = ? AND resource_id = ?", models.AuditActionDelete, tc.resource, tc.resourceID).
				Count(&n).Error)
			assert.Equal(t, int64(1), n)
		})
	}
}

func TestRoleUpdate(t *testing.T) {
	f := newFixture(t)
	adminTokens := f.login("admin@example.com")
	managerTokens := f.login("manager@example.com")

	path := "/admin/roles/" + id(uint64(f.roles["Manager"].ID))

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPut, path, managerTokens.AccessToken,
		map[string]string{"name": "Boss"}, nil))

	var updated models.Role
	require.Equal(t, http.StatusOK, f.do(http.MethodPut, path, adminTokens.AccessToken,
		map[string]string{"name": "Supervisor", "description": "reads users"}, &updated))
	assert.Equal(t, "Supervisor", updated.Name)
	assert.Equal(t, "reads users", updated.Description)

	assert.Equal(t, http.StatusConflict, f.do(http.MethodPut, path, adminTokens.AccessToken,
		map[string]string{"name": "Admin"}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, path, adminTokens.AccessToken,
		map[string]string{"name": "x"}, nil))

	var rec models.AuditRecord
	require.NoError(t, f.db.Where("action = ? AND resource = ? AND principal_id = ?",
		models.AuditActionUpdate, auth.ResourceRole, f.admin.ID).First(&rec).Error)
	assert.Equal(t, id(uint64(f.roles["Manager"].ID)), rec.ResourceID)
	assert.Equal(t, map[string]any{"name": "Manager", "description": ""}, rec.Changes["before"])
	assert.Equal(t, map[string]any{"name": "Supervisor", "description": "reads users"}, rec.Changes["after"])

	// the role keeps granting user.read under its new name
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/admin/users", managerTokens.AccessToken, nil, nil))
}

func TestPermissionUpdate(t *testing.T) {
	f := newFixture(t)
	adminTokens := f.login("admin@example.com")
	managerTokens := f.login("manager@example.com")

	userRead, err := permission.GetByKey(context.Background(), f.db, auth.ResourceUser, models.ActionRead)
	require.NoError(t, err)

	path := "/admin/permissions/" + id(uint64(userRead.ID))

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPatch, path, managerTokens.AccessToken,
		map[string]string{"description": "nope"}, nil))

	var updated models.Permission
	require.Equal(t, http.StatusOK, f.do(http.MethodPatch, path, adminTokens.AccessToken,
		map[string]string{"description": "List and view users"}, &updated))
	assert.Equal(t, "List and view users", updated.Description)
	assert.Equal(t, "user.read", updated.Name)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPatch, "/admin/permissions/99999", adminTokens.AccessToken,
		map[string]string{"description": "x"}, nil))

	var rec models.AuditRecord
	require.NoError(t, f.db.Where("action = ? AND resource = ? AND principal_id = ?",
		models.AuditActionUpdate, auth.ResourcePermission, f.admin.ID).First(&rec).Error)
	assert.Equal(t, id(uint64(userRead.ID)), rec.ResourceID)
	assert.Equal(t, map[string]any{"description": userRead.Description}, rec.Changes["before"])
	assert.Equal(t, map[string]any{"description": "List and view users"}, rec.Changes["after"])
}
