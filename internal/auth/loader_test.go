package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farah699/Users-Permissions-Backend/internal/cache"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/role"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/user"
	"github.com/farah699/Users-Permissions-Backend/internal/db/dbtest"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

func TestLoaderLoadPrincipal(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)

	manager := seedRole(t, db, "Manager", "user.read")
	u := seedUser(t, db, "Jane@Example.com", manager)

	loader := NewLoader(db, nil)

	got, err := loader.LoadPrincipal(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got.Email)
	require.Len(t, got.Roles, 1)
	assert.Equal(t, []string{"user.read"}, got.Roles[0].PermissionKeys())

	_, err = loader.LoadPrincipal(ctx, 9999)
	require.ErrorIs(t, err, ErrPrincipalNotFound)
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestLoaderSeesChangesThroughCache(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	mem := cache.NewMemory(time.Hour)
	require.NoError(t, cache.RegisterInvalidation(db, mem))

	editor := seedRole(t, db, "Editor", "user.read", "user.update")
	u := seedUser(t, db, "editor@example.com", editor)

	loader := NewLoader(db, mem)

	p, err := loader.LoadPrincipal(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, Authorize(p, ResourceUser, "update"))

	cached, ok := mem.Get(ctx, u.ID)
	require.True(t, ok, "principal should be cached")
	assert.Same(t, p, cached)

	editorRole, err := role.GetByName(ctx, db, "Editor")
	require.NoError(t, err)

	onlyRead := []uint{}
	for _, perm := range p.Roles[0].Permissions {
		if perm.Action == models.ActionRead {
			onlyRead = append(onlyRead, perm.ID)
		}
	}

	_, _, err = role.SetPermissions(ctx, db, editorRole.ID, onlyRead)
	require.NoError(t, err)

	p, err = loader.LoadPrincipal(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, Authorize(p, ResourceUser, "update"), "permission removal must be visible on the next check")
	assert.True(t, Authorize(p, ResourceUser, "read"))

	// role deactivated underneath the principal
	require.NoError(t, db.Model(&models.Role{}).Where("id = ?", editor.ID).Update("active", false).Error)

	p, err = loader.LoadPrincipal(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, Authorize(p, ResourceUser, "read"), "role deactivation must be visible on the next check")
}

func TestLoaderSeesPrincipalDeactivation(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	mem := cache.NewMemory(time.Hour)
	require.NoError(t, cache.RegisterInvalidation(db, mem))

	admin := seedRole(t, db, "Admin", "user.manage")
	actor := seedUser(t, db, "admin@example.com", admin)
	target := seedUser(t, db, "target@example.com", admin)

	loader := NewLoader(db, mem)

	p, err := loader.LoadPrincipal(ctx, target.ID)
	require.NoError(t, err)
	assert.True(t, Authorize(p, ResourceUser, "delete"))

	_, _, err = user.Deactivate(ctx, db, actor.ID, target.ID)
	require.NoError(t, err)

	p, err = loader.LoadPrincipal(ctx, target.ID)
	require.NoError(t, err)
	assert.False(t, p.Active)
	assert.False(t, Authorize(p, ResourceUser, "delete"))
}
