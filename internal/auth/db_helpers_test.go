package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/permission"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/role"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/user"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

const testPassword = "correct-horse-battery"

// seedRole creates a role holding the given "resource.action" grants.
func seedRole(t *testing.T, db *gorm.DB, name string, grants ...string) *models.Role {
	t.Helper()

	ctx := context.Background()
	ids := make([]uint, 0, len(grants))

	for _, g := range grants {
		resource, action, ok := strings.Cut(g, ".")
		require.True(t, ok, g)

		p, err := permission.GetByKey(ctx, db, resource, models.Action(action))
		if err != nil {
			p, err = permission.Create(ctx, db, resource, models.Action(action), "", "")
			require.NoError(t, err)
		}

		ids = append(ids, p.ID)
	}

	r, err := role.Create(ctx, db, name, "", ids)
	require.NoError(t, err)

	return r
}

func seedUser(t *testing.T, db *gorm.DB, email string, roles ...*models.Role) *models.User {
	t.Helper()

	ids := make([]uint, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}

	u, err := user.Create(context.Background(), db, user.NewUser{
		Email:    email,
		Password: testPassword,
		RoleIDs:  ids,
	})
	require.NoError(t, err)

	return u
}
