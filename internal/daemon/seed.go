package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/auth"
	"github.com/farah699/Users-Permissions-Backend/internal/config"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/permission"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/role"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/user"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

const (
	// AdminRole holds manage on every built-in resource.
	AdminRole = "Admin"
	// ManagerRole may read users.
	ManagerRole = "Manager"
)

// SeedResult reports what Seed created.
type SeedResult struct {
	Permissions int
	Roles       []string
	AdminEmail  string
}

// Seed creates the permission catalog, the Admin and Manager roles and, on a
// database without users, the bootstrap administrator. Existing rows are kept,
// so running it again is safe.
func Seed(ctx context.Context, db *gorm.DB, cfg config.Seed) (*SeedResult, error) {
	res := &SeedResult{}

	var manageIDs, userReadIDs []uint

	for _, entry := range auth.Catalog() {
		p, err := permission.GetByKey(ctx, db, entry.Resource, entry.Action)
		if errors.Is(err, permission.ErrPermissionNotFound) {
			p, err = permission.Create(ctx, db, entry.Resource, entry.Action, "", entry.Description)
			if err == nil {
				res.Permissions++
			}
		}

		if err != nil {
			return nil, fmt.Errorf("failed to seed permission %s.%s: %w", entry.Resource, entry.Action, err)
		}

		switch {
		case entry.Action == models.ActionManage:
			manageIDs = append(manageIDs, p.ID)
		case entry.Resource == auth.ResourceUser && entry.Action == models.ActionRead:
			userReadIDs = append(userReadIDs, p.ID)
		}
	}

	adminRole, created, err := ensureRole(ctx, db, AdminRole, "Full control over every resource", manageIDs)
	if err != nil {
		return nil, err
	}

	if created {
		res.Roles = append(res.Roles, AdminRole)
	}

	if _, created, err = ensureRole(ctx, db, ManagerRole, "Read access to users", userReadIDs); err != nil {
		return nil, err
	}

	if created {
		res.Roles = append(res.Roles, ManagerRole)
	}

	if cfg.AdminEmail == "" {
		return res, nil
	}

	var count int64
	if err = db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	if count > 0 {
		return res, nil
	}

	admin, err := user.Create(ctx, db, user.NewUser{
		Email:         cfg.AdminEmail,
		Password:      cfg.AdminPassword,
		EmailVerified: true,
		RoleIDs:       []uint{adminRole.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	res.AdminEmail = admin.Email

	log.Info().Str("email", admin.Email).Msg("bootstrap administrator created")

	return res, nil
}

func ensureRole(ctx context.Context, db *gorm.DB, name, description string, permissionIDs []uint) (*models.Role, bool, error) {
	r, err := role.GetByName(ctx, db, name)
	if err == nil {
		return r, false, nil
	}

	if !errors.Is(err, role.ErrRoleNotFound) {
		return nil, false, fmt.Errorf("failed to look up role %s: %w", name, err)
	}

	r, err = role.Create(ctx, db, name, description, permissionIDs)
	if err != nil {
		return nil, false, fmt.Errorf("failed to seed role %s: %w", name, err)
	}

	return r, true, nil
}
