package permission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/db/dbtest"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

func TestCreate(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)

	_, err := Create(ctx, db, "user", models.ActionRead, "", "")
	require.NoError(t, err)

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		resource      string
		action        models.Action
		permName      string
		expectedError error
		expectedName  string
	}{
		{
			name:          "nil database",
			resource:      "user",
			action:        models.ActionCreate,
			expectedError: ErrDBNil,
		},
		{
			name:          "empty resource",
			dbParam:       db,
			resource:      " ",
			action:        models.ActionCreate,
			expectedError: ErrResourceEmpty,
		},
		{
			name:          "invalid action",
			dbParam:       db,
			resource:      "user",
			action:        "approve",
			expectedError: ErrInvalidAction,
		},
		{
			name:          "duplicate pair",
			dbParam:       db,
			resource:      "user",
			action:        models.ActionRead,
			permName:      "read users",
			expectedError: ErrPermissionExists,
		},
		{
			name:          "duplicate name",
			dbParam:       db,
			resource:      "role",
			action:        models.ActionRead,
			permName:      "user.read",
			expectedError: ErrPermissionExists,
		},
		{
			name:         "default name",
			dbParam:      db,
			resource:     "user",
			action:       models.ActionManage,
			expectedName: "user.manage",
		},
		{
			name:         "explicit name",
			dbParam:      db,
			resource:     "role",
			action:       models.ActionUpdate,
			permName:     "edit roles",
			expectedName: "edit roles",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Create(ctx, tc.dbParam, tc.resource, tc.action, tc.permName, "")
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, p)

				return
			}

			require.NoError(t, err)
			assert.NotZero(t, p.ID)
			assert.Equal(t, tc.expectedName, p.Name)
		})
	}
}

func TestCreateConcurrentKey(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)

	dbtest.BeforeInsert(t, db, "permissions", func(tx *gorm.DB) error {
		now := time.Now().UTC()

		return tx.Exec(
			"INSERT INTO permissions (name, resource, action, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			"role.read", "role", "read", "", now, now,
		).Error
	})

	_, err := Create(ctx, db, "role", models.ActionRead, "", "")
	require.ErrorIs(t, err, ErrPermissionExists)
}

func TestGetAndFind(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)

	read, err := Create(ctx, db, "user", models.ActionRead, "", "")
	require.NoError(t, err)
	del, err := Create(ctx, db, "user", models.ActionDelete, "", "")
	require.NoError(t, err)

	got, err := Get(ctx, db, read.ID)
	require.NoError(t, err)
	assert.Equal(t, "user.read", got.Key())

	_, err = Get(ctx, db, 999)
	require.ErrorIs(t, err, ErrPermissionNotFound)

	got, err = GetByKey(ctx, db, "user", models.ActionDelete)
	require.NoError(t, err)
	assert.Equal(t, del.ID, got.ID)

	found, err := FindByIDs(ctx, db, []uint{del.ID, read.ID, read.ID})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	_, err = FindByIDs(ctx, db, []uint{read.ID, 999})
	require.ErrorIs(t, err, ErrPermissionNotFound)

	found, err = FindByIDs(ctx, db, nil)
	require.NoError(t, err)
	assert.Empty(t, found)

	all, err := GetAll(ctx, db)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.ActionDelete, all[0].Action)
}

func TestUpdateDescription(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)

	p, err := Create(ctx, db, "audit", models.ActionRead, "", "old")
	require.NoError(t, err)

	before, updated, err := UpdateDescription(ctx, db, p.ID, "read the audit trail")
	require.NoError(t, err)
	assert.Equal(t, "old", before.Description)
	assert.Equal(t, "read the audit trail", updated.Description)

	reloaded, err := Get(ctx, db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "read the audit trail", reloaded.Description)
	assert.Equal(t, "audit.read", reloaded.Name)

	_, _, err = UpdateDescription(ctx, db, 999, "x")
	require.ErrorIs(t, err, ErrPermissionNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)

	used, err := Create(ctx, db, "user", models.ActionRead, "", "")
	require.NoError(t, err)
	inactiveOnly, err := Create(ctx, db, "user", models.ActionUpdate, "", "")
	require.NoError(t, err)
	free, err := Create(ctx, db, "user", models.ActionCreate, "", "")
	require.NoError(t, err)

	active := models.Role{Name: "Manager", Active: true, Permissions: []models.Permission{*used}}
	require.NoError(t, db.Create(&active).Error)

	retired := models.Role{Name: "Retired", Active: false, Permissions: []models.Permission{*inactiveOnly}}
	require.NoError(t, db.Create(&retired).Error)

	testCases := []struct {
		name          string
		id            uint
		expectedError error
	}{
		{name: "referenced by active role", id: used.ID, expectedError: ErrPermissionInUse},
		{name: "referenced by inactive role only", id: inactiveOnly.ID},
		{name: "unreferenced", id: free.ID},
		{name: "not found", id: 999, expectedError: ErrPermissionNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Delete(ctx, db, tc.id)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}

			require.NoError(t, err)

			_, err = Get(ctx, db, tc.id)
			require.ErrorIs(t, err, ErrPermissionNotFound)
		})
	}

	var links int64
	require.NoError(t, db.Model(&models.RolePermission{}).Where("role_id = ?", retired.ID).Count(&links).Error)
	assert.Zero(t, links)

	require.ErrorIs(t, Delete(ctx, nil, used.ID), ErrDBNil)
}
