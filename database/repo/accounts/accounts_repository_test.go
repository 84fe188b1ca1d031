package accounts

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/adamwrona/galleria/database/models"
	"github.com/adamwrona/galleria/database/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Gallery{}, &models.Image{}, &models.Comment{}))
	return db
}

func TestEnsureAdminBootstrap(t *testing.T) {
	r := NewRepository(newTestDB(t))

	password, err := r.EnsureAdmin("")
	require.NoError(t, err)
	assert.NotEmpty(t, password)

	admin, err := r.GetByUsername(models.AdminUsername)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, admin.IsAdmin())

	// Second call is a no-op and returns no password.
	password, err = r.EnsureAdmin("")
	require.NoError(t, err)
	assert.Empty(t, password)
}

func TestEnsureAdminRoleMigration(t *testing.T) {
	r := NewRepository(newTestDB(t))

	// A pre-existing "admin" user without the role column set.
	require.NoError(t, r.Create(&models.User{
		Username: models.AdminUsername,
		Name:     "Old",
		Surname:  "Admin",
		Password: "hash",
		Role:     models.RoleUser,
	}))

	password, err := r.EnsureAdmin("")
	require.NoError(t, err)
	assert.Empty(t, password)

	admin, err := r.GetByUsername(models.AdminUsername)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
}

func TestCreateCollatedUsernameConflict(t *testing.T) {
	r := NewRepository(newTestDB(t))

	require.NoError(t, r.Create(&models.User{Username: "Janek", Name: "Jan", Surname: "Kowalski", Password: "hash"}))

	// Same username under case-insensitive Polish collation.
	err := r.Create(&models.User{Username: "janek", Name: "Jan", Surname: "Nowak", Password: "hash"})
	assert.ErrorIs(t, err, repo.ErrConflict)

	// A genuinely different username is fine.
	assert.NoError(t, r.Create(&models.User{Username: "janko", Name: "Jan", Surname: "Nowak", Password: "hash"}))
}

func TestGetByUsernameIsExact(t *testing.T) {
	r := NewRepository(newTestDB(t))

	require.NoError(t, r.Create(&models.User{Username: "Maria", Name: "Maria", Surname: "Curie", Password: "hash"}))

	// Lookup is exact even though uniqueness is collated.
	_, err := r.GetByUsername("maria")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	user, err := r.GetByUsername("Maria")
	require.NoError(t, err)
	assert.Equal(t, "Maria", user.Username)
}

func TestDeleteUser(t *testing.T) {
	r := NewRepository(newTestDB(t))

	user := &models.User{Username: "doomed", Name: "Do", Surname: "Omed", Password: "hash"}
	require.NoError(t, r.Create(user))

	require.NoError(t, r.Delete(user.ID))
	assert.ErrorIs(t, r.Delete(user.ID), repo.ErrNotFound)

	// The username is reusable after deletion.
	assert.NoError(t, r.Create(&models.User{Username: "doomed", Name: "Do", Surname: "Omed", Password: "hash"}))
}
