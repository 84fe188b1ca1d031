package galleries

import (
	"path/filepath"
	"testing"
	"time"

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

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Name: "Test", Surname: "User", Password: "hash"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestCreateCollatedNameConflictPerOwner(t *testing.T) {
	db := newTestDB(t)
	r := NewRepository(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.Create(&models.Gallery{Name: "Trip", Date: date, UserID: alice.ID}))

	// Case-insensitive duplicate for the same owner.
	err := r.Create(&models.Gallery{Name: "TRIP", Date: date, UserID: alice.ID})
	assert.ErrorIs(t, err, repo.ErrConflict)

	// The same name under a different owner is allowed.
	assert.NoError(t, r.Create(&models.Gallery{Name: "Trip", Date: date, UserID: bob.ID}))
}

func TestCreatePolishCollation(t *testing.T) {
	db := newTestDB(t)
	r := NewRepository(db)
	alice := createUser(t, db, "alice")

	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.Create(&models.Gallery{Name: "Góry", Date: date, UserID: alice.ID}))

	// Strength-2 collation keeps base letters and diacritics distinct, so
	// "Gory" is a different name.
	assert.NoError(t, r.Create(&models.Gallery{Name: "Gory", Date: date, UserID: alice.ID}))

	// Only case folds together.
	err := r.Create(&models.Gallery{Name: "GÓRY", Date: date, UserID: alice.ID})
	assert.ErrorIs(t, err, repo.ErrConflict)
}

func TestUpdateConflict(t *testing.T) {
	db := newTestDB(t)
	r := NewRepository(db)
	alice := createUser(t, db, "alice")

	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	first := &models.Gallery{Name: "Summer", Date: date, UserID: alice.ID}
	second := &models.Gallery{Name: "Winter", Date: date, UserID: alice.ID}
	require.NoError(t, r.Create(first))
	require.NoError(t, r.Create(second))

	second.Name = "summer"
	assert.ErrorIs(t, r.Update(second), repo.ErrConflict)
}

func TestDeleteEmptyGalleryGuard(t *testing.T) {
	db := newTestDB(t)
	r := NewRepository(db)
	alice := createUser(t, db, "alice")

	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	gallery := &models.Gallery{Name: "Holidays", Date: date, UserID: alice.ID}
	require.NoError(t, r.Create(gallery))

	image := &models.Image{Name: "Beach", Path: "/uploads/a.jpg", GalleryID: gallery.ID}
	require.NoError(t, db.Create(image).Error)

	count, err := r.CountImages(gallery.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Non-empty galleries are not deletable, the store re-checks inside its
	// transaction.
	assert.ErrorIs(t, r.Delete(gallery.ID), repo.ErrGalleryNotEmpty)

	require.NoError(t, db.Delete(image).Error)
	assert.NoError(t, r.Delete(gallery.ID))
	assert.ErrorIs(t, r.Delete(gallery.ID), repo.ErrNotFound)
}

func TestListByOwner(t *testing.T) {
	db := newTestDB(t)
	r := NewRepository(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.Create(&models.Gallery{Name: "Zoo", Date: date, UserID: alice.ID}))
	require.NoError(t, r.Create(&models.Gallery{Name: "Alps", Date: date, UserID: alice.ID}))
	require.NoError(t, r.Create(&models.Gallery{Name: "City", Date: date, UserID: bob.ID}))

	own, err := r.ListByOwner(alice.ID)
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, "Alps", own[0].Name)
	assert.Equal(t, "Zoo", own[1].Name)

	all, err := r.ListAll()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
