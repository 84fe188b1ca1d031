package handlers_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/adamwrona/galleria/config"
	"github.com/adamwrona/galleria/database/models"
	"github.com/adamwrona/galleria/database/repo/accounts"
	"github.com/adamwrona/galleria/database/repo/comments"
	"github.com/adamwrona/galleria/database/repo/galleries"
	"github.com/adamwrona/galleria/database/repo/images"
	"github.com/adamwrona/galleria/database/repo/stats"
	"github.com/adamwrona/galleria/internal/auth"
	"github.com/adamwrona/galleria/storage/local"
	"github.com/adamwrona/galleria/utils/crypto"
	"github.com/adamwrona/galleria/web/core"
	"github.com/adamwrona/galleria/web/middleware"
)

type testApp struct {
	router  *gin.Engine
	db      *gorm.DB
	tokens  *auth.TokenService
	storage *local.Storage

	accounts  *accounts.Repository
	galleries *galleries.Repository
	images    *images.Repository
	comments  *comments.Repository
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Gallery{}, &models.Image{}, &models.Comment{}))

	accountsRepo := accounts.NewRepository(db)
	galleriesRepo := galleries.NewRepository(db)
	imagesRepo := images.NewRepository(db)
	commentsRepo := comments.NewRepository(db)
	statsRepo := stats.NewRepository(db)

	uploadStorage, err := local.NewStorage(t.TempDir())
	require.NoError(t, err)

	tokens := auth.NewTokenService("test-secret", time.Hour)
	login := auth.NewLoginService(accountsRepo, tokens)

	limiter := middleware.NewIPRateLimiter(1000, 1000, time.Minute)
	t.Cleanup(limiter.StopCleanup)

	router := gin.New()
	router.LoadHTMLGlob("../../templates/*.html")
	core.RegisterRoutes(router, &core.RouterDependencies{
		AccountsRepo:    accountsRepo,
		GalleriesRepo:   galleriesRepo,
		ImagesRepo:      imagesRepo,
		CommentsRepo:    commentsRepo,
		StatsRepo:       statsRepo,
		Tokens:          tokens,
		Login:           login,
		Storage:         uploadStorage,
		AuthRateLimiter: limiter,
		Config: &config.Config{
			AuthCookieMaxAge: 10 * time.Minute,
			UploadMaxSizeMB:  10,
			UploadDir:        t.TempDir(),
		},
	})

	return &testApp{
		router:    router,
		db:        db,
		tokens:    tokens,
		storage:   uploadStorage,
		accounts:  accountsRepo,
		galleries: galleriesRepo,
		images:    imagesRepo,
		comments:  commentsRepo,
	}
}

func createPasswordHash(t *testing.T, password string) string {
	t.Helper()
	hashed, err := crypto.GenerateFromPassword(password)
	require.NoError(t, err)
	return hashed
}

func (a *testApp) createUser(t *testing.T, username string, role string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Name: "Test", Surname: "User", Password: "hash", Role: role}
	require.NoError(t, a.accounts.Create(user))
	return user
}

func (a *testApp) sessionCookie(t *testing.T, username string) *http.Cookie {
	t.Helper()
	token, _, err := a.tokens.Generate(username)
	require.NoError(t, err)
	return &http.Cookie{Name: auth.CookieName, Value: token}
}

func (a *testApp) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) postForm(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestAnonymousGalleryListRendersMessage(t *testing.T) {
	app := newTestApp(t)

	w := app.get("/galleries/", nil)

	// Soft failure: HTTP 200 with an empty list and the unauthorized message.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Unauthorized: You must be logged in.")
}

func TestNonAdminUserListDenied(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", models.RoleUser)

	w := app.get("/users/", app.sessionCookie(t, "alice"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Access denied. Admins only.")
}

func TestLoginFlow(t *testing.T) {
	app := newTestApp(t)

	hashed := createPasswordHash(t, "correct horse")
	require.NoError(t, app.accounts.Create(&models.User{
		Username: "alice", Name: "A", Surname: "A", Password: hashed,
	}))

	w := app.postForm("/users/user_login", url.Values{
		"username": {"alice"},
		"password": {"correct horse"},
	}, nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.NotEmpty(t, sessionCookie.Value)

	username, err := app.tokens.Parse(sessionCookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestLoginFailureMessages(t *testing.T) {
	app := newTestApp(t)

	hashed := createPasswordHash(t, "correct horse")
	require.NoError(t, app.accounts.Create(&models.User{
		Username: "alice", Name: "A", Surname: "A", Password: hashed,
	}))

	w := app.postForm("/users/user_login", url.Values{
		"username": {"nobody"},
		"password": {"whatever"},
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No user found!")

	w = app.postForm("/users/user_login", url.Values{
		"username": {"alice"},
		"password": {"wrong"},
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Bad pass!")
}

func TestAdminDeletesOtherUser(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "admin", models.RoleAdmin)
	victim := app.createUser(t, "bob", models.RoleUser)

	w := app.postForm(fmt.Sprintf("/users/user_delete/%d", victim.ID), nil, app.sessionCookie(t, "admin"))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/users/", w.Header().Get("Location"))

	_, err := app.accounts.GetByID(victim.ID)
	assert.Error(t, err)
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	app := newTestApp(t)
	admin := app.createUser(t, "admin", models.RoleAdmin)

	w := app.postForm(fmt.Sprintf("/users/user_delete/%d", admin.ID), nil, app.sessionCookie(t, "admin"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "You cannot delete your own account.")

	_, err := app.accounts.GetByID(admin.ID)
	assert.NoError(t, err)
}

func TestNonAdminCannotDeleteUsers(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", models.RoleUser)
	victim := app.createUser(t, "bob", models.RoleUser)

	w := app.postForm(fmt.Sprintf("/users/user_delete/%d", victim.ID), nil, app.sessionCookie(t, "alice"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.postForm(fmt.Sprintf("/users/user_delete/%d", victim.ID), nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserAddValidationAndConflict(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "admin", models.RoleAdmin)
	cookie := app.sessionCookie(t, "admin")

	w := app.postForm("/users/user_add", url.Values{
		"name":     {"J"},
		"surname":  {"K"},
		"username": {"j!"},
		"password": {"short"},
	}, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "First name too short.")
	assert.Contains(t, body, "Lastname too short.")
	assert.Contains(t, body, "Username must be at least 3 characters long.")
	assert.Contains(t, body, "Username must contain only letters and numbers.")
	assert.Contains(t, body, "Password to short!")

	form := url.Values{
		"name":     {"Jan"},
		"surname":  {"Kowalski"},
		"username": {"janek"},
		"password": {"longenough"},
	}
	w = app.postForm("/users/user_add", form, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `Username &#34;janek&#34; added`)

	// Collated duplicate.
	form.Set("username", "JANEK")
	w = app.postForm("/users/user_add", form, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "already exists!")
}

func TestNonAdminUserAddDenied(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", models.RoleUser)

	w := app.postForm("/users/user_add", url.Values{
		"name":     {"Jan"},
		"surname":  {"Kowalski"},
		"username": {"janek"},
		"password": {"longenough"},
	}, app.sessionCookie(t, "alice"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Access denied. Admins only.")

	_, err := app.accounts.GetByUsername("janek")
	assert.Error(t, err)
}

func TestGalleryDeleteGuards(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser(t, "alice", models.RoleUser)
	app.createUser(t, "bob", models.RoleUser)

	gallery := &models.Gallery{Name: "Trip", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), UserID: alice.ID}
	require.NoError(t, app.galleries.Create(gallery))
	image := &models.Image{Name: "Sunset", Path: "/uploads/a.jpg", GalleryID: gallery.ID}
	require.NoError(t, app.images.Create(image))

	// Non-owner is turned away with a message page.
	w := app.postForm(fmt.Sprintf("/galleries/gallery_delete/%d", gallery.ID), nil, app.sessionCookie(t, "bob"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Forbidden: you can only delete your own galleries.")

	// The owner cannot delete a non-empty gallery.
	w = app.postForm(fmt.Sprintf("/galleries/gallery_delete/%d", gallery.ID), nil, app.sessionCookie(t, "alice"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cannot delete gallery: gallery is not empty.")

	require.NoError(t, app.images.Delete(image.ID))

	w = app.postForm(fmt.Sprintf("/galleries/gallery_delete/%d", gallery.ID), nil, app.sessionCookie(t, "alice"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Gallery deleted successfully.")
}

func TestImageDeleteOwnership(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser(t, "alice", models.RoleUser)
	app.createUser(t, "bob", models.RoleUser)
	app.createUser(t, "admin", models.RoleAdmin)

	gallery := &models.Gallery{Name: "Trip", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), UserID: alice.ID}
	require.NoError(t, app.galleries.Create(gallery))
	image := &models.Image{Name: "Sunset", Path: "/uploads/a.jpg", GalleryID: gallery.ID}
	require.NoError(t, app.images.Create(image))

	// Raw status codes on the image endpoints.
	w := app.postForm(fmt.Sprintf("/images/image_delete/%d", image.ID), nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.postForm(fmt.Sprintf("/images/image_delete/%d", image.ID), nil, app.sessionCookie(t, "bob"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.postForm("/images/image_delete/99999", nil, app.sessionCookie(t, "alice"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Admin may delete anyone's image.
	w = app.postForm(fmt.Sprintf("/images/image_delete/%d", image.ID), nil, app.sessionCookie(t, "admin"))
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestImageDeleteRemovesFile(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser(t, "alice", models.RoleUser)

	filePath := filepath.Join(app.storage.BasePath(), "sunset.jpg")
	require.NoError(t, os.WriteFile(filePath, []byte("jpeg bytes"), 0644))

	gallery := &models.Gallery{Name: "Trip", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), UserID: alice.ID}
	require.NoError(t, app.galleries.Create(gallery))
	image := &models.Image{Name: "Sunset", Path: "/uploads/sunset.jpg", GalleryID: gallery.ID}
	require.NoError(t, app.images.Create(image))

	w := app.postForm(fmt.Sprintf("/images/image_delete/%d", image.ID), nil, app.sessionCookie(t, "alice"))
	assert.Equal(t, http.StatusFound, w.Code)

	_, err := os.Stat(filePath)
	assert.True(t, os.IsNotExist(err))
}

func TestCommentEditOpenToAnyAuthenticated(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser(t, "alice", models.RoleUser)
	app.createUser(t, "bob", models.RoleUser)

	gallery := &models.Gallery{Name: "Trip", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), UserID: alice.ID}
	require.NoError(t, app.galleries.Create(gallery))
	image := &models.Image{Name: "Sunset", Path: "/uploads/a.jpg", GalleryID: gallery.ID}
	require.NoError(t, app.images.Create(image))
	comment := &models.Comment{ImageID: image.ID, GalleryID: gallery.ID, AuthorID: alice.ID, Content: "mine"}
	require.NoError(t, app.comments.Create(comment))

	// Bob is not the author but may edit anyway.
	w := app.postForm(fmt.Sprintf("/comments/comment_edit/%d", comment.ID), url.Values{
		"content": {"rewritten"},
	}, app.sessionCookie(t, "bob"))
	assert.Equal(t, http.StatusFound, w.Code)

	updated, err := app.comments.GetByID(comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", updated.Content)

	// Anonymous visitors are still turned away.
	w = app.postForm(fmt.Sprintf("/comments/comment_delete/%d", comment.ID), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Unauthorized: You must be logged in.")
}

func TestCommentAddAndShow(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser(t, "alice", models.RoleUser)

	gallery := &models.Gallery{Name: "Trip", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), UserID: alice.ID}
	require.NoError(t, app.galleries.Create(gallery))
	image := &models.Image{Name: "Sunset", Path: "/uploads/a.jpg", GalleryID: gallery.ID}
	require.NoError(t, app.images.Create(image))

	w := app.postForm(fmt.Sprintf("/comments/comment_add/%d", image.ID), url.Values{
		"content": {"what a view"},
	}, app.sessionCookie(t, "alice"))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/images/image_show?image_id=%d", image.ID), w.Header().Get("Location"))

	w = app.get(fmt.Sprintf("/images/image_show?image_id=%d", image.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "what a view")
}

func TestCommentContentLimits(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser(t, "alice", models.RoleUser)
	cookie := app.sessionCookie(t, "alice")

	gallery := &models.Gallery{Name: "Trip", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), UserID: alice.ID}
	require.NoError(t, app.galleries.Create(gallery))
	image := &models.Image{Name: "Sunset", Path: "/uploads/a.jpg", GalleryID: gallery.ID}
	require.NoError(t, app.images.Create(image))

	addURL := fmt.Sprintf("/comments/comment_add/%d", image.ID)

	w := app.postForm(addURL, url.Values{"content": {""}}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing required fields.")

	// The limit is 250 characters, not bytes; "ż" is two bytes in UTF-8.
	w = app.postForm(addURL, url.Values{"content": {strings.Repeat("ż", 250)}}, cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/images/image_show?image_id=%d", image.ID), w.Header().Get("Location"))

	w = app.postForm(addURL, url.Values{"content": {strings.Repeat("ż", 251)}}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Comment too long.")
}

func TestStatsPage(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser(t, "alice", models.RoleUser)

	gallery := &models.Gallery{Name: "Trip", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), UserID: alice.ID}
	require.NoError(t, app.galleries.Create(gallery))

	w := app.get("/stats/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Statistics")
}
