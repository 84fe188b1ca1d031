package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"

	"github.com/adamwrona/galleria/database/models"
	"github.com/adamwrona/galleria/database/repo"
	"github.com/adamwrona/galleria/database/repo/accounts"
	"github.com/adamwrona/galleria/internal/auth"
	"github.com/adamwrona/galleria/internal/policy"
	"github.com/adamwrona/galleria/utils/crypto"
	"github.com/adamwrona/galleria/web/common"
)

// UserHandler serves registration, login and the admin user management pages.
type UserHandler struct {
	accounts     *accounts.Repository
	login        *auth.LoginService
	cookieMaxAge time.Duration
}

func NewUserHandler(accountsRepo *accounts.Repository, login *auth.LoginService, cookieMaxAge time.Duration) *UserHandler {
	return &UserHandler{
		accounts:     accountsRepo,
		login:        login,
		cookieMaxAge: cookieMaxAge,
	}
}

// List renders the user list. Admin-only (the Authorize middleware on the
// route runs the policy check).
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.accounts.WithContext(c.Request.Context()).List()
	if err != nil {
		renderError(c, err)
		return
	}
	common.Render(c, http.StatusOK, "user_list.html", gin.H{
		"title":     "List of users",
		"user_list": users,
	})
}

// AddGet renders the registration form.
func (h *UserHandler) AddGet(c *gin.Context) {
	common.Render(c, http.StatusOK, "user_form.html", gin.H{
		"title": "Add New User",
	})
}

// AddPost validates and creates a user.
func (h *UserHandler) AddPost(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	surname := strings.TrimSpace(c.PostForm("surname"))
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")

	var messages []string
	if len(name) < 2 {
		messages = append(messages, "First name too short.")
	}
	if len(surname) < 2 {
		messages = append(messages, "Lastname too short.")
	}
	if len(username) < 3 {
		messages = append(messages, "Username must be at least 3 characters long.")
	}
	if !isAlphanumeric(username) {
		messages = append(messages, "Username must contain only letters and numbers.")
	}
	if len(password) < 8 {
		messages = append(messages, "Password to short!")
	}

	newUser := &models.User{
		Username: username,
		Name:     name,
		Surname:  surname,
		Role:     models.RoleUser,
	}

	if len(messages) > 0 {
		common.Render(c, http.StatusOK, "user_form.html", gin.H{
			"title":    "Add New User",
			"user":     newUser,
			"messages": messages,
		})
		return
	}

	hashed, err := crypto.GenerateFromPassword(password)
	if err != nil {
		renderError(c, err)
		return
	}
	newUser.Password = hashed

	err = h.accounts.WithContext(c.Request.Context()).Create(newUser)
	if errors.Is(err, repo.ErrConflict) {
		common.Render(c, http.StatusOK, "user_form.html", gin.H{
			"title":    "Add New User",
			"user":     newUser,
			"messages": []string{`Username "` + username + `" already exists!`},
		})
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}

	common.Render(c, http.StatusOK, "user_form.html", gin.H{
		"title":    "Add New User",
		"user":     &models.User{},
		"messages": []string{`Username "` + username + `" added`},
	})
}

// LoginGet renders the login form.
func (h *UserHandler) LoginGet(c *gin.Context) {
	common.Render(c, http.StatusOK, "user_login_form.html", gin.H{
		"title": "Login",
	})
}

// LoginPost checks credentials, sets the session cookie and redirects home.
// The cookie max-age is configured independently of the token TTL.
func (h *UserHandler) LoginPost(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")

	result, err := h.login.Login(username, password)
	switch {
	case errors.Is(err, auth.ErrUnknownUser):
		common.Render(c, http.StatusOK, "user_login_form.html", gin.H{
			"title":    "Login",
			"messages": []string{"No user found!"},
		})
		return
	case errors.Is(err, auth.ErrBadPassword):
		common.Render(c, http.StatusOK, "user_login_form.html", gin.H{
			"title":    "Login",
			"messages": []string{"Bad pass!"},
		})
		return
	case err != nil:
		renderError(c, err)
		return
	}

	c.SetCookie(auth.CookieName, result.Token, int(h.cookieMaxAge.Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

// LogoutGet clears the session cookie and renders the home page.
func (h *UserHandler) LogoutGet(c *gin.Context) {
	c.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
	common.SetCurrentUser(c, nil)
	common.RenderHome(c)
}

// DeletePost removes a user. This endpoint answers with raw status codes, not
// rendered pages.
func (h *UserHandler) DeletePost(c *gin.Context) {
	actor := common.CurrentUser(c)
	if actor == nil {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return
	}

	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		c.String(http.StatusNotFound, "User not found.")
		return
	}

	switch verdict := policy.Decide(actor, policy.UserDelete, policy.Resource{TargetUserID: uint(userID)}); verdict {
	case policy.Allow:
	case policy.DenySelfDelete:
		c.String(http.StatusBadRequest, "You cannot delete your own account.")
		return
	default:
		c.String(http.StatusForbidden, "Forbidden")
		return
	}

	err = h.accounts.WithContext(c.Request.Context()).Delete(uint(userID))
	if errors.Is(err, repo.ErrNotFound) {
		c.String(http.StatusNotFound, "User not found.")
		return
	}
	if err != nil {
		c.String(http.StatusInternalServerError, "Error deleting user")
		return
	}

	c.Redirect(http.StatusFound, "/users/")
}

func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
