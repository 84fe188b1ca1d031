// Package common holds the identity context keys and the template render
// helpers shared by every handler.
package common

import (
	"github.com/gin-gonic/gin"

	"github.com/adamwrona/galleria/database/models"
)

// ContextUserKey is the gin context key holding the resolved actor
// (*models.User). Absent or nil means anonymous.
const ContextUserKey = "current_user"

// Page titles reused across handlers.
const (
	TitleHome = "Gallery App"
)

// Messages the handlers render for denied or anonymous requests.
const (
	MsgUnauthorized = "Unauthorized: You must be logged in."
	MsgAdminsOnly   = "Access denied. Admins only."
)

// SetCurrentUser stores the resolved actor on the request context.
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(ContextUserKey, user)
}

// CurrentUser returns the resolved actor, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// Render renders an HTML template, attaching the resolved identity so every
// page can show the logged-in user. Soft failures (validation, forbidden,
// not-found with a message) still render with HTTP 200, matching the
// application's message-based error style.
func Render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if _, ok := data["loggedUser"]; !ok {
		if user := CurrentUser(c); user != nil {
			data["loggedUser"] = user.Username
			data["isAdmin"] = user.IsAdmin()
		} else {
			data["loggedUser"] = ""
			data["isAdmin"] = false
		}
	}
	c.HTML(status, name, data)
}

// RenderHome renders the home page with optional messages.
func RenderHome(c *gin.Context, messages ...string) {
	Render(c, 200, "index.html", gin.H{
		"title":    TitleHome,
		"messages": messages,
	})
}
