package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/adamwrona/galleria/database/repo/accounts"
	"github.com/adamwrona/galleria/internal/auth"
	"github.com/adamwrona/galleria/internal/policy"
	"github.com/adamwrona/galleria/web/common"
)

// Authenticate resolves the session cookie into an actor and stores it on
// the request context. It NEVER rejects a request: a missing, malformed,
// expired or badly signed token, and a username claim with no matching user,
// all resolve to anonymous and the handler decides what anonymous may do.
func Authenticate(tokens *auth.TokenService, accountsRepo *accounts.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		common.SetCurrentUser(c, nil)

		tokenString, err := c.Cookie(auth.CookieName)
		if err != nil || tokenString == "" {
			c.Next()
			return
		}

		username, err := tokens.Parse(tokenString)
		if err != nil {
			c.Next()
			return
		}

		user, err := accountsRepo.WithContext(c.Request.Context()).GetByUsername(username)
		if err != nil {
			c.Next()
			return
		}

		common.SetCurrentUser(c, user)
		c.Next()
	}
}

// Authorize gates a route on a policy decision for the current user. Denied
// callers (including anonymous visitors) get the home page with an
// access-denied message, not a 403 body.
func Authorize(action policy.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		verdict := policy.Decide(common.CurrentUser(c), action, policy.Resource{})
		if !verdict.Allowed() {
			common.RenderHome(c, common.MsgAdminsOnly)
			c.Abort()
			return
		}
		c.Next()
	}
}
