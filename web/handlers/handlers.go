// Package handlers contains the page handlers. Every mutation follows the
// same shape: resolve identity (middleware), validate the form, load the
// target, consult the access policy, run the store operation, then render or
// redirect. Soft failures re-render with a message; only the API-style
// endpoints answer with raw status codes.
package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adamwrona/galleria/web/common"
)

// renderError reports an unexpected failure as a generic 500 page. Expected
// failures never reach this; they are converted to messages upstream.
func renderError(c *gin.Context, err error) {
	log.Printf("unexpected error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	common.Render(c, http.StatusInternalServerError, "error.html", gin.H{
		"title":   "Error",
		"message": "Something went wrong.",
	})
}

// Home renders the landing page with the resolved identity attached.
func Home(c *gin.Context) {
	common.RenderHome(c)
}
