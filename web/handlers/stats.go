package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adamwrona/galleria/database/repo/stats"
	"github.com/adamwrona/galleria/web/common"
)

// StatsHandler serves the aggregate statistics page. Read-only; no policy
// gate beyond the authentication middleware resolving the identity.
type StatsHandler struct {
	stats *stats.Repository
}

func NewStatsHandler(statsRepo *stats.Repository) *StatsHandler {
	return &StatsHandler{stats: statsRepo}
}

// List renders the site-wide entity counts.
func (h *StatsHandler) List(c *gin.Context) {
	overview, err := h.stats.GetOverview(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}

	common.Render(c, http.StatusOK, "stat_browse.html", gin.H{
		"title":     "Statistics",
		"users":     overview.Users,
		"galleries": overview.Galleries,
		"images":    overview.Images,
	})
}
