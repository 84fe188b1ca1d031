package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adamwrona/galleria/database/models"
	"github.com/adamwrona/galleria/database/repo"
	"github.com/adamwrona/galleria/database/repo/accounts"
	"github.com/adamwrona/galleria/database/repo/galleries"
	"github.com/adamwrona/galleria/database/repo/images"
	"github.com/adamwrona/galleria/internal/policy"
	"github.com/adamwrona/galleria/web/common"
)

const galleryDateLayout = "2006-01-02"

// GalleryHandler serves the gallery CRUD pages.
type GalleryHandler struct {
	galleries *galleries.Repository
	images    *images.Repository
	accounts  *accounts.Repository
}

func NewGalleryHandler(galleriesRepo *galleries.Repository, imagesRepo *images.Repository, accountsRepo *accounts.Repository) *GalleryHandler {
	return &GalleryHandler{
		galleries: galleriesRepo,
		images:    imagesRepo,
		accounts:  accountsRepo,
	}
}

// renderList renders the gallery list scoped to the actor: everything for an
// admin, own galleries otherwise, an empty list with a message for anonymous
// visitors. Always HTTP 200.
func (h *GalleryHandler) renderList(c *gin.Context, messages ...string) {
	actor := common.CurrentUser(c)
	if actor == nil {
		common.Render(c, http.StatusOK, "gallery_list.html", gin.H{
			"title":        "List of Galleries",
			"gallery_list": []*models.Gallery{},
			"messages":     append([]string{}, messages...),
		})
		return
	}

	var (
		list []*models.Gallery
		err  error
	)
	repoCtx := h.galleries.WithContext(c.Request.Context())
	if actor.IsAdmin() {
		list, err = repoCtx.ListAll()
	} else {
		list, err = repoCtx.ListByOwner(actor.ID)
	}
	if err != nil {
		renderError(c, err)
		return
	}

	common.Render(c, http.StatusOK, "gallery_list.html", gin.H{
		"title":        "List of Galleries",
		"gallery_list": list,
		"messages":     messages,
	})
}

// List renders the gallery list.
func (h *GalleryHandler) List(c *gin.Context) {
	if common.CurrentUser(c) == nil {
		h.renderList(c, common.MsgUnauthorized)
		return
	}
	h.renderList(c)
}

// addFormData assembles the add-form context. Admins get a user picker so
// they can assign any owner; regular users always own what they create.
func (h *GalleryHandler) addFormData(c *gin.Context, actor *models.User, gallery *models.Gallery, messages []string) (string, gin.H, error) {
	data := gin.H{
		"title":    "Add Gallery",
		"gallery":  gallery,
		"owner":    actor,
		"messages": messages,
	}
	if !actor.IsAdmin() {
		return "gallery_form.html", data, nil
	}

	users, err := h.accounts.WithContext(c.Request.Context()).List()
	if err != nil {
		return "", nil, err
	}
	data["users"] = users
	return "gallery_admin_form.html", data, nil
}

// AddGet renders the gallery creation form.
func (h *GalleryHandler) AddGet(c *gin.Context) {
	actor := common.CurrentUser(c)
	if actor == nil {
		h.renderList(c, common.MsgUnauthorized)
		return
	}

	name, data, err := h.addFormData(c, actor, &models.Gallery{}, nil)
	if err != nil {
		renderError(c, err)
		return
	}
	common.Render(c, http.StatusOK, name, data)
}

// AddPost validates and creates a gallery.
func (h *GalleryHandler) AddPost(c *gin.Context) {
	actor := common.CurrentUser(c)
	if actor == nil {
		h.renderList(c, common.MsgUnauthorized)
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	description := strings.TrimSpace(c.PostForm("description"))
	dateField := strings.TrimSpace(c.PostForm("date"))

	var messages []string
	if len(name) < 2 {
		messages = append(messages, "Name too short.")
	}
	date, dateErr := time.Parse(galleryDateLayout, dateField)
	if dateErr != nil {
		messages = append(messages, "Date cannot be empty.")
	}

	// Admins may assign any owner; everyone else owns their own galleries.
	ownerID := actor.ID
	if actor.IsAdmin() {
		if id, err := strconv.ParseUint(c.PostForm("user"), 10, 32); err == nil {
			ownerID = uint(id)
		}
	}

	newGallery := &models.Gallery{
		Name:        name,
		Description: description,
		Date:        date,
		UserID:      ownerID,
	}

	if len(messages) > 0 {
		tmpl, data, err := h.addFormData(c, actor, newGallery, messages)
		if err != nil {
			renderError(c, err)
			return
		}
		common.Render(c, http.StatusOK, tmpl, data)
		return
	}

	if verdict := policy.Decide(actor, policy.GalleryCreate, policy.Resource{OwnerID: ownerID}); !verdict.Allowed() {
		h.renderList(c, common.MsgUnauthorized)
		return
	}

	err := h.galleries.WithContext(c.Request.Context()).Create(newGallery)
	if errors.Is(err, repo.ErrConflict) {
		tmpl, data, ferr := h.addFormData(c, actor, newGallery, []string{`Gallery "` + name + `" already exists!`})
		if ferr != nil {
			renderError(c, ferr)
			return
		}
		common.Render(c, http.StatusOK, tmpl, data)
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}

	tmpl, data, err := h.addFormData(c, actor, &models.Gallery{}, []string{`Gallery "` + name + `" added`})
	if err != nil {
		renderError(c, err)
		return
	}
	common.Render(c, http.StatusOK, tmpl, data)
}

// BrowseGet renders the public gallery browser.
func (h *GalleryHandler) BrowseGet(c *gin.Context) {
	list, err := h.galleries.WithContext(c.Request.Context()).ListAll()
	if err != nil {
		renderError(c, err)
		return
	}
	common.Render(c, http.StatusOK, "gallery_browse.html", gin.H{
		"title":     "Select gallery",
		"galleries": list,
	})
}

// BrowsePost renders the images of the selected gallery.
func (h *GalleryHandler) BrowsePost(c *gin.Context) {
	list, err := h.galleries.WithContext(c.Request.Context()).ListAll()
	if err != nil {
		renderError(c, err)
		return
	}

	selectedID, err := strconv.ParseUint(c.PostForm("s_gallery"), 10, 32)
	if err != nil {
		common.Render(c, http.StatusOK, "gallery_browse.html", gin.H{
			"title":     "View gallery",
			"galleries": list,
			"messages":  []string{"Unknown gallery!"},
		})
		return
	}

	selected, err := h.galleries.WithContext(c.Request.Context()).GetByID(uint(selectedID))
	if errors.Is(err, repo.ErrNotFound) {
		common.Render(c, http.StatusOK, "gallery_browse.html", gin.H{
			"title":     "View gallery",
			"galleries": list,
			"messages":  []string{"Unknown gallery!"},
		})
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}

	galleryImages, err := h.images.WithContext(c.Request.Context()).ListByGallery(selected.ID)
	if err != nil {
		renderError(c, err)
		return
	}

	common.Render(c, http.StatusOK, "gallery_browse.html", gin.H{
		"title":       "View gallery",
		"galleries":   list,
		"images":      galleryImages,
		"sel_gallery": selected,
	})
}

// updateFormData assembles the edit-form context, admin variant included.
func (h *GalleryHandler) updateFormData(c *gin.Context, actor *models.User, gallery *models.Gallery, messages []string) (string, gin.H, error) {
	data := gin.H{
		"title":    "Edit Gallery",
		"gallery":  gallery,
		"messages": messages,
	}
	if !actor.IsAdmin() {
		return "gallery_update.html", data, nil
	}

	users, err := h.accounts.WithContext(c.Request.Context()).List()
	if err != nil {
		return "", nil, err
	}
	data["users"] = users
	return "gallery_admin_update.html", data, nil
}

// loadForMutation loads the target gallery and runs the access policy for
// the given action. A false return means a page was already rendered.
func (h *GalleryHandler) loadForMutation(c *gin.Context, action policy.Action, denyMessage string) (*models.Gallery, bool) {
	actor := common.CurrentUser(c)
	if actor == nil {
		h.renderList(c, common.MsgUnauthorized)
		return nil, false
	}

	galleryID, err := strconv.ParseUint(c.Param("gallery_id"), 10, 32)
	if err != nil {
		h.renderList(c, "Gallery not found.")
		return nil, false
	}

	gallery, err := h.galleries.WithContext(c.Request.Context()).GetByID(uint(galleryID))
	if errors.Is(err, repo.ErrNotFound) {
		h.renderList(c, "Gallery not found.")
		return nil, false
	}
	if err != nil {
		renderError(c, err)
		return nil, false
	}

	res := policy.Resource{OwnerID: gallery.UserID}
	if action == policy.GalleryDelete {
		count, err := h.galleries.WithContext(c.Request.Context()).CountImages(gallery.ID)
		if err != nil {
			renderError(c, err)
			return nil, false
		}
		res.ImageCount = count
	}

	switch verdict := policy.Decide(actor, action, res); verdict {
	case policy.Allow:
		return gallery, true
	case policy.DenyGalleryNotEmpty:
		h.renderList(c, "Cannot delete gallery: gallery is not empty.")
		return nil, false
	default:
		h.renderList(c, denyMessage)
		return nil, false
	}
}

// UpdateGet renders the gallery edit form.
func (h *GalleryHandler) UpdateGet(c *gin.Context) {
	gallery, ok := h.loadForMutation(c, policy.GalleryUpdate, "Forbidden: you can only edit your own galleries.")
	if !ok {
		return
	}

	tmpl, data, err := h.updateFormData(c, common.CurrentUser(c), gallery, nil)
	if err != nil {
		renderError(c, err)
		return
	}
	common.Render(c, http.StatusOK, tmpl, data)
}

// UpdatePost validates and saves gallery changes.
func (h *GalleryHandler) UpdatePost(c *gin.Context) {
	gallery, ok := h.loadForMutation(c, policy.GalleryUpdate, "Forbidden: you can only edit your own galleries.")
	if !ok {
		return
	}
	actor := common.CurrentUser(c)

	name := strings.TrimSpace(c.PostForm("name"))
	description := strings.TrimSpace(c.PostForm("description"))
	dateField := strings.TrimSpace(c.PostForm("date"))

	var messages []string
	if len(name) < 2 {
		messages = append(messages, "Name too short.")
	}
	date, dateErr := time.Parse(galleryDateLayout, dateField)
	if dateErr != nil {
		messages = append(messages, "Date cannot be empty.")
	}

	gallery.Name = name
	gallery.Description = description
	if dateErr == nil {
		gallery.Date = date
	}
	// Only admins may reassign ownership.
	if actor.IsAdmin() {
		if id, err := strconv.ParseUint(c.PostForm("user"), 10, 32); err == nil {
			gallery.UserID = uint(id)
		}
	}

	if len(messages) > 0 {
		tmpl, data, err := h.updateFormData(c, actor, gallery, messages)
		if err != nil {
			renderError(c, err)
			return
		}
		common.Render(c, http.StatusOK, tmpl, data)
		return
	}

	err := h.galleries.WithContext(c.Request.Context()).Update(gallery)
	if errors.Is(err, repo.ErrConflict) {
		tmpl, data, ferr := h.updateFormData(c, actor, gallery, []string{`Gallery "` + name + `" already exists for this user.`})
		if ferr != nil {
			renderError(c, ferr)
			return
		}
		common.Render(c, http.StatusOK, tmpl, data)
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/galleries/")
}

// DeletePost deletes an empty gallery owned by the actor (or any empty
// gallery for an admin).
func (h *GalleryHandler) DeletePost(c *gin.Context) {
	gallery, ok := h.loadForMutation(c, policy.GalleryDelete, "Forbidden: you can only delete your own galleries.")
	if !ok {
		return
	}

	err := h.galleries.WithContext(c.Request.Context()).Delete(gallery.ID)
	switch {
	case errors.Is(err, repo.ErrGalleryNotEmpty):
		// An image slipped in between the policy check and the delete; the
		// store re-checks inside its transaction.
		h.renderList(c, "Cannot delete gallery: gallery is not empty.")
		return
	case errors.Is(err, repo.ErrNotFound):
		h.renderList(c, "Gallery not found.")
		return
	case err != nil:
		renderError(c, err)
		return
	}

	h.renderList(c, "Gallery deleted successfully.")
}
