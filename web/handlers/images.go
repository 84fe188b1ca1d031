package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/adamwrona/galleria/database/models"
	"github.com/adamwrona/galleria/database/repo"
	"github.com/adamwrona/galleria/database/repo/comments"
	"github.com/adamwrona/galleria/database/repo/galleries"
	"github.com/adamwrona/galleria/database/repo/images"
	"github.com/adamwrona/galleria/internal/policy"
	"github.com/adamwrona/galleria/storage/local"
	"github.com/adamwrona/galleria/web/common"
)

// ImageHandler serves image metadata CRUD, the file upload step and the
// image detail page.
type ImageHandler struct {
	images    *images.Repository
	galleries *galleries.Repository
	comments  *comments.Repository
	storage   *local.Storage
	maxSizeMB int
}

func NewImageHandler(imagesRepo *images.Repository, galleriesRepo *galleries.Repository, commentsRepo *comments.Repository, storage *local.Storage, maxSizeMB int) *ImageHandler {
	return &ImageHandler{
		images:    imagesRepo,
		galleries: galleriesRepo,
		comments:  commentsRepo,
		storage:   storage,
		maxSizeMB: maxSizeMB,
	}
}

// List renders the images the actor can see: everything for an admin, images
// of owned galleries otherwise.
func (h *ImageHandler) List(c *gin.Context) {
	actor := common.CurrentUser(c)
	if actor == nil {
		common.RenderHome(c, common.MsgUnauthorized)
		return
	}

	var (
		list []*models.Image
		err  error
	)
	repoCtx := h.images.WithContext(c.Request.Context())
	if actor.IsAdmin() {
		list, err = repoCtx.ListAll()
	} else {
		list, err = repoCtx.ListByOwner(actor.ID)
	}
	if err != nil {
		renderError(c, err)
		return
	}

	common.Render(c, http.StatusOK, "image_list.html", gin.H{
		"title":      "List of all images",
		"image_list": list,
	})
}

// selectableGalleries returns the galleries the actor may add images to.
func (h *ImageHandler) selectableGalleries(c *gin.Context, actor *models.User) ([]*models.Gallery, error) {
	repoCtx := h.galleries.WithContext(c.Request.Context())
	if actor.IsAdmin() {
		return repoCtx.ListAll()
	}
	return repoCtx.ListByOwner(actor.ID)
}

// AddGet renders the image metadata form.
func (h *ImageHandler) AddGet(c *gin.Context) {
	actor := common.CurrentUser(c)
	if actor == nil {
		common.RenderHome(c, common.MsgUnauthorized)
		return
	}

	list, err := h.selectableGalleries(c, actor)
	if err != nil {
		renderError(c, err)
		return
	}

	common.Render(c, http.StatusOK, "image_form.html", gin.H{
		"title":     "Add Image",
		"galleries": list,
		"image":     &models.Image{},
	})
}

// AddPost validates and creates an image record pointing at an uploaded
// file's path.
func (h *ImageHandler) AddPost(c *gin.Context) {
	actor := common.CurrentUser(c)
	if actor == nil {
		common.RenderHome(c, common.MsgUnauthorized)
		return
	}

	list, err := h.selectableGalleries(c, actor)
	if err != nil {
		renderError(c, err)
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	description := strings.TrimSpace(c.PostForm("description"))
	path := strings.TrimSpace(c.PostForm("path"))

	var messages []string
	if len(name) < 2 {
		messages = append(messages, "Name too short.")
	}
	if len(description) < 2 {
		messages = append(messages, "Description too short.")
	}
	if path == "" {
		messages = append(messages, "Path is required.")
	}

	galleryID, idErr := strconv.ParseUint(c.PostForm("gallery"), 10, 32)
	if idErr != nil {
		messages = append(messages, "Unknown gallery!")
	}

	newImage := &models.Image{
		Name:        name,
		Description: description,
		Path:        path,
		GalleryID:   uint(galleryID),
	}

	renderForm := func(msgs []string, image *models.Image) {
		common.Render(c, http.StatusOK, "image_form.html", gin.H{
			"title":     "Add Image",
			"image":     image,
			"galleries": list,
			"messages":  msgs,
		})
	}

	if len(messages) > 0 {
		renderForm(messages, newImage)
		return
	}

	gallery, err := h.galleries.WithContext(c.Request.Context()).GetByID(uint(galleryID))
	if errors.Is(err, repo.ErrNotFound) {
		renderForm([]string{"Unknown gallery!"}, newImage)
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}

	if verdict := policy.Decide(actor, policy.ImageCreate, policy.Resource{OwnerID: gallery.UserID}); !verdict.Allowed() {
		renderForm([]string{"Forbidden: you can only add images to your own galleries."}, newImage)
		return
	}

	err = h.images.WithContext(c.Request.Context()).Create(newImage)
	if errors.Is(err, repo.ErrConflict) {
		renderForm([]string{`Image "` + name + `" already exists!`}, newImage)
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}

	renderForm([]string{`Image "` + name + `" added`}, &models.Image{})
}

// UploadGet renders the upload form.
func (h *ImageHandler) UploadGet(c *gin.Context) {
	if common.CurrentUser(c) == nil {
		common.RenderHome(c, common.MsgUnauthorized)
		return
	}
	common.Render(c, http.StatusOK, "image_upload_form.html", gin.H{
		"title": "Upload image",
	})
}

// UploadPost stores the uploaded file and reports the path to reference in
// the image form. Saving the file and creating the image record are separate
// requests; an abort in between leaves an orphan file.
func (h *ImageHandler) UploadPost(c *gin.Context) {
	if common.CurrentUser(c) == nil {
		common.RenderHome(c, common.MsgUnauthorized)
		return
	}

	renderForm := func(msgs ...string) {
		common.Render(c, http.StatusOK, "image_upload_form.html", gin.H{
			"title":    "Upload image",
			"messages": msgs,
		})
	}

	file, err := c.FormFile("image")
	if err != nil {
		renderForm("Image upload error!")
		return
	}
	if file.Size > int64(h.maxSizeMB)<<20 {
		renderForm("Image upload error!")
		return
	}

	webPath, err := h.storage.Save(file)
	if err != nil {
		renderForm("Image upload error!")
		return
	}

	common.Render(c, http.StatusOK, "image_upload_form.html", gin.H{
		"title":    "Upload image",
		"messages": []string{"Image uploaded!"},
		"path":     webPath,
	})
}

// loadForMutation loads the target image and runs the access policy. The
// image endpoints answer denied/missing with raw status codes. A false
// return means the response was already written.
func (h *ImageHandler) loadForMutation(c *gin.Context, rawID string, action policy.Action, denyMessage string) (*models.Image, bool) {
	actor := common.CurrentUser(c)
	if actor == nil {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}

	imageID, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		c.String(http.StatusNotFound, "Image not found.")
		return nil, false
	}

	image, err := h.images.WithContext(c.Request.Context()).GetByID(uint(imageID))
	if errors.Is(err, repo.ErrNotFound) {
		c.String(http.StatusNotFound, "Image not found.")
		return nil, false
	}
	if err != nil {
		renderError(c, err)
		return nil, false
	}

	// Effective owner of an image is its gallery's owner.
	if verdict := policy.Decide(actor, action, policy.Resource{OwnerID: image.Gallery.UserID}); !verdict.Allowed() {
		c.String(http.StatusForbidden, denyMessage)
		return nil, false
	}
	return image, true
}

// UpdateGet renders the image edit form.
func (h *ImageHandler) UpdateGet(c *gin.Context) {
	image, ok := h.loadForMutation(c, c.Query("image_id"), policy.ImageUpdate,
		"Unauthorized: You don't have permission to edit this image.")
	if !ok {
		return
	}

	list, err := h.selectableGalleries(c, common.CurrentUser(c))
	if err != nil {
		renderError(c, err)
		return
	}

	common.Render(c, http.StatusOK, "image_update.html", gin.H{
		"title":     "Image update",
		"image":     image,
		"galleries": list,
	})
}

// UpdatePost validates and saves image changes, including moving the image
// to another gallery the actor owns.
func (h *ImageHandler) UpdatePost(c *gin.Context) {
	image, ok := h.loadForMutation(c, c.Query("image_id"), policy.ImageUpdate,
		"Unauthorized: You don't have permission to edit this image.")
	if !ok {
		return
	}
	actor := common.CurrentUser(c)

	list, err := h.selectableGalleries(c, actor)
	if err != nil {
		renderError(c, err)
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	description := strings.TrimSpace(c.PostForm("description"))

	var messages []string
	if len(name) < 2 {
		messages = append(messages, "Name too short.")
	}
	if len(description) < 2 {
		messages = append(messages, "Description too short.")
	}

	image.Name = name
	image.Description = description

	renderForm := func(msgs []string) {
		common.Render(c, http.StatusOK, "image_update.html", gin.H{
			"title":     "Image update",
			"image":     image,
			"galleries": list,
			"messages":  msgs,
		})
	}

	if galleryID, idErr := strconv.ParseUint(c.PostForm("gallery"), 10, 32); idErr == nil && uint(galleryID) != image.GalleryID {
		target, err := h.galleries.WithContext(c.Request.Context()).GetByID(uint(galleryID))
		if errors.Is(err, repo.ErrNotFound) {
			messages = append(messages, "Unknown gallery!")
		} else if err != nil {
			renderError(c, err)
			return
		} else if verdict := policy.Decide(actor, policy.ImageCreate, policy.Resource{OwnerID: target.UserID}); !verdict.Allowed() {
			messages = append(messages, "Forbidden: you can only add images to your own galleries.")
		} else {
			image.GalleryID = target.ID
			image.Gallery = *target
		}
	}

	if len(messages) > 0 {
		renderForm(messages)
		return
	}

	err = h.images.WithContext(c.Request.Context()).Update(image)
	if errors.Is(err, repo.ErrConflict) {
		renderForm([]string{`Image "` + name + `" already exists!`})
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/galleries/gallery_browse")
}

// Show renders the image detail page with its comments, newest first.
func (h *ImageHandler) Show(c *gin.Context) {
	imageID, err := strconv.ParseUint(c.Query("image_id"), 10, 32)
	if err != nil {
		c.String(http.StatusNotFound, "Image not found")
		return
	}

	image, err := h.images.WithContext(c.Request.Context()).GetByID(uint(imageID))
	if errors.Is(err, repo.ErrNotFound) {
		c.String(http.StatusNotFound, "Image not found")
		return
	}
	if err != nil {
		renderError(c, err)
		return
	}

	commentList, err := h.comments.WithContext(c.Request.Context()).ListByImage(image.ID)
	if err != nil {
		renderError(c, err)
		return
	}

	common.Render(c, http.StatusOK, "image_show.html", gin.H{
		"title":    "Image Details",
		"image":    image,
		"comments": commentList,
	})
}

// DeletePost removes an image; the owning gallery may become deletable as a
// result.
func (h *ImageHandler) DeletePost(c *gin.Context) {
	image, ok := h.loadForMutation(c, c.Param("image_id"), policy.ImageDelete,
		"Unauthorized: You don't have permission to delete this image.")
	if !ok {
		return
	}

	if err := h.images.WithContext(c.Request.Context()).Delete(image.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			c.String(http.StatusNotFound, "Image not found.")
			return
		}
		renderError(c, err)
		return
	}

	// Best effort: the record is gone either way, and records added via the
	// metadata form may point outside the upload directory.
	if strings.HasPrefix(image.Path, local.WebPrefix+"/") {
		if err := h.storage.Delete(image.Path); err != nil {
			log.Printf("failed to remove file for image %d: %v", image.ID, err)
		}
	}

	c.Redirect(http.StatusFound, "/galleries/gallery_browse")
}
