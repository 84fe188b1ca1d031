package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/adamwrona/galleria/database/models"
	"github.com/adamwrona/galleria/database/repo"
	"github.com/adamwrona/galleria/database/repo/comments"
	"github.com/adamwrona/galleria/database/repo/images"
	"github.com/adamwrona/galleria/internal/policy"
	"github.com/adamwrona/galleria/web/common"
)

// CommentHandler serves comment creation, editing and deletion.
//
// Edit and delete are intentionally open to every authenticated user (see
// internal/policy); only anonymous callers are turned away.
type CommentHandler struct {
	comments *comments.Repository
	images   *images.Repository
}

func NewCommentHandler(commentsRepo *comments.Repository, imagesRepo *images.Repository) *CommentHandler {
	return &CommentHandler{comments: commentsRepo, images: imagesRepo}
}

func imageShowURL(imageID uint) string {
	return fmt.Sprintf("/images/image_show?image_id=%d", imageID)
}

func validateContent(content string) []string {
	var messages []string
	if content == "" {
		messages = append(messages, "Missing required fields.")
	}
	// The limit counts characters, not bytes; Polish text is multi-byte.
	if utf8.RuneCountInString(content) > models.MaxCommentLength {
		messages = append(messages, "Comment too long.")
	}
	return messages
}

// AddPost creates a comment under an image.
func (h *CommentHandler) AddPost(c *gin.Context) {
	actor := common.CurrentUser(c)
	if actor == nil {
		common.RenderHome(c, common.MsgUnauthorized)
		return
	}

	imageID, err := strconv.ParseUint(c.Param("image_id"), 10, 32)
	if err != nil {
		c.String(http.StatusNotFound, "Image not found")
		return
	}

	content := strings.TrimSpace(c.PostForm("content"))
	if messages := validateContent(content); len(messages) > 0 {
		common.Render(c, http.StatusBadRequest, "error.html", gin.H{
			"title":   "Error",
			"message": messages[0],
		})
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

	if verdict := policy.Decide(actor, policy.CommentCreate, policy.Resource{}); !verdict.Allowed() {
		common.RenderHome(c, common.MsgUnauthorized)
		return
	}

	newComment := &models.Comment{
		ImageID:   image.ID,
		GalleryID: image.GalleryID,
		AuthorID:  actor.ID,
		Content:   content,
	}
	if err := h.comments.WithContext(c.Request.Context()).Create(newComment); err != nil {
		renderError(c, err)
		return
	}

	c.Redirect(http.StatusFound, imageShowURL(image.ID))
}

// EditGet renders the comment edit form.
func (h *CommentHandler) EditGet(c *gin.Context) {
	if common.CurrentUser(c) == nil {
		common.RenderHome(c, common.MsgUnauthorized)
		return
	}

	comment, ok := h.loadComment(c)
	if !ok {
		return
	}

	common.Render(c, http.StatusOK, "comment_edit.html", gin.H{
		"title":   "Edit comment",
		"comment": comment,
	})
}

// EditPost saves edited comment content.
func (h *CommentHandler) EditPost(c *gin.Context) {
	actor := common.CurrentUser(c)
	if actor == nil {
		common.RenderHome(c, common.MsgUnauthorized)
		return
	}

	comment, ok := h.loadComment(c)
	if !ok {
		return
	}

	content := strings.TrimSpace(c.PostForm("content"))
	if messages := validateContent(content); len(messages) > 0 {
		common.Render(c, http.StatusOK, "comment_edit.html", gin.H{
			"title":    "Edit comment",
			"comment":  comment,
			"messages": messages,
		})
		return
	}

	if verdict := policy.Decide(actor, policy.CommentEdit, policy.Resource{}); !verdict.Allowed() {
		common.RenderHome(c, common.MsgUnauthorized)
		return
	}

	comment.Content = content
	if err := h.comments.WithContext(c.Request.Context()).Update(comment); err != nil {
		renderError(c, err)
		return
	}

	c.Redirect(http.StatusFound, imageShowURL(comment.ImageID))
}

// DeletePost removes a comment.
func (h *CommentHandler) DeletePost(c *gin.Context) {
	actor := common.CurrentUser(c)
	if actor == nil {
		common.RenderHome(c, common.MsgUnauthorized)
		return
	}

	comment, ok := h.loadComment(c)
	if !ok {
		return
	}

	if verdict := policy.Decide(actor, policy.CommentDelete, policy.Resource{}); !verdict.Allowed() {
		common.RenderHome(c, common.MsgUnauthorized)
		return
	}

	if err := h.comments.WithContext(c.Request.Context()).Delete(comment.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			c.String(http.StatusNotFound, "Comment not found")
			return
		}
		renderError(c, err)
		return
	}

	c.Redirect(http.StatusFound, imageShowURL(comment.ImageID))
}

func (h *CommentHandler) loadComment(c *gin.Context) (*models.Comment, bool) {
	commentID, err := strconv.ParseUint(c.Param("comment_id"), 10, 32)
	if err != nil {
		c.String(http.StatusNotFound, "Comment not found")
		return nil, false
	}

	comment, err := h.comments.WithContext(c.Request.Context()).GetByID(uint(commentID))
	if errors.Is(err, repo.ErrNotFound) {
		c.String(http.StatusNotFound, "Comment not found")
		return nil, false
	}
	if err != nil {
		renderError(c, err)
		return nil, false
	}
	return comment, true
}
