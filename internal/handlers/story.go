package handlers

import (
	"net/http"

	"creddit/internal/apperror"
	"creddit/internal/middleware"
	"creddit/internal/services"
	"creddit/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type StoryHandler struct {
	posts *services.PostService
	feed  *services.Feed
	log   *logrus.Logger
}

func NewStoryHandler(posts *services.PostService, feed *services.Feed, log *logrus.Logger) *StoryHandler {
	return &StoryHandler{posts: posts, feed: feed, log: log}
}

type createPostRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type updatePostRequest struct {
	Title string `json:"title"`
}

var noPost = gin.H{"post": nil}

// List 最新文章列表 (cursor 分页)
func (h *StoryHandler) List(c *gin.Context) {
	limit := utils.StringToInt(c.Query("limit"))
	page, err := h.feed.ListPosts(c.Request.Context(), middleware.CurrentUserID(c), limit, c.Query("cursor"))
	if err != nil {
		writeError(c, h.log, err, gin.H{"posts": []any{}, "hasMore": false})
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *StoryHandler) Detail(c *gin.Context) {
	id, ok := utils.StringToUint(c.Param("id"))
	if !ok {
		writeError(c, h.log, apperror.NotFound("post", c.Param("id")), noPost)
		return
	}

	post, err := h.posts.Get(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		writeError(c, h.log, err, noPost)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (h *StoryHandler) Create(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	post, err := h.posts.Create(c.Request.Context(), middleware.CurrentUserID(c), req.Title, req.Text)
	if err != nil {
		writeError(c, h.log, err, noPost)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

func (h *StoryHandler) Update(c *gin.Context) {
	id, ok := utils.StringToUint(c.Param("id"))
	if !ok {
		writeError(c, h.log, apperror.NotFound("post", c.Param("id")), noPost)
		return
	}
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	post, err := h.posts.Rename(c.Request.Context(), id, middleware.CurrentUserID(c), req.Title)
	if err != nil {
		writeError(c, h.log, err, noPost)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (h *StoryHandler) Delete(c *gin.Context) {
	id, ok := utils.StringToUint(c.Param("id"))
	if !ok {
		writeError(c, h.log, apperror.NotFound("post", c.Param("id")), gin.H{"ok": false})
		return
	}

	if err := h.posts.Delete(c.Request.Context(), id, middleware.CurrentUserID(c)); err != nil {
		writeError(c, h.log, err, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
