package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reading-practice/internal/authz"
	"github.com/iliyamo/reading-practice/internal/repository"
)

// StoryStore is the slice of the story repository the handler needs.
type StoryStore interface {
	Create(ctx context.Context, st *repository.Story) error
	GetByID(ctx context.Context, id uint64) (repository.Story, error)
	List(ctx context.Context) ([]repository.Story, error)
	Update(ctx context.Context, id uint64, title, content string, gradeLevel int) error
	Delete(ctx context.Context, id uint64) error
}

// StoryHandler implements /api/stories. Reading is open to every signed-in
// user; mutation is teacher and admin territory.
type StoryHandler struct {
	Stories StoryStore
}

func NewStoryHandler(stories StoryStore) *StoryHandler {
	return &StoryHandler{Stories: stories}
}

type storyReq struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	GradeLevel int    `json:"grade_level"`
}

// validateStoryReq normalizes the request and returns the validation failure
// message, empty when the request is valid.
func validateStoryReq(req *storyReq) string {
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if req.Title == "" {
		return "title is required"
	}
	if req.Content == "" {
		return "content is required"
	}
	if req.GradeLevel < 1 || req.GradeLevel > 12 {
		return "grade_level must be between 1 and 12"
	}
	return ""
}

// Create handles POST /api/stories.
func (h *StoryHandler) Create(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	if !authz.Can(id, authz.ActionCreate, authz.Resource{Kind: authz.KindStory}) {
		return forbidden(c)
	}
	var req storyReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if msg := validateStoryReq(&req); msg != "" {
		return badRequest(c, msg)
	}
	st := repository.Story{Title: req.Title, Content: req.Content, GradeLevel: req.GradeLevel}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Stories.Create(ctx, &st); err != nil {
		return storageErr(c, err, "")
	}
	return respond(c, http.StatusCreated, st)
}

// List handles GET /api/stories.
func (h *StoryHandler) List(c echo.Context) error {
	if _, ok := identity(c); !ok {
		return unauthenticated(c, "sign in required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	stories, err := h.Stories.List(ctx)
	if err != nil {
		return storageErr(c, err, "")
	}
	return respond(c, http.StatusOK, stories)
}

// Get handles GET /api/stories/:id.
func (h *StoryHandler) Get(c echo.Context) error {
	if _, ok := identity(c); !ok {
		return unauthenticated(c, "sign in required")
	}
	sid, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	st, err := h.Stories.GetByID(ctx, sid)
	if err != nil {
		return storageErr(c, err, "story not found")
	}
	return respond(c, http.StatusOK, st)
}

// Update handles PUT /api/stories/:id.
func (h *StoryHandler) Update(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	if !authz.Can(id, authz.ActionUpdate, authz.Resource{Kind: authz.KindStory}) {
		return forbidden(c)
	}
	sid, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req storyReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if msg := validateStoryReq(&req); msg != "" {
		return badRequest(c, msg)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Stories.Update(ctx, sid, req.Title, req.Content, req.GradeLevel); err != nil {
		return storageErr(c, err, "story not found")
	}
	st, err := h.Stories.GetByID(ctx, sid)
	if err != nil {
		return storageErr(c, err, "story not found")
	}
	return respond(c, http.StatusOK, st)
}

// Delete handles DELETE /api/stories/:id. A story still referenced by an
// assignment cannot be removed and comes back as a conflict.
func (h *StoryHandler) Delete(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	if !authz.Can(id, authz.ActionDelete, authz.Resource{Kind: authz.KindStory}) {
		return forbidden(c)
	}
	sid, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Stories.Delete(ctx, sid); err != nil {
		return storageErr(c, err, "story not found")
	}
	return respond(c, http.StatusOK, echo.Map{"deleted": true})
}
