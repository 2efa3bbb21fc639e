package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reading-practice/internal/authz"
	"github.com/iliyamo/reading-practice/internal/repository"
)

// AssignmentStore is the slice of the assignment repository the handler needs.
type AssignmentStore interface {
	Create(ctx context.Context, a *repository.Assignment) error
	GetByID(ctx context.Context, id uint64) (repository.Assignment, error)
	ListByClass(ctx context.Context, classID uint64, publishedOnly bool) ([]repository.Assignment, error)
	Update(ctx context.Context, a repository.Assignment) error
	Delete(ctx context.Context, id uint64) error
}

// AssignmentClassStore resolves class ownership for authorization.
type AssignmentClassStore interface {
	GetByID(ctx context.Context, id uint64) (repository.Class, error)
}

// AssignmentStoryStore checks the assigned story exists.
type AssignmentStoryStore interface {
	GetByID(ctx context.Context, id uint64) (repository.Story, error)
}

// AssignmentHandler implements /api/assignments.
type AssignmentHandler struct {
	Assignments AssignmentStore
	Classes     AssignmentClassStore
	Stories     AssignmentStoryStore
}

func NewAssignmentHandler(assignments AssignmentStore, classes AssignmentClassStore, stories AssignmentStoryStore) *AssignmentHandler {
	return &AssignmentHandler{Assignments: assignments, Classes: classes, Stories: stories}
}

type assignmentReq struct {
	ClassID      uint64     `json:"class_id"`
	StoryID      uint64     `json:"story_id"`
	Title        string     `json:"title"`
	Instructions string     `json:"instructions"`
	IsPublished  *bool      `json:"is_published"`
	MaxAttempts  *int       `json:"max_attempts"`
	DueAt        *time.Time `json:"due_at"`
}

// Create handles POST /api/assignments.
func (h *AssignmentHandler) Create(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	var req assignmentReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return badRequest(c, "title is required")
	}
	if req.ClassID == 0 || req.StoryID == 0 {
		return badRequest(c, "class_id and story_id are required")
	}
	maxAttempts := 3
	if req.MaxAttempts != nil {
		if *req.MaxAttempts < 1 {
			return badRequest(c, "max_attempts must be at least 1")
		}
		maxAttempts = *req.MaxAttempts
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	cl, err := h.Classes.GetByID(ctx, req.ClassID)
	if err != nil {
		return storageErr(c, err, "class not found")
	}
	if !authz.Can(id, authz.ActionCreate, authz.Resource{Kind: authz.KindAssignment, TeacherID: cl.TeacherID, ClassID: cl.ID}) {
		return forbidden(c)
	}
	if _, err := h.Stories.GetByID(ctx, req.StoryID); err != nil {
		return storageErr(c, err, "story not found")
	}

	a := repository.Assignment{
		ClassID:      req.ClassID,
		StoryID:      req.StoryID,
		Title:        req.Title,
		Instructions: req.Instructions,
		MaxAttempts:  maxAttempts,
		DueAt:        req.DueAt,
	}
	if req.IsPublished != nil {
		a.IsPublished = *req.IsPublished
	}
	if err := h.Assignments.Create(ctx, &a); err != nil {
		return storageErr(c, err, "")
	}
	return respond(c, http.StatusCreated, a)
}

// List handles GET /api/assignments?class_id=N. Students may only list the
// published assignments of their own class.
func (h *AssignmentHandler) List(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if id.Role == repository.RoleStudent {
		if classID, ok := queryID(c, "class_id"); ok && classID != 0 && classID != id.ClassID {
			return forbidden(c)
		}
		if id.ClassID == 0 {
			return respond(c, http.StatusOK, []repository.Assignment{})
		}
		assignments, err := h.Assignments.ListByClass(ctx, id.ClassID, true)
		if err != nil {
			return storageErr(c, err, "")
		}
		return respond(c, http.StatusOK, assignments)
	}

	classID, ok := queryID(c, "class_id")
	if !ok || classID == 0 {
		return badRequest(c, "class_id is required")
	}
	cl, err := h.Classes.GetByID(ctx, classID)
	if err != nil {
		return storageErr(c, err, "class not found")
	}
	if !authz.Can(id, authz.ActionRead, authz.Resource{Kind: authz.KindClass, TeacherID: cl.TeacherID, ClassID: cl.ID}) {
		return forbidden(c)
	}
	assignments, err := h.Assignments.ListByClass(ctx, classID, false)
	if err != nil {
		return storageErr(c, err, "")
	}
	return respond(c, http.StatusOK, assignments)
}

// Get handles GET /api/assignments/:id. Students asking for a draft in their
// own class get a 404, not a 403, so drafts stay invisible.
func (h *AssignmentHandler) Get(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	aid, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	a, err := h.Assignments.GetByID(ctx, aid)
	if err != nil {
		return storageErr(c, err, "assignment not found")
	}
	cl, err := h.Classes.GetByID(ctx, a.ClassID)
	if err != nil {
		return storageErr(c, err, "assignment not found")
	}
	res := authz.Resource{Kind: authz.KindAssignment, TeacherID: cl.TeacherID, ClassID: a.ClassID, Published: a.IsPublished}
	if !authz.Can(id, authz.ActionRead, res) {
		if id.Role == repository.RoleStudent && a.ClassID == id.ClassID && !a.IsPublished {
			return respondErr(c, http.StatusNotFound, codeNotFound, "assignment not found")
		}
		return forbidden(c)
	}
	return respond(c, http.StatusOK, a)
}

// Update handles PUT /api/assignments/:id.
func (h *AssignmentHandler) Update(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	aid, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req assignmentReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return badRequest(c, "title is required")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	a, err := h.Assignments.GetByID(ctx, aid)
	if err != nil {
		return storageErr(c, err, "assignment not found")
	}
	cl, err := h.Classes.GetByID(ctx, a.ClassID)
	if err != nil {
		return storageErr(c, err, "assignment not found")
	}
	if !authz.Can(id, authz.ActionUpdate, authz.Resource{Kind: authz.KindAssignment, TeacherID: cl.TeacherID, ClassID: a.ClassID}) {
		return forbidden(c)
	}

	a.Title = req.Title
	a.Instructions = req.Instructions
	if req.StoryID != 0 && req.StoryID != a.StoryID {
		if _, err := h.Stories.GetByID(ctx, req.StoryID); err != nil {
			return storageErr(c, err, "story not found")
		}
		a.StoryID = req.StoryID
	}
	if req.IsPublished != nil {
		a.IsPublished = *req.IsPublished
	}
	if req.MaxAttempts != nil {
		if *req.MaxAttempts < 1 {
			return badRequest(c, "max_attempts must be at least 1")
		}
		a.MaxAttempts = *req.MaxAttempts
	}
	if req.DueAt != nil {
		a.DueAt = req.DueAt
	}
	if err := h.Assignments.Update(ctx, a); err != nil {
		return storageErr(c, err, "assignment not found")
	}
	updated, err := h.Assignments.GetByID(ctx, aid)
	if err != nil {
		return storageErr(c, err, "assignment not found")
	}
	return respond(c, http.StatusOK, updated)
}

// Delete handles DELETE /api/assignments/:id.
func (h *AssignmentHandler) Delete(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	aid, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	a, err := h.Assignments.GetByID(ctx, aid)
	if err != nil {
		return storageErr(c, err, "assignment not found")
	}
	cl, err := h.Classes.GetByID(ctx, a.ClassID)
	if err != nil {
		return storageErr(c, err, "assignment not found")
	}
	if !authz.Can(id, authz.ActionDelete, authz.Resource{Kind: authz.KindAssignment, TeacherID: cl.TeacherID, ClassID: a.ClassID}) {
		return forbidden(c)
	}
	if err := h.Assignments.Delete(ctx, aid); err != nil {
		return storageErr(c, err, "assignment not found")
	}
	return respond(c, http.StatusOK, echo.Map{"deleted": true})
}
