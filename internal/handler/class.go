package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reading-practice/internal/authz"
	"github.com/iliyamo/reading-practice/internal/repository"
	"github.com/iliyamo/reading-practice/internal/utils"
)

// ClassStore is the slice of the class repository the handler needs.
type ClassStore interface {
	Create(ctx context.Context, cl *repository.Class) error
	GetByID(ctx context.Context, id uint64) (repository.Class, error)
	ListByTeacher(ctx context.Context, teacherID uint64) ([]repository.Class, error)
	ListAll(ctx context.Context) ([]repository.Class, error)
	Update(ctx context.Context, id uint64, name string, gradeLevel int, allowSelfEnroll bool) error
	Delete(ctx context.Context, id uint64) error
}

// ClassRosterStore lists the students enrolled in a class.
type ClassRosterStore interface {
	ListByClass(ctx context.Context, classID uint64) ([]repository.User, error)
}

// ClassHandler implements /api/classes.
type ClassHandler struct {
	Classes ClassStore
	Users   ClassRosterStore
}

func NewClassHandler(classes ClassStore, users ClassRosterStore) *ClassHandler {
	return &ClassHandler{Classes: classes, Users: users}
}

// classView strips the access token for readers who must not see it. Only the
// owning teacher and admins get the enrollment secret back.
type classView struct {
	repository.Class
	AccessToken string `json:"access_token,omitempty"`
}

func viewClass(cl repository.Class, includeToken bool) classView {
	v := classView{Class: cl}
	if includeToken {
		v.AccessToken = cl.AccessToken
	} else {
		v.Class.AccessToken = ""
	}
	return v
}

type classReq struct {
	Name            string `json:"name"`
	GradeLevel      int    `json:"grade_level"`
	AllowSelfEnroll *bool  `json:"allow_self_enroll"`
}

// validateClassReq normalizes the request and returns the validation failure
// message, empty when the request is valid.
func validateClassReq(req *classReq) string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required"
	}
	if req.GradeLevel < 1 || req.GradeLevel > 12 {
		return "grade_level must be between 1 and 12"
	}
	return ""
}

// Create handles POST /api/classes. The access token is always generated
// server side; clients never pick their own.
func (h *ClassHandler) Create(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	if !authz.Can(id, authz.ActionCreate, authz.Resource{Kind: authz.KindClass, TeacherID: id.UserID}) {
		return forbidden(c)
	}
	var req classReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if msg := validateClassReq(&req); msg != "" {
		return badRequest(c, msg)
	}
	allowSelfEnroll := true
	if req.AllowSelfEnroll != nil {
		allowSelfEnroll = *req.AllowSelfEnroll
	}
	token, err := utils.NewClassAccessToken()
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "something went wrong")
	}
	cl := repository.Class{
		TeacherID:       id.UserID,
		Name:            req.Name,
		GradeLevel:      req.GradeLevel,
		AccessToken:     token,
		AllowSelfEnroll: allowSelfEnroll,
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Classes.Create(ctx, &cl); err != nil {
		return storageErr(c, err, "")
	}
	return respond(c, http.StatusCreated, viewClass(cl, true))
}

// List handles GET /api/classes. Teachers see their own classes, admins see
// all, students see the single class they belong to.
func (h *ClassHandler) List(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	switch id.Role {
	case repository.RoleAdmin:
		classes, err := h.Classes.ListAll(ctx)
		if err != nil {
			return storageErr(c, err, "")
		}
		out := make([]classView, 0, len(classes))
		for _, cl := range classes {
			out = append(out, viewClass(cl, true))
		}
		return respond(c, http.StatusOK, out)
	case repository.RoleTeacher:
		classes, err := h.Classes.ListByTeacher(ctx, id.UserID)
		if err != nil {
			return storageErr(c, err, "")
		}
		out := make([]classView, 0, len(classes))
		for _, cl := range classes {
			out = append(out, viewClass(cl, true))
		}
		return respond(c, http.StatusOK, out)
	default:
		if id.ClassID == 0 {
			return respond(c, http.StatusOK, []classView{})
		}
		cl, err := h.Classes.GetByID(ctx, id.ClassID)
		if err != nil {
			return storageErr(c, err, "class not found")
		}
		return respond(c, http.StatusOK, []classView{viewClass(cl, false)})
	}
}

// Get handles GET /api/classes/:id.
func (h *ClassHandler) Get(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	cid, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	cl, err := h.Classes.GetByID(ctx, cid)
	if err != nil {
		return storageErr(c, err, "class not found")
	}
	if !authz.Can(id, authz.ActionRead, authz.Resource{Kind: authz.KindClass, TeacherID: cl.TeacherID, ClassID: cl.ID}) {
		return forbidden(c)
	}
	includeToken := id.Role == repository.RoleAdmin || cl.TeacherID == id.UserID
	return respond(c, http.StatusOK, viewClass(cl, includeToken))
}

// Students handles GET /api/classes/:id/students, the roster view.
func (h *ClassHandler) Students(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	cid, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	cl, err := h.Classes.GetByID(ctx, cid)
	if err != nil {
		return storageErr(c, err, "class not found")
	}
	if !authz.Can(id, authz.ActionRead, authz.Resource{Kind: authz.KindClass, TeacherID: cl.TeacherID, ClassID: cl.ID}) {
		return forbidden(c)
	}
	students, err := h.Users.ListByClass(ctx, cid)
	if err != nil {
		return storageErr(c, err, "")
	}
	return respond(c, http.StatusOK, students)
}

// Update handles PUT /api/classes/:id.
func (h *ClassHandler) Update(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	cid, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req classReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if msg := validateClassReq(&req); msg != "" {
		return badRequest(c, msg)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	cl, err := h.Classes.GetByID(ctx, cid)
	if err != nil {
		return storageErr(c, err, "class not found")
	}
	if !authz.Can(id, authz.ActionUpdate, authz.Resource{Kind: authz.KindClass, TeacherID: cl.TeacherID, ClassID: cl.ID}) {
		return forbidden(c)
	}
	allowSelfEnroll := cl.AllowSelfEnroll
	if req.AllowSelfEnroll != nil {
		allowSelfEnroll = *req.AllowSelfEnroll
	}
	if err := h.Classes.Update(ctx, cid, req.Name, req.GradeLevel, allowSelfEnroll); err != nil {
		return storageErr(c, err, "class not found")
	}
	updated, err := h.Classes.GetByID(ctx, cid)
	if err != nil {
		return storageErr(c, err, "class not found")
	}
	return respond(c, http.StatusOK, viewClass(updated, true))
}

// Delete handles DELETE /api/classes/:id.
func (h *ClassHandler) Delete(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	cid, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	cl, err := h.Classes.GetByID(ctx, cid)
	if err != nil {
		return storageErr(c, err, "class not found")
	}
	if !authz.Can(id, authz.ActionDelete, authz.Resource{Kind: authz.KindClass, TeacherID: cl.TeacherID, ClassID: cl.ID}) {
		return forbidden(c)
	}
	if err := h.Classes.Delete(ctx, cid); err != nil {
		return storageErr(c, err, "class not found")
	}
	return respond(c, http.StatusOK, echo.Map{"deleted": true})
}
