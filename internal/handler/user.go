package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reading-practice/internal/authz"
	"github.com/iliyamo/reading-practice/internal/config"
	"github.com/iliyamo/reading-practice/internal/repository"
	"github.com/iliyamo/reading-practice/internal/utils"
)

// UserStore is the slice of the user repository the admin surface needs.
type UserStore interface {
	CreateAccount(ctx context.Context, fullName, email, passwordHash, role string) (uint64, error)
	CreateStudent(ctx context.Context, fullName string, classID, visualPasswordID uint64) (uint64, error)
	GetByID(ctx context.Context, id uint64) (repository.User, error)
	List(ctx context.Context) ([]repository.User, error)
	Update(ctx context.Context, id uint64, fullName string, classID uint64, isActive bool) error
	Delete(ctx context.Context, id uint64) error
}

// UserHandler implements the admin-only user management endpoints.
type UserHandler struct {
	Cfg   config.Config
	Users UserStore
}

func NewUserHandler(cfg config.Config, users UserStore) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users}
}

// List handles GET /api/users.
func (h *UserHandler) List(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	if !authz.Can(id, authz.ActionRead, authz.Resource{Kind: authz.KindUser}) {
		return forbidden(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return storageErr(c, err, "")
	}
	return respond(c, http.StatusOK, users)
}

// Get handles GET /api/users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	if !authz.Can(id, authz.ActionRead, authz.Resource{Kind: authz.KindUser}) {
		return forbidden(c)
	}
	uid, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	usr, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return storageErr(c, err, "user not found")
	}
	return respond(c, http.StatusOK, usr)
}

type createUserReq struct {
	FullName         string `json:"full_name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	Role             string `json:"role"`
	ClassID          uint64 `json:"class_id"`
	VisualPasswordID uint64 `json:"visual_password_id"`
}

// Create handles POST /api/users. Admins may create any role; this is the
// only path that mints admin accounts.
func (h *UserHandler) Create(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	if !authz.Can(id, authz.ActionCreate, authz.Resource{Kind: authz.KindUser}) {
		return forbidden(c)
	}
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FullName == "" {
		return badRequest(c, "full_name is required")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	var (
		uid uint64
		err error
	)
	switch req.Role {
	case repository.RoleStudent:
		if req.ClassID == 0 {
			return badRequest(c, "class_id is required for students")
		}
		uid, err = h.Users.CreateStudent(ctx, req.FullName, req.ClassID, req.VisualPasswordID)
	case repository.RoleTeacher, repository.RoleAdmin:
		if req.Email == "" {
			return badRequest(c, "email is required")
		}
		if len(req.Password) < 8 {
			return badRequest(c, "password must be at least 8 characters")
		}
		var hash string
		hash, err = utils.HashPassword(req.Password, h.Cfg.BcryptCost)
		if err != nil {
			return respondErr(c, http.StatusInternalServerError, codeInternal, "something went wrong")
		}
		uid, err = h.Users.CreateAccount(ctx, req.FullName, req.Email, hash, req.Role)
	default:
		return badRequest(c, "role must be student, teacher or admin")
	}
	if err != nil {
		return storageErr(c, err, "user not found")
	}
	usr, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return storageErr(c, err, "user not found")
	}
	return respond(c, http.StatusCreated, usr)
}

type updateUserReq struct {
	FullName string `json:"full_name"`
	ClassID  uint64 `json:"class_id"`
	IsActive *bool  `json:"is_active"`
}

// Update handles PUT /api/users/:id. Role is immutable and not accepted here.
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	if !authz.Can(id, authz.ActionUpdate, authz.Resource{Kind: authz.KindUser}) {
		return forbidden(c)
	}
	uid, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		return badRequest(c, "full_name is required")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	existing, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return storageErr(c, err, "user not found")
	}
	isActive := existing.IsActive
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	classID := existing.ClassID
	if req.ClassID != 0 {
		classID = req.ClassID
	}
	if err := h.Users.Update(ctx, uid, req.FullName, classID, isActive); err != nil {
		return storageErr(c, err, "user not found")
	}
	updated, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return storageErr(c, err, "user not found")
	}
	return respond(c, http.StatusOK, updated)
}

// Delete handles DELETE /api/users/:id.
func (h *UserHandler) Delete(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	if !authz.Can(id, authz.ActionDelete, authz.Resource{Kind: authz.KindUser}) {
		return forbidden(c)
	}
	uid, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	if uid == id.UserID {
		return badRequest(c, "cannot delete your own account")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.Delete(ctx, uid); err != nil {
		return storageErr(c, err, "user not found")
	}
	return respond(c, http.StatusOK, echo.Map{"deleted": true})
}
