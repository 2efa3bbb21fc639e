package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reading-practice/internal/config"
	"github.com/iliyamo/reading-practice/internal/repository"
	"github.com/iliyamo/reading-practice/internal/session"
)

// JoinClassStore resolves a class from its enrollment token.
type JoinClassStore interface {
	GetByAccessToken(ctx context.Context, token string) (repository.Class, error)
}

// JoinUserStore resolves or creates student identities within a class.
type JoinUserStore interface {
	GetStudentByNameAndClass(ctx context.Context, fullName string, classID uint64) (repository.User, error)
	CreateStudent(ctx context.Context, fullName string, classID, visualPasswordID uint64) (uint64, error)
	SetVisualPassword(ctx context.Context, id, visualPasswordID uint64) error
	GetByID(ctx context.Context, id uint64) (repository.User, error)
}

// VisualPasswordStore validates picklist choices.
type VisualPasswordStore interface {
	Exists(ctx context.Context, id uint64) (bool, error)
	List(ctx context.Context) ([]repository.VisualPassword, error)
}

// JoinHandler implements the student class-access flow: class access token
// plus full name plus visual password, no typed credentials anywhere.
type JoinHandler struct {
	Cfg             config.Config
	Classes         JoinClassStore
	Users           JoinUserStore
	VisualPasswords VisualPasswordStore
	Sessions        *session.Store
}

func NewJoinHandler(cfg config.Config, classes JoinClassStore, users JoinUserStore, vps VisualPasswordStore, sessions *session.Store) *JoinHandler {
	return &JoinHandler{Cfg: cfg, Classes: classes, Users: users, VisualPasswords: vps, Sessions: sessions}
}

type joinReq struct {
	AccessToken      string `json:"access_token"`
	FullName         string `json:"full_name"`
	VisualPasswordID uint64 `json:"visual_password_id"`
}

// Join handles POST /api/auth/join. The flow is: token lookup, identity
// resolution (create on first contact), visual-password check (first use sets
// it), session issuance. Every failure returns the same generic message so
// valid names and tokens cannot be probed step by step.
func (h *JoinHandler) Join(c echo.Context) error {
	var req joinReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.AccessToken = strings.ToUpper(strings.TrimSpace(req.AccessToken))
	req.FullName = strings.TrimSpace(req.FullName)
	if req.AccessToken == "" {
		return badRequest(c, "access_token is required")
	}
	if req.FullName == "" {
		return badRequest(c, "full_name is required")
	}
	if req.VisualPasswordID == 0 {
		return badRequest(c, "visual_password_id is required")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	// Step 1: token lookup.
	class, err := h.Classes.GetByAccessToken(ctx, req.AccessToken)
	if err != nil || !class.AllowSelfEnroll {
		return h.authFailed(c)
	}

	// The picked icon must at least be a real picklist entry.
	if ok, err := h.VisualPasswords.Exists(ctx, req.VisualPasswordID); err != nil || !ok {
		return h.authFailed(c)
	}

	// Step 2: identity resolution.
	student, err := h.Users.GetStudentByNameAndClass(ctx, req.FullName, class.ID)
	switch err {
	case nil:
	case repository.ErrNotFound:
		uid, err := h.Users.CreateStudent(ctx, req.FullName, class.ID, req.VisualPasswordID)
		if err != nil {
			return h.authFailed(c)
		}
		student, err = h.Users.GetByID(ctx, uid)
		if err != nil {
			return h.authFailed(c)
		}
	default:
		return h.authFailed(c)
	}

	// Step 3: visual-password check; first-time use sets it.
	switch {
	case student.VisualPasswordID == 0:
		if err := h.Users.SetVisualPassword(ctx, student.ID, req.VisualPasswordID); err != nil {
			return h.authFailed(c)
		}
	case student.VisualPasswordID != req.VisualPasswordID:
		return h.authFailed(c)
	}

	if !student.IsActive {
		return h.authFailed(c)
	}

	// Step 4: session issuance.
	tok, err := h.Sessions.Create(session.Identity{
		UserID:   student.ID,
		Role:     repository.RoleStudent,
		ClassID:  class.ID,
		FullName: student.FullName,
	})
	if err != nil {
		return h.authFailed(c)
	}
	c.SetCookie(session.Cookie(tok, h.Cfg.SessionTTL))
	return respond(c, http.StatusOK, sessionResp{User: student, Token: tok})
}

// authFailed is the uniform join failure: one message, one status, no hint
// about which step broke.
func (h *JoinHandler) authFailed(c echo.Context) error {
	return unauthenticated(c, "authentication failed")
}

// ListVisualPasswords handles GET /api/visual-passwords, the public picklist
// shown on the join screen.
func (h *JoinHandler) ListVisualPasswords(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	vps, err := h.VisualPasswords.List(ctx)
	if err != nil {
		return storageErr(c, err, "")
	}
	return respond(c, http.StatusOK, vps)
}
