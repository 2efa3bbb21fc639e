package handler

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reading-practice/internal/config"
	appmw "github.com/iliyamo/reading-practice/internal/middleware"
	"github.com/iliyamo/reading-practice/internal/repository"
	"github.com/iliyamo/reading-practice/internal/session"
	"github.com/iliyamo/reading-practice/internal/utils"
)

// AuthUserStore is the slice of the user repository the auth handler needs.
type AuthUserStore interface {
	CreateAccount(ctx context.Context, fullName, email, passwordHash, role string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (repository.User, error)
	GetByID(ctx context.Context, id uint64) (repository.User, error)
	SetPassword(ctx context.Context, id uint64, passwordHash string) error
}

// AuthHandler implements the email+password scheme used by teachers and
// admins. Students never pass through here; they join via JoinHandler.
type AuthHandler struct {
	Cfg      config.Config
	Users    AuthUserStore
	Sessions *session.Store
}

func NewAuthHandler(cfg config.Config, users AuthUserStore, sessions *session.Store) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Sessions: sessions}
}

type signUpReq struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResp struct {
	User  repository.User `json:"user"`
	Token string          `json:"token"`
}

// SignUp handles POST /api/auth/sign-up: creates a teacher account and signs
// it in immediately. Admin accounts are created by an admin through the
// users endpoint, never by self-service.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FullName == "" {
		return badRequest(c, "full_name is required")
	}
	if req.Email == "" {
		return badRequest(c, "email is required")
	}
	if len(req.Password) < 8 {
		return badRequest(c, "password must be at least 8 characters")
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "something went wrong")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	uid, err := h.Users.CreateAccount(ctx, req.FullName, req.Email, hash, repository.RoleTeacher)
	if err != nil {
		return storageErr(c, err, "user not found")
	}
	usr, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return storageErr(c, err, "user not found")
	}
	return h.issueSession(c, usr, http.StatusCreated)
}

// SignIn handles POST /api/auth/sign-in. Invalid email and invalid password
// are indistinguishable to the client.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	usr, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == repository.ErrNotFound {
			return unauthenticated(c, "invalid credentials")
		}
		return storageErr(c, err, "user not found")
	}
	if !usr.IsActive || !utils.VerifyPassword(usr.PasswordHash, req.Password) {
		return unauthenticated(c, "invalid credentials")
	}
	return h.issueSession(c, usr, http.StatusOK)
}

// SignOut handles POST /api/auth/sign-out: destroys this session only. Other
// concurrent sessions of the same user stay valid.
func (h *AuthHandler) SignOut(c echo.Context) error {
	if tok, ok := appmw.CurrentToken(c); ok {
		h.Sessions.Destroy(tok)
	}
	c.SetCookie(session.Cookie("", 0))
	return respond(c, http.StatusOK, echo.Map{"signed_out": true})
}

// Session handles GET /api/auth/session: returns the identity behind the
// presented token plus the current profile row.
func (h *AuthHandler) Session(c echo.Context) error {
	id, ok := identity(c)
	if !ok {
		return unauthenticated(c, "sign in required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	usr, err := h.Users.GetByID(ctx, id.UserID)
	if err != nil {
		return storageErr(c, err, "user not found")
	}
	return respond(c, http.StatusOK, echo.Map{"identity": id, "user": usr})
}

type forgotReq struct {
	Email string `json:"email"`
}

// ForgotPassword handles POST /api/auth/forgot-password. The response is the
// same whether or not the email exists, so accounts cannot be enumerated. The
// reset token is handed to the mail path (currently the process log; there is
// no outbound mailer in this deployment).
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return badRequest(c, "email is required")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if usr, err := h.Users.GetByEmail(ctx, req.Email); err == nil {
		if tok, err := utils.NewResetToken(h.Cfg.ResetSecret, usr.ID, h.Cfg.ResetTTL); err == nil {
			log.Printf("auth: password reset requested for user %d, token issued: %s", usr.ID, tok)
		}
	}
	return respond(c, http.StatusOK, echo.Map{
		"message": "if that email exists, a reset link has been sent",
	})
}

type resetReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword handles POST /api/auth/reset-password with a token from the
// forgot-password flow.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Token == "" {
		return badRequest(c, "token is required")
	}
	if len(req.Password) < 8 {
		return badRequest(c, "password must be at least 8 characters")
	}
	uid, err := utils.ParseResetToken(h.Cfg.ResetSecret, req.Token)
	if err != nil {
		return unauthenticated(c, "invalid or expired reset token")
	}
	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "something went wrong")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.SetPassword(ctx, uid, hash); err != nil {
		return storageErr(c, err, "user not found")
	}
	return respond(c, http.StatusOK, echo.Map{"reset": true})
}

// issueSession creates a fresh session for usr, sets the HTTP-only cookie and
// returns the token in the body for non-browser clients.
func (h *AuthHandler) issueSession(c echo.Context, usr repository.User, status int) error {
	tok, err := h.Sessions.Create(session.Identity{
		UserID:   usr.ID,
		Role:     usr.Role,
		ClassID:  usr.ClassID,
		FullName: usr.FullName,
	})
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "something went wrong")
	}
	c.SetCookie(session.Cookie(tok, h.Cfg.SessionTTL))
	return respond(c, status, sessionResp{User: usr, Token: tok})
}
