package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/service"
)

// AuthHandler serves sign-in, token and account endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(a *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: a}
}

// ----- DTOs -----

type codeReq struct {
	Credential string `json:"credential" validate:"required,max=254"`
}
type verifyReq struct {
	Credential string `json:"credential" validate:"required,max=254"`
	Code       string `json:"code" validate:"required,numeric,max=10"`
}
type loginReq struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
type logoutReq struct {
	RefreshToken string `json:"refresh_token"`
}
type createUserReq struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=SUPERUSER COORDINATOR"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type tokensResp struct {
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}
type sessionResp struct {
	User          model.User          `json:"user"`
	Registrations []model.Participant `json:"registrations,omitempty"`
	tokensResp
}

func toTokens(p service.TokenPair) tokensResp {
	return tokensResp{
		Access:  tokenPart{Token: p.Access.Token, Expires: p.Access.Exp},
		Refresh: tokenPart{Token: p.Refresh.Raw, Expires: p.Refresh.Exp},
	}
}

func toSession(s service.Session) sessionResp {
	return sessionResp{User: s.User, Registrations: s.Participants, tokensResp: toTokens(s.Tokens)}
}

// RequestCode: POST /v1/auth/otp/request
func (h *AuthHandler) RequestCode(c echo.Context) error {
	var req codeReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Auth.RequestCode(ctx, req.Credential); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "code_sent"})
}

// VerifyCode: POST /v1/auth/otp/verify. Consumes the code and signs the
// student in, linking every registration made with the same email.
func (h *AuthHandler) VerifyCode(c echo.Context) error {
	var req verifyReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Auth.VerifyCode(ctx, req.Credential, req.Code)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, toSession(s))
}

// Login: POST /v1/auth/login (staff only).
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, toSession(s))
}

// Refresh: POST /v1/auth/refresh. The presented token is revoked.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	pair, err := h.Auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, toTokens(pair))
}

// Logout: POST /v1/auth/logout. With a refresh_token in the body only that
// token is revoked; an authenticated call without one ends every session.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Auth.Logout(ctx, actorFrom(c), req.RefreshToken); err != nil {
		return respondErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me: GET /v1/me
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Auth.Me(ctx, actorFrom(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// CreateUser: POST /v1/users (superuser).
func (h *AuthHandler) CreateUser(c echo.Context) error {
	var req createUserReq
	if err := bind(c, &req); err != nil {
		return respondErr(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Auth.CreateUser(ctx, actorFrom(c), service.NewUser{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// ListUsers: GET /v1/users (superuser).
func (h *AuthHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Auth.ListUsers(ctx, actorFrom(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, users)
}
