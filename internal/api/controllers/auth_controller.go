package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/curaious/oneflow/internal/api/authenticator"
	"github.com/curaious/oneflow/internal/perrors"
	"github.com/curaious/oneflow/internal/rbac"
	"github.com/curaious/oneflow/internal/services"
	"github.com/curaious/oneflow/internal/services/session"
	"github.com/curaious/oneflow/internal/services/user"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      *user.User `json:"user"`
}

type MenuResponse struct {
	Role  rbac.Role       `json:"role"`
	Items []rbac.MenuItem `json:"items"`
}

func RegisterAuthRoutes(r *router.Router, svc *services.Services, auth *authenticator.Authenticator) {
	r.POST("/api/auth/register", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var req user.RegisterRequest
		if err := parseBody(ctx, &req); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		u, err := svc.User.Register(stdCtx, &req)
		if err != nil {
			fail(ctx, stdCtx, userError(err, "Failed to register"))
			return
		}

		writeCreated(ctx, stdCtx, "Registered, check your email for a verification code", u)
	})

	r.POST("/api/auth/verify-email", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var req user.VerifyEmailRequest
		if err := parseBody(ctx, &req); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		u, err := svc.User.VerifyEmail(stdCtx, req.Email, req.Code)
		if err != nil {
			fail(ctx, stdCtx, userError(err, "Failed to verify email"))
			return
		}

		writeOK(ctx, stdCtx, "Email verified", u)
	})

	r.POST("/api/auth/resend-verification", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var req user.ResendVerificationRequest
		if err := parseBody(ctx, &req); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}
		if req.Email == "" {
			writeError(ctx, stdCtx, "Email is required", perrors.NewErrInvalidRequest("Email is required", errors.New("missing email")))
			return
		}

		if err := svc.User.ResendVerificationCode(stdCtx, req.Email); err != nil {
			fail(ctx, stdCtx, userError(err, "Failed to resend verification code"))
			return
		}

		writeOK(ctx, stdCtx, "Verification code sent", nil)
	})

	r.POST("/api/auth/login", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var req LoginRequest
		if err := parseBody(ctx, &req); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		if req.Email == "" || req.Password == "" {
			writeError(ctx, stdCtx, "Email and password are required", perrors.NewErrInvalidRequest("Email and password are required", errors.New("missing credentials")))
			return
		}

		resp, err := login(stdCtx, svc, &req, string(ctx.UserAgent()), ctx.RemoteIP().String())
		if err != nil {
			fail(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "success", resp)
	})

	r.POST("/api/auth/logout", auth.Require(func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, ok := currentIdentity(ctx, stdCtx)
		if !ok {
			return
		}

		token, _ := authenticator.BearerToken(string(ctx.Request.Header.Peek(fasthttp.HeaderAuthorization)))
		if err := svc.Session.Delete(stdCtx, id.ID, token); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
			writeError(ctx, stdCtx, "Failed to logout", perrors.NewErrInternalServerError("Failed to logout", err))
			return
		}

		writeOK(ctx, stdCtx, "Logged out successfully", nil)
	}))

	r.POST("/api/auth/logout-all", auth.Require(func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, ok := currentIdentity(ctx, stdCtx)
		if !ok {
			return
		}

		if err := svc.Session.DeleteAllForUser(stdCtx, id.ID); err != nil {
			writeError(ctx, stdCtx, "Failed to logout", perrors.NewErrInternalServerError("Failed to logout", err))
			return
		}

		writeOK(ctx, stdCtx, "Logged out of all sessions", nil)
	}))

	r.GET("/api/auth/me", auth.Require(func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, ok := currentIdentity(ctx, stdCtx)
		if !ok {
			return
		}

		u, err := svc.User.GetByID(stdCtx, id.ID)
		if err != nil {
			fail(ctx, stdCtx, userError(err, "Failed to get user"))
			return
		}

		writeOK(ctx, stdCtx, "success", u)
	}))

	r.GET("/api/auth/menu", auth.Require(func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, ok := currentIdentity(ctx, stdCtx)
		if !ok {
			return
		}

		writeOK(ctx, stdCtx, "success", MenuResponse{Role: id.Role, Items: rbac.MenuFor(id.Role)})
	}))
}

// login checks credentials, issues a token and persists the matching session.
func login(ctx context.Context, svc *services.Services, req *LoginRequest, userAgent, ip string) (*LoginResponse, error) {
	u, err := svc.User.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, userError(err, "Failed to login")
	}

	token, expiresAt, err := svc.Tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to generate token", err)
	}

	s := &session.Session{
		UserID:    u.ID,
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: expiresAt,
	}
	if err := svc.Session.Create(ctx, s, token); err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to create session", err, map[string]interface{}{"user_id": u.ID})
	}

	return &LoginResponse{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// userError maps user service errors to client facing ones.
func userError(err error, fallback string) error {
	switch {
	case errors.Is(err, user.ErrInvalidInput):
		return perrors.NewErrInvalidRequest(err.Error(), err)
	case errors.Is(err, user.ErrInvalidCredentials):
		return perrors.NewErrUnauthorized("Invalid credentials", err)
	case errors.Is(err, user.ErrAccountInactive):
		return perrors.NewErrForbidden(authenticator.ReasonAccountInactive, err)
	case errors.Is(err, user.ErrEmailNotVerified):
		return perrors.NewErrForbidden(authenticator.ReasonEmailNotVerified, err)
	case errors.Is(err, user.ErrInvalidCode):
		return perrors.NewErrInvalidRequest("Invalid verification code", err)
	case errors.Is(err, user.ErrCodeExpired):
		return perrors.NewErrInvalidRequest("Verification code expired", err)
	case errors.Is(err, user.ErrAlreadyVerified):
		return perrors.NewErrInvalidRequest("Email already verified", err)
	case errors.Is(err, user.ErrResendTooSoon):
		return perrors.New(perrors.ErrCodeTooManyRequests, "Verification code was sent recently, try again later", err)
	case errors.Is(err, user.ErrUserNotFound):
		return perrors.NewErrNotFound("User not found", err)
	case errors.Is(err, user.ErrUserAlreadyExists):
		return perrors.NewErrConflict("User with this email already exists", err)
	default:
		return perrors.NewErrInternalServerError(fallback, err)
	}
}
