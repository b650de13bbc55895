package authenticator

import (
	"context"
	"errors"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/curaious/oneflow/internal/api/response"
	"github.com/curaious/oneflow/internal/perrors"
	"github.com/curaious/oneflow/internal/services/session"
	"github.com/curaious/oneflow/internal/services/user"
)

// Reasons surfaced verbatim to clients with a 401.
const (
	ReasonNoToken          = "No token provided"
	ReasonInvalidToken     = "Invalid token"
	ReasonTokenExpired     = "Token expired"
	ReasonInvalidSession   = "Invalid or expired session"
	ReasonUserNotFound     = "User not found"
	ReasonAccountInactive  = "Account is not active"
	ReasonEmailNotVerified = "Email not verified"
	ReasonAuthRequired     = "Authentication required"
)

var tracer = otel.Tracer("github.com/curaious/oneflow/internal/api/authenticator")

type TokenVerifier interface {
	Verify(token string) (*TokenPayload, error)
}

type SessionLookup interface {
	Get(ctx context.Context, userID, token string) (*session.Session, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Authenticator validates bearer tokens against the session store and the live user record.
type Authenticator struct {
	tokens   TokenVerifier
	sessions SessionLookup
	users    UserLookup
}

func New(tokens TokenVerifier, sessions SessionLookup, users UserLookup) *Authenticator {
	return &Authenticator{tokens: tokens, sessions: sessions, users: users}
}

// Authenticate runs the checks in order and stops at the first failure. Failures are
// perrors.Err values: 401 with one of the Reason* messages, or 500 when storage fails.
func (a *Authenticator) Authenticate(ctx context.Context, authorization string) (*Identity, error) {
	ctx, span := tracer.Start(ctx, "authenticate")
	defer span.End()

	id, err := a.authenticate(ctx, authorization)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if perr, ok := perrors.As(err); ok {
			span.SetAttributes(attribute.String("auth.failure", perr.Message))
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("user.id", id.ID), attribute.String("user.role", string(id.Role)))
	return id, nil
}

func (a *Authenticator) authenticate(ctx context.Context, authorization string) (*Identity, error) {
	token, ok := BearerToken(authorization)
	if !ok {
		return nil, perrors.NewErrUnauthorized(ReasonNoToken, nil)
	}

	payload, err := a.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil, perrors.NewErrUnauthorized(ReasonTokenExpired, err)
		}
		return nil, perrors.NewErrUnauthorized(ReasonInvalidToken, err)
	}

	if _, err := a.sessions.Get(ctx, payload.UserID, token); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, perrors.NewErrUnauthorized(ReasonInvalidSession, err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to verify session", err)
	}

	u, err := a.users.GetByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, perrors.NewErrUnauthorized(ReasonUserNotFound, err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to load user", err)
	}

	if !u.IsActive() {
		return nil, perrors.NewErrUnauthorized(ReasonAccountInactive, nil, map[string]interface{}{"user_id": u.ID, "status": u.Status})
	}
	if !u.EmailVerified {
		return nil, perrors.NewErrUnauthorized(ReasonEmailNotVerified, nil, map[string]interface{}{"user_id": u.ID})
	}

	return &Identity{ID: u.ID, Email: u.Email, Role: u.Role}, nil
}

// Require authenticates the request and attaches the Identity before calling next.
func (a *Authenticator) Require(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, err := a.Authenticate(RequestContext(ctx), string(ctx.Request.Header.Peek(fasthttp.HeaderAuthorization)))
		if err != nil {
			writeError(ctx, err)
			return
		}

		SetIdentity(ctx, id)
		next(ctx)
	}
}

func writeError(ctx *fasthttp.RequestCtx, err error) {
	msg := "Request failed"
	if perr, ok := perrors.As(err); ok {
		msg = perr.Message
	}
	response.NewResponse[any](RequestContext(ctx), msg, nil).WithError(err).Write(ctx)
}
