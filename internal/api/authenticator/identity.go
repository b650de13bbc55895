package authenticator

import (
	"context"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/curaious/oneflow/internal/rbac"
)

const (
	identityKey = "identity"
	// TraceContextKey holds the context.Context extracted from incoming trace headers.
	TraceContextKey = "traceCtx"
)

// Identity is the authenticated caller, built from the live user record.
type Identity struct {
	ID    string    `json:"id"`
	Email string    `json:"email"`
	Role  rbac.Role `json:"role"`
}

func SetIdentity(ctx *fasthttp.RequestCtx, id *Identity) {
	ctx.SetUserValue(identityKey, id)
}

func IdentityFrom(ctx *fasthttp.RequestCtx) (*Identity, bool) {
	id, ok := ctx.UserValue(identityKey).(*Identity)
	return id, ok && id != nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequestContext returns the standard context for downstream calls. fasthttp does not provide
// one, so we start from the extracted trace context or Background.
func RequestContext(ctx *fasthttp.RequestCtx) context.Context {
	if tc, ok := ctx.UserValue(TraceContextKey).(context.Context); ok && tc != nil {
		return tc
	}
	return context.Background()
}
