package authenticator

import (
	"context"
	"errors"
	"fmt"

	json "github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/curaious/oneflow/internal/perrors"
	"github.com/curaious/oneflow/internal/rbac"
	"github.com/curaious/oneflow/internal/services/project"
)

// Reasons surfaced verbatim to clients with a 403.
const (
	ReasonInsufficientRole  = "Insufficient permissions"
	ReasonProjectIDRequired = "Project ID is required"
	ReasonProjectNotFound   = "Project not found"
	ReasonNotProjectMember  = "You are not a member of this project"
)

// Middleware wraps a fasthttp handler.
type Middleware func(next fasthttp.RequestHandler) fasthttp.RequestHandler

// Chain applies mws so that the first one runs first.
func Chain(h fasthttp.RequestHandler, mws ...Middleware) fasthttp.RequestHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// MembershipLookup loads a project with its members filtered to one user.
type MembershipLookup interface {
	GetWithMember(ctx context.Context, projectID uuid.UUID, userID string) (*project.ProjectWithMembers, error)
}

// CheckRole allows id when its role is in allowed.
func CheckRole(id *Identity, allowed rbac.RoleSet) error {
	if id == nil {
		return perrors.NewErrUnauthorized(ReasonAuthRequired, nil)
	}
	if !allowed.Contains(id.Role) {
		return perrors.NewErrForbidden(ReasonInsufficientRole, nil, map[string]interface{}{
			"user_id": id.ID,
			"role":    id.Role,
			"allowed": allowed.Roles(),
		})
	}
	return nil
}

// CheckProjectMember allows admins, the project's manager, and listed members.
// An unknown project is reported as forbidden, same as a non-member.
func CheckProjectMember(ctx context.Context, projects MembershipLookup, id *Identity, rawProjectID string) error {
	if id == nil {
		return perrors.NewErrUnauthorized(ReasonAuthRequired, nil)
	}
	if rawProjectID == "" {
		return perrors.NewErrForbidden(ReasonProjectIDRequired, nil)
	}
	if id.Role == rbac.RoleAdmin {
		return nil
	}

	args := map[string]interface{}{"user_id": id.ID, "project_id": rawProjectID}

	projectID, err := uuid.Parse(rawProjectID)
	if err != nil {
		return perrors.NewErrForbidden(ReasonProjectNotFound, err, args)
	}

	p, err := projects.GetWithMember(ctx, projectID, id.ID)
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			return perrors.NewErrForbidden(ReasonProjectNotFound, err, args)
		}
		return perrors.NewErrInternalServerError("Failed to check project membership", err, args)
	}

	if p.ManagerID == id.ID || p.HasMember(id.ID) {
		return nil
	}
	return perrors.NewErrForbidden(ReasonNotProjectMember, nil, args)
}

// Authorize rejects callers whose role is not one of roles.
func Authorize(roles ...rbac.Role) Middleware {
	allowed := rbac.NewRoleSet(roles...)
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			id, _ := IdentityFrom(ctx)
			if err := CheckRole(id, allowed); err != nil {
				writeError(ctx, err)
				return
			}
			next(ctx)
		}
	}
}

func IsAdminOrPM() Middleware {
	return Authorize(rbac.RoleAdmin, rbac.RoleProjectManager)
}

// IsProjectMember reads the project id from route parameter param, falling back to the
// "projectId" field of a JSON body.
func IsProjectMember(projects MembershipLookup, param string) Middleware {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			id, _ := IdentityFrom(ctx)
			if err := CheckProjectMember(RequestContext(ctx), projects, id, ProjectIDFrom(ctx, param)); err != nil {
				writeError(ctx, err)
				return
			}
			next(ctx)
		}
	}
}

// ProjectIDFrom resolves the project id from the route or the request body.
func ProjectIDFrom(ctx *fasthttp.RequestCtx, param string) string {
	if param != "" {
		if v := ctx.UserValue(param); v != nil {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}

	body := ctx.PostBody()
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		ProjectID string `json:"projectId"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.ProjectID
}
