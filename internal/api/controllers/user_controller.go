package controllers

import (
	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/curaious/oneflow/internal/api/authenticator"
	"github.com/curaious/oneflow/internal/perrors"
	"github.com/curaious/oneflow/internal/rbac"
	"github.com/curaious/oneflow/internal/services"
	"github.com/curaious/oneflow/internal/services/user"
)

// RegisterUserRoutes mounts user administration, restricted to admins.
func RegisterUserRoutes(r *router.Router, svc *services.Services, auth *authenticator.Authenticator) {
	adminOnly := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return authenticator.Chain(h, auth.Require, authenticator.Authorize(rbac.RoleAdmin))
	}

	r.GET("/api/users", adminOnly(func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		users, err := svc.User.List(stdCtx)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list users", perrors.NewErrInternalServerError("Failed to list users", err))
			return
		}

		writeOK(ctx, stdCtx, "Users retrieved successfully", users)
	}))

	r.POST("/api/users", adminOnly(func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var body user.CreateUserRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		created, err := svc.User.CreateByAdmin(stdCtx, &body)
		if err != nil {
			fail(ctx, stdCtx, userError(err, "Failed to create user"))
			return
		}

		writeCreated(ctx, stdCtx, "User created successfully", created)
	}))

	r.PUT("/api/users/{id}/role", adminOnly(func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body user.UpdateRoleRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		updated, err := svc.User.UpdateRole(stdCtx, id.String(), body.Role)
		if err != nil {
			fail(ctx, stdCtx, userError(err, "Failed to update role"))
			return
		}

		writeOK(ctx, stdCtx, "Role updated successfully", updated)
	}))

	r.PUT("/api/users/{id}/status", adminOnly(func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body user.UpdateStatusRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		updated, err := svc.User.UpdateStatus(stdCtx, id.String(), body.Status)
		if err != nil {
			fail(ctx, stdCtx, userError(err, "Failed to update status"))
			return
		}

		writeOK(ctx, stdCtx, "Status updated successfully", updated)
	}))
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
