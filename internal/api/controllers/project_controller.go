package controllers

import (
	"errors"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/curaious/oneflow/internal/api/authenticator"
	"github.com/curaious/oneflow/internal/perrors"
	"github.com/curaious/oneflow/internal/rbac"
	"github.com/curaious/oneflow/internal/services"
	project2 "github.com/curaious/oneflow/internal/services/project"
)

const projectIDParam = "projectId"

func RegisterProjectRoutes(r *router.Router, svc *services.Services, auth *authenticator.Authenticator) {
	member := authenticator.IsProjectMember(svc.Project, projectIDParam)

	// Create project
	r.POST("/api/projects", authenticator.Chain(func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, ok := currentIdentity(ctx, stdCtx)
		if !ok {
			return
		}

		var body project2.CreateProjectRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		// Project managers always manage what they create
		if id.Role == rbac.RoleProjectManager || body.ManagerID == "" {
			body.ManagerID = id.ID
		}
		if !isUUID(body.ManagerID) {
			writeError(ctx, stdCtx, "Invalid manager_id", perrors.NewErrInvalidRequest("Invalid manager_id", errors.New("manager_id must be a uuid")))
			return
		}

		created, err := svc.Project.Create(stdCtx, &body)
		if err != nil {
			fail(ctx, stdCtx, projectError(err, "Failed to create project"))
			return
		}

		writeCreated(ctx, stdCtx, "Project created successfully", created)
	}, auth.Require, authenticator.IsAdminOrPM()))

	// List projects visible to the caller
	r.GET("/api/projects", auth.Require(func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, ok := currentIdentity(ctx, stdCtx)
		if !ok {
			return
		}

		projects, err := svc.Project.ListVisible(stdCtx, id.ID, id.Role)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list projects", perrors.NewErrInternalServerError("Failed to list projects", err))
			return
		}

		writeOK(ctx, stdCtx, "Projects retrieved successfully", projects)
	}))

	r.GET("/api/projects/{projectId}", authenticator.Chain(func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, projectIDParam)
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		p, err := svc.Project.GetByID(stdCtx, id)
		if err != nil {
			fail(ctx, stdCtx, projectError(err, "Failed to get project"))
			return
		}

		writeOK(ctx, stdCtx, "Project retrieved successfully", p)
	}, auth.Require, member))

	// Update project
	r.PUT("/api/projects/{projectId}", authenticator.Chain(func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, projectIDParam)
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body project2.UpdateProjectRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		if body.ManagerID != nil && !isUUID(*body.ManagerID) {
			writeError(ctx, stdCtx, "Invalid manager_id", perrors.NewErrInvalidRequest("Invalid manager_id", errors.New("manager_id must be a uuid")))
			return
		}

		updated, err := svc.Project.Update(stdCtx, id, &body)
		if err != nil {
			fail(ctx, stdCtx, projectError(err, "Failed to update project"))
			return
		}

		writeOK(ctx, stdCtx, "Project updated successfully", updated)
	}, auth.Require, authenticator.IsAdminOrPM(), member))

	// Delete project
	r.DELETE("/api/projects/{projectId}", authenticator.Chain(func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, projectIDParam)
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		if err := svc.Project.Delete(stdCtx, id); err != nil {
			fail(ctx, stdCtx, projectError(err, "Failed to delete project"))
			return
		}

		writeOK(ctx, stdCtx, "Project deleted successfully", nil)
	}, auth.Require, authenticator.Authorize(rbac.RoleAdmin)))

	r.GET("/api/projects/{projectId}/members", authenticator.Chain(func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, projectIDParam)
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		members, err := svc.Project.ListMembers(stdCtx, id)
		if err != nil {
			fail(ctx, stdCtx, projectError(err, "Failed to list members"))
			return
		}

		writeOK(ctx, stdCtx, "Members retrieved successfully", members)
	}, auth.Require, member))

	r.POST("/api/projects/{projectId}/members", authenticator.Chain(func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, projectIDParam)
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body project2.AddMemberRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}
		if !isUUID(body.UserID) {
			writeError(ctx, stdCtx, "Invalid user_id", perrors.NewErrInvalidRequest("Invalid user_id", errors.New("user_id must be a uuid")))
			return
		}

		if err := svc.Project.AddMember(stdCtx, id, body.UserID); err != nil {
			fail(ctx, stdCtx, projectError(err, "Failed to add member"))
			return
		}

		writeCreated(ctx, stdCtx, "Member added successfully", nil)
	}, auth.Require, authenticator.IsAdminOrPM(), member))

	r.DELETE("/api/projects/{projectId}/members/{userId}", authenticator.Chain(func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, projectIDParam)
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}
		userID, err := pathParamUUID(ctx, "userId")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid user ID format", perrors.NewErrInvalidRequest("Invalid user ID format", err))
			return
		}

		if err := svc.Project.RemoveMember(stdCtx, id, userID.String()); err != nil {
			fail(ctx, stdCtx, projectError(err, "Failed to remove member"))
			return
		}

		writeOK(ctx, stdCtx, "Member removed successfully", nil)
	}, auth.Require, authenticator.IsAdminOrPM(), member))
}

func projectError(err error, fallback string) error {
	switch {
	case errors.Is(err, project2.ErrInvalidProject):
		return perrors.NewErrInvalidRequest(err.Error(), err)
	case errors.Is(err, project2.ErrProjectNotFound):
		return perrors.NewErrNotFound("Project not found", err)
	case errors.Is(err, project2.ErrMemberNotFound):
		return perrors.NewErrNotFound("Member not found", err)
	case errors.Is(err, project2.ErrUnknownUser):
		return perrors.NewErrInvalidRequest("User does not exist", err)
	case errors.Is(err, project2.ErrProjectAlreadyExists):
		return perrors.NewErrConflict("Project with this name already exists", err)
	default:
		return perrors.NewErrInternalServerError(fallback, err)
	}
}
