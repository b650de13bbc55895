package project

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/curaious/oneflow/internal/rbac"
)

var (
	ErrProjectAlreadyExists = errors.New("project already exists")
	ErrInvalidProject       = errors.New("invalid project")
)

// Store is the persistence the service needs; *ProjectRepo satisfies it.
type Store interface {
	Create(ctx context.Context, req *CreateProjectRequest) (*Project, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	GetByName(ctx context.Context, name string) (*Project, error)
	List(ctx context.Context) ([]*Project, error)
	ListForUser(ctx context.Context, userID string) ([]*Project, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateProjectRequest) (*Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddMember(ctx context.Context, projectID uuid.UUID, userID string) error
	RemoveMember(ctx context.Context, projectID uuid.UUID, userID string) error
	ListMembers(ctx context.Context, projectID uuid.UUID) ([]*Member, error)
	GetWithMember(ctx context.Context, projectID uuid.UUID, userID string) (*ProjectWithMembers, error)
}

// ProjectService contains business logic for projects
type ProjectService struct {
	repo Store
}

// NewProjectService constructs a new ProjectService
func NewProjectService(repo Store) *ProjectService {
	return &ProjectService{repo: repo}
}

// Create registers a new project ensuring name uniqueness
func (s *ProjectService) Create(ctx context.Context, req *CreateProjectRequest) (*Project, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidProject)
	}
	if req.ManagerID == "" {
		return nil, fmt.Errorf("%w: project manager is required", ErrInvalidProject)
	}
	if req.Status == "" {
		req.Status = StatusPlanned
	}
	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidProject, req.Status)
	}

	if _, err := s.repo.GetByName(ctx, req.Name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectAlreadyExists, req.Name)
	} else if !errors.Is(err, ErrProjectNotFound) {
		return nil, fmt.Errorf("failed to validate project name: %w", err)
	}

	project, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// GetByID fetches a project by its identifier
func (s *ProjectService) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// ListVisible returns every project for admins and the caller's own projects otherwise
func (s *ProjectService) ListVisible(ctx context.Context, userID string, role rbac.Role) ([]*Project, error) {
	var (
		projects []*Project
		err      error
	)
	if role == rbac.RoleAdmin {
		projects, err = s.repo.List(ctx)
	} else {
		projects, err = s.repo.ListForUser(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

// Update modifies mutable project fields
func (s *ProjectService) Update(ctx context.Context, id uuid.UUID, req *UpdateProjectRequest) (*Project, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: project name cannot be empty", ErrInvalidProject)
		}
		req.Name = &name
		if name != existing.Name {
			if _, err := s.repo.GetByName(ctx, name); err == nil {
				return nil, fmt.Errorf("%w: %s", ErrProjectAlreadyExists, name)
			} else if !errors.Is(err, ErrProjectNotFound) {
				return nil, fmt.Errorf("failed to validate project name: %w", err)
			}
		}
	}

	if req.Status != nil && !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidProject, *req.Status)
	}

	project, err := s.repo.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return project, nil
}

// Delete removes a project by ID
func (s *ProjectService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}

func (s *ProjectService) AddMember(ctx context.Context, projectID uuid.UUID, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidProject)
	}
	return s.repo.AddMember(ctx, projectID, userID)
}

func (s *ProjectService) RemoveMember(ctx context.Context, projectID uuid.UUID, userID string) error {
	return s.repo.RemoveMember(ctx, projectID, userID)
}

func (s *ProjectService) ListMembers(ctx context.Context, projectID uuid.UUID) ([]*Member, error) {
	if _, err := s.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, projectID)
}

// GetWithMember loads the project with membership filtered to userID; used by authorization.
func (s *ProjectService) GetWithMember(ctx context.Context, projectID uuid.UUID, userID string) (*ProjectWithMembers, error) {
	return s.repo.GetWithMember(ctx, projectID, userID)
}
