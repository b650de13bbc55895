package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrMemberNotFound  = errors.New("project member not found")
	ErrUnknownUser     = errors.New("user does not exist")
)

const projectColumns = `id, name, description, manager_id, status, created_at, updated_at`

// ProjectRepo handles database operations for projects
type ProjectRepo struct {
	db *sqlx.DB
}

// NewProjectRepo creates a new project repository
func NewProjectRepo(db *sqlx.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

// Create creates a new project
func (r *ProjectRepo) Create(ctx context.Context, req *CreateProjectRequest) (*Project, error) {
	query := `
        INSERT INTO projects (name, description, manager_id, status)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + projectColumns

	var project Project
	err := r.db.GetContext(ctx, &project, query, req.Name, req.Description, req.ManagerID, req.Status)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: manager %s", ErrUnknownUser, req.ManagerID)
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return &project, nil
}

// GetByID retrieves a project by ID
func (r *ProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	var project Project
	err := r.db.GetContext(ctx, &project, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// GetByName retrieves a project by name
func (r *ProjectRepo) GetByName(ctx context.Context, name string) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE name = $1`

	var project Project
	err := r.db.GetContext(ctx, &project, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// List retrieves all projects ordered by creation date
func (r *ProjectRepo) List(ctx context.Context) ([]*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at DESC`

	var projects []*Project
	err := r.db.SelectContext(ctx, &projects, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

// ListForUser returns the projects userID manages or belongs to
func (r *ProjectRepo) ListForUser(ctx context.Context, userID string) ([]*Project, error) {
	query := `
        SELECT DISTINCT p.id, p.name, p.description, p.manager_id, p.status, p.created_at, p.updated_at
        FROM projects p
        LEFT JOIN project_members pm ON pm.project_id = p.id
        WHERE p.manager_id = $1 OR pm.user_id = $1
        ORDER BY p.created_at DESC
    `

	var projects []*Project
	if err := r.db.SelectContext(ctx, &projects, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

// Update updates project fields
func (r *ProjectRepo) Update(ctx context.Context, id uuid.UUID, req *UpdateProjectRequest) (*Project, error) {
	setParts := []string{}
	args := []interface{}{}

	if req.Name != nil {
		setParts = append(setParts, fmt.Sprintf("name = $%d", len(args)+1))
		args = append(args, *req.Name)
	}

	if req.Description != nil {
		setParts = append(setParts, fmt.Sprintf("description = $%d", len(args)+1))
		args = append(args, *req.Description)
	}

	if req.ManagerID != nil {
		setParts = append(setParts, fmt.Sprintf("manager_id = $%d", len(args)+1))
		args = append(args, *req.ManagerID)
	}

	if req.Status != nil {
		setParts = append(setParts, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *req.Status)
	}

	if len(setParts) == 0 {
		return r.GetByID(ctx, id)
	}

	setParts = append(setParts, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`
        UPDATE projects
        SET %s
        WHERE id = $%d
        RETURNING %s
    `, strings.Join(setParts, ", "), len(args), projectColumns)

	var project Project
	err := r.db.GetContext(ctx, &project, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: manager %s", ErrUnknownUser, *req.ManagerID)
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return &project, nil
}

// Delete removes a project by ID
func (r *ProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM projects WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProjectNotFound
	}

	return nil
}

// AddMember adds userID to the project; adding an existing member is a no-op
func (r *ProjectRepo) AddMember(ctx context.Context, projectID uuid.UUID, userID string) error {
	query := `
        INSERT INTO project_members (project_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (project_id, user_id) DO NOTHING
    `

	if _, err := r.db.ExecContext(ctx, query, projectID, userID); err != nil {
		if isForeignKeyViolation(err) {
			var pqErr *pq.Error
			errors.As(err, &pqErr)
			if strings.Contains(pqErr.Constraint, "project") {
				return ErrProjectNotFound
			}
			return fmt.Errorf("%w: %s", ErrUnknownUser, userID)
		}
		return fmt.Errorf("failed to add member: %w", err)
	}

	return nil
}

// RemoveMember removes userID from the project
func (r *ProjectRepo) RemoveMember(ctx context.Context, projectID uuid.UUID, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrMemberNotFound
	}

	return nil
}

// ListMembers returns every member of the project with their user details
func (r *ProjectRepo) ListMembers(ctx context.Context, projectID uuid.UUID) ([]*Member, error) {
	query := `
        SELECT pm.project_id, pm.user_id, u.name, u.email, pm.added_at
        FROM project_members pm
        JOIN users u ON u.id = pm.user_id
        WHERE pm.project_id = $1
        ORDER BY pm.added_at
    `

	var members []*Member
	if err := r.db.SelectContext(ctx, &members, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	return members, nil
}

// GetWithMember loads the project with its member list filtered down to userID.
func (r *ProjectRepo) GetWithMember(ctx context.Context, projectID uuid.UUID, userID string) (*ProjectWithMembers, error) {
	p, err := r.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	query := `
        SELECT pm.project_id, pm.user_id, u.name, u.email, pm.added_at
        FROM project_members pm
        JOIN users u ON u.id = pm.user_id
        WHERE pm.project_id = $1 AND pm.user_id = $2
    `

	var members []*Member
	if err := r.db.SelectContext(ctx, &members, query, projectID, userID); err != nil {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}

	return &ProjectWithMembers{Project: p, Members: members}, nil
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
