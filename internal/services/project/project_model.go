package project

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPlanned   Status = "PLANNED"
	StatusActive    Status = "IN_PROGRESS"
	StatusOnHold    Status = "ON_HOLD"
	StatusCompleted Status = "COMPLETED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusActive, StatusOnHold, StatusCompleted:
		return true
	}
	return false
}

// Project is the unit membership checks are scoped to.
type Project struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	ManagerID   string    `json:"manager_id" db:"manager_id"`
	Status      Status    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Member links a user to a project.
type Member struct {
	ProjectID uuid.UUID `json:"project_id" db:"project_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	AddedAt   time.Time `json:"added_at" db:"added_at"`
}

// ProjectWithMembers holds a project and a possibly filtered member list.
type ProjectWithMembers struct {
	*Project
	Members []*Member `json:"members"`
}

// HasMember reports whether userID is in the loaded member list.
func (p *ProjectWithMembers) HasMember(userID string) bool {
	for _, m := range p.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// CreateProjectRequest captures payload for creating a project
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ManagerID   string `json:"manager_id,omitempty"`
	Status      Status `json:"status,omitempty"`
}

// UpdateProjectRequest captures payload for updating a project
type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	ManagerID   *string `json:"manager_id,omitempty"`
	Status      *Status `json:"status,omitempty"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
}
