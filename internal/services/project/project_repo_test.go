package project

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	projectRowColumns = []string{"id", "name", "description", "manager_id", "status", "created_at", "updated_at"}
	memberRowColumns  = []string{"project_id", "user_id", "name", "email", "added_at"}
)

func newMockRepo(t *testing.T) (*ProjectRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewProjectRepo(sqlx.NewDb(db, "postgres")), mock
}

func expectProjectByID(mock sqlmock.Sqlmock, id uuid.UUID, managerID string) {
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM projects WHERE id = $1`)).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(projectRowColumns).
			AddRow(id.String(), "Apollo", "moon", managerID, string(StatusActive), now, now))
}

func TestProjectRepo_GetWithMember(t *testing.T) {
	repo, mock := newMockRepo(t)
	projectID := uuid.New()
	managerID := uuid.NewString()
	memberID := uuid.NewString()

	expectProjectByID(mock, projectID, managerID)
	mock.ExpectQuery(regexp.QuoteMeta(`JOIN users u ON u.id = pm.user_id WHERE pm.project_id = $1 AND pm.user_id = $2`)).
		WithArgs(projectID.String(), memberID).
		WillReturnRows(sqlmock.NewRows(memberRowColumns).
			AddRow(projectID.String(), memberID, "Mia", "mia@oneflow.test", time.Now()))

	p, err := repo.GetWithMember(context.Background(), projectID, memberID)
	require.NoError(t, err)
	assert.Equal(t, projectID, p.ID)
	assert.Equal(t, managerID, p.ManagerID)
	require.Len(t, p.Members, 1)
	assert.True(t, p.HasMember(memberID))
	assert.False(t, p.HasMember(managerID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepo_GetWithMember_NotAMember(t *testing.T) {
	repo, mock := newMockRepo(t)
	projectID := uuid.New()
	outsider := uuid.NewString()

	expectProjectByID(mock, projectID, uuid.NewString())
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE pm.project_id = $1 AND pm.user_id = $2`)).
		WithArgs(projectID.String(), outsider).
		WillReturnRows(sqlmock.NewRows(memberRowColumns))

	p, err := repo.GetWithMember(context.Background(), projectID, outsider)
	require.NoError(t, err)
	assert.Empty(t, p.Members)
	assert.False(t, p.HasMember(outsider))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepo_GetWithMember_UnknownProject(t *testing.T) {
	repo, mock := newMockRepo(t)
	projectID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM projects WHERE id = $1`)).
		WithArgs(projectID.String()).
		WillReturnRows(sqlmock.NewRows(projectRowColumns))

	_, err := repo.GetWithMember(context.Background(), projectID, uuid.NewString())
	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepo_ListForUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := uuid.NewString()
	managed, joined := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT p.id`) + `.*` +
		regexp.QuoteMeta(`LEFT JOIN project_members pm ON pm.project_id = p.id WHERE p.manager_id = $1 OR pm.user_id = $1 ORDER BY p.created_at DESC`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(projectRowColumns).
			AddRow(managed.String(), "Managed", "", userID, string(StatusPlanned), now, now).
			AddRow(joined.String(), "Joined", "", uuid.NewString(), string(StatusActive), now.Add(-time.Hour), now))

	projects, err := repo.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, managed, projects[0].ID)
	assert.Equal(t, userID, projects[0].ManagerID)
	assert.Equal(t, joined, projects[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
