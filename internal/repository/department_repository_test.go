package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dept-timetable-api/internal/models"
)

func newDepartmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestDepartmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newDepartmentRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "name", "created_at", "updated_at"}).
		AddRow("dept-cs", "CS", "Computer Science", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, created_at, updated_at FROM departments WHERE id = $1")).
		WithArgs("dept-cs").
		WillReturnRows(rows)

	department, err := repo.FindByID(context.Background(), "dept-cs")
	require.NoError(t, err)
	assert.Equal(t, "CS", department.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newDepartmentRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, created_at, updated_at FROM departments WHERE id = $1")).
		WithArgs("dept-missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "dept-missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryList(t *testing.T) {
	db, mock, cleanup := newDepartmentRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "name", "created_at", "updated_at"}).
		AddRow("dept-cs", "CS", "Computer Science", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY name DESC LIMIT 5 OFFSET 5")).
		WithArgs("%comp%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM departments")).
		WithArgs("%comp%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))

	list, total, err := repo.List(context.Background(), models.DepartmentFilter{
		Search:    "Comp",
		Page:      2,
		PageSize:  5,
		SortBy:    "name",
		SortOrder: "desc",
	})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, list, 1)
	assert.Equal(t, "Computer Science", list[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryListRejectsUnknownSort(t *testing.T) {
	db, mock, cleanup := newDepartmentRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY code ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "created_at", "updated_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM departments")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.DepartmentFilter{SortBy: "id; DROP TABLE departments"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
