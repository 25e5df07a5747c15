package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seating-planner/internal/config"
)

func TestDSN(t *testing.T) {
	c := config.DBConfig{User: "app", Host: "db", Port: "3306", Name: "wedding"}
	mc, err := mysql.ParseDSN(DSN(c))
	require.NoError(t, err)
	assert.Equal(t, "app", mc.User)
	assert.Empty(t, mc.Passwd)
	assert.Equal(t, "db:3306", mc.Addr)
	assert.Equal(t, "wedding", mc.DBName)
	assert.True(t, mc.ParseTime)
	assert.Equal(t, time.UTC, mc.Loc)
	assert.False(t, mc.MultiStatements)

	c.Pass = "s3cret"
	assert.Contains(t, DSN(c), "app:s3cret@tcp(db:3306)/wedding")
}

func TestMigrate_RunsEveryStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range schema {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS")).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StopsAtFirstFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS refresh_tokens").WillReturnError(assert.AnError)

	err = Migrate(context.Background(), db)
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "schema statement 2")
}
