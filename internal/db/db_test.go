package db

import (
	"io"
	"testing"

	"creddit/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestOpenSQLiteMigrates(t *testing.T) {
	gdb, err := Open("sqlite", ":memory:", quietLogger())
	require.NoError(t, err)

	for _, m := range []any{&models.User{}, &models.Post{}, &models.Vote{}} {
		assert.True(t, gdb.Migrator().HasTable(m))
	}

	user := models.User{Username: "alice", Email: "alice@example.com", Password: "x"}
	require.NoError(t, gdb.Create(&user).Error)
	assert.Equal(t, 0, user.CreatedAt.Nanosecond()%1000, "timestamps truncated to microseconds")

	// foreign keys are enforced
	err = gdb.Create(&models.Post{AuthorID: 999, Title: "t", Text: "x"}).Error
	assert.Error(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "", quietLogger())
	assert.Error(t, err)
}
