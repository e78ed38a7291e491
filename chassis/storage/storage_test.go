package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	ok := NewEntry(WRITE_MESSAGE, "Q1", "msg-1", nil)
	_, err := uuid.Parse(ok.ID)
	require.NoError(t, err)
	assert.Equal(t, SUCCESS, ok.State)
	assert.Empty(t, ok.Error)
	assert.Equal(t, "msg-1", ok.MessageID)
	assert.False(t, ok.CreatedDt.IsZero())

	failed := NewEntry(DELETE_QUEUE, "Q1", "", errors.New("queue does not exist"))
	assert.Equal(t, ERROR, failed.State)
	assert.Equal(t, "queue does not exist", failed.Error)
	assert.NotEqual(t, ok.ID, failed.ID)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultRecentLimit, ClampLimit(0))
	assert.Equal(t, DefaultRecentLimit, ClampLimit(-3))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxRecentLimit, ClampLimit(MaxRecentLimit+1))
}

func TestNopRepository(t *testing.T) {
	var repo AuditRepository = NopRepository{}
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, NewEntry(CREATE_QUEUE, "Q1", "", nil)))
	entries, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
	cleaned, err := repo.CleanOldEntries(ctx, 60)
	require.NoError(t, err)
	assert.Zero(t, cleaned)
	repo.Close()
}
