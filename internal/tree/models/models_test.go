package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestNewSyncedNode(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("zero and null years become unknown", func(t *testing.T) {
		n, err := NewSyncedNode(5, " X ", intPtr(0), nil, 14, 1, now)
		require.NoError(t, err)
		assert.Equal(t, "X", n.Name)
		assert.Nil(t, n.BirthYear)
		assert.Nil(t, n.DeathYear)
		assert.Equal(t, int64(14), *n.ParentID)
		assert.Equal(t, int64(5), *n.ExternalID)
		assert.False(t, n.IsDeleted)
		assert.Equal(t, now, n.CreatedAt)
	})

	t.Run("known years are kept", func(t *testing.T) {
		n, err := NewSyncedNode(6, "Y", intPtr(1820), intPtr(1891), 14, 1, now)
		require.NoError(t, err)
		assert.Equal(t, 1820, *n.BirthYear)
		assert.Equal(t, 1891, *n.DeathYear)
	})

	t.Run("invariants", func(t *testing.T) {
		_, err := NewSyncedNode(5, "  ", nil, nil, 14, 1, now)
		assert.ErrorIs(t, err, errNameRequired)
		_, err = NewSyncedNode(5, "X", nil, nil, 0, 1, now)
		assert.ErrorIs(t, err, errParentRequired)
		_, err = NewSyncedNode(0, "X", nil, nil, 14, 1, now)
		assert.ErrorIs(t, err, errExternalID)
	})
}

func TestChildFromNode(t *testing.T) {
	bio := "  "
	empty := ""
	icon := "https://cdn/icon.png"
	n := &Node{ID: 3, Name: "Ali", Biography: &bio, MiniIcon: &empty, MainIcon: &icon}

	c := ChildFromNode(n)
	assert.False(t, c.Info, "whitespace biography is not a biography")
	assert.Nil(t, c.MiniIcon)
	assert.Equal(t, &icon, c.MainIcon)
	assert.False(t, c.Untouchable)

	text := "Born in Turkestan"
	n.Biography = &text
	assert.True(t, ChildFromNode(n).Info)
}
