package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/storage"
	"github.com/prokemal2012/Filx/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}

func TestAddInteractionBypassesToggle(t *testing.T) {
	s := New()
	edge := models.Interaction{ID: "i1", UserID: "u1", TargetID: "d1", TargetType: models.TargetDocument, Type: models.InteractionLike}
	s.AddInteraction(edge)
	s.AddInteraction(edge)

	n, err := s.CountInteractions(context.Background(), storage.InteractionFilter{TargetID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.UpsertUser(ctx, models.User{ID: "u1", Name: "Alice"}))

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	u.Name = "Mallory"

	u, err = s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
}
