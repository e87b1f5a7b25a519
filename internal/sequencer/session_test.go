package sequencer_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/bronify/internal/sequencer"
)

func TestSessionValues(t *testing.T) {
	s := sequencer.NewSession()
	_, err := uuid.Parse(s.ID())
	require.NoError(t, err)
	require.NotEqual(t, s.ID(), sequencer.NewSession().ID())

	require.Equal(t, "cavs", s.GetOr("choice", "cavs"))
	s.Set("choice", "lakers")
	require.Equal(t, "lakers", s.GetOr("choice", "cavs"))

	s.Set("choice", "")
	require.Equal(t, "cavs", s.GetOr("choice", "cavs"))
	v, ok := s.Get("choice")
	require.True(t, ok)
	require.Empty(t, v)
}
