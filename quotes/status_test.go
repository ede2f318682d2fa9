package quotes_test

import (
	"testing"

	apperrors "github.com/jrsteele09/distritherm-admin/internal/errors"
	"github.com/jrsteele09/distritherm-admin/quotes"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range quotes.Statuses() {
		parsed, err := quotes.ParseStatus(string(s))
		require.NoError(t, err)
		require.Equal(t, s, parsed)
	}

	s, err := quotes.ParseStatus(" accepted ")
	require.NoError(t, err)
	require.Equal(t, quotes.StatusAccepted, s)

	_, err = quotes.ParseStatus("ARCHIVED")
	require.ErrorIs(t, err, apperrors.ErrInvalidStatus)
}

func TestStatus_Label(t *testing.T) {
	require.Equal(t, "En attente", quotes.StatusPending.Label())
	require.Equal(t, "Accepté", quotes.StatusAccepted.Label())
	require.Equal(t, "UNKNOWN", quotes.Status("UNKNOWN").Label())
	require.True(t, quotes.StatusRejected.Final())
	require.False(t, quotes.StatusConsulted.Final())
}

func TestPermissivePolicy(t *testing.T) {
	// Any known status may follow any other, including going back.
	for _, from := range quotes.Statuses() {
		for _, to := range quotes.Statuses() {
			require.NoError(t, quotes.PermissivePolicy.Allow(from, to), "%s -> %s", from, to)
		}
	}
	require.ErrorIs(t, quotes.PermissivePolicy.Allow(quotes.StatusPending, "DONE"), apperrors.ErrInvalidStatus)
}
