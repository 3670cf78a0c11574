package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateAcceptedForms(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TX", "TX"},
		{"tx", "TX"},
		{"Texas", "TX"},
		{"TEXAS", "TX"},
		{"Texas (TX)", "TX"},
		{"  New York  ", "NY"},
		{"District of Columbia", "DC"},
		{"West Virginia (WV)", "WV"},
	}
	for _, tt := range tests {
		got, err := State(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestStateUnknownFailsExplicitly(t *testing.T) {
	for _, in := range []string{"", "Atlantis", "ZZ", "Texas (ZZ) Extra"} {
		_, err := State(in)
		assert.ErrorIs(t, err, ErrUnknownState, "input %q", in)
	}
}

func TestStateCoversAllFiftyOneJurisdictions(t *testing.T) {
	assert.Len(t, stateCodes, 51)
	assert.Len(t, validCodes, 51)
}
