package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"%Y-%m-%d", "2006-01-02"},
		{"%Y-%m-%dT%H:%M:%S", "2006-01-02T15:04:05"},
		{"%d/%m/%Y", "02/01/2006"},
		{"%m/%d/%y %I:%M %p", "01/02/06 03:04 PM"},
		{"%b %d, %Y", "Jan 02, 2006"},
		{"100%%", "100%"},
	}
	for _, tt := range tests {
		got, err := Layout(tt.format)
		require.NoError(t, err, tt.format)
		assert.Equal(t, tt.want, got)
	}
}

func TestLayoutUnsupportedDirective(t *testing.T) {
	_, err := Layout("%Q")
	assert.Error(t, err)
	_, err = Layout("trailing %")
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	ts, err := Parse("2024-06-15", "%Y-%m-%d")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), ts)
}

func TestParseRejectsImpossibleDate(t *testing.T) {
	_, err := Parse("2024-13-40", "%Y-%m-%d")
	assert.Error(t, err)
}
