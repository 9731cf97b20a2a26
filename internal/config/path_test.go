package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("WASTEWISE_TEST_DIR", "/srv/data")

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "~", want: home},
		{in: "~/bins.db", want: filepath.Join(home, "bins.db")},
		{in: "$WASTEWISE_TEST_DIR/w.db", want: "/srv/data/w.db"},
		{in: "/abs/path", want: "/abs/path"},
		{in: "~other/x", want: "~other/x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandPath(tt.in), tt.in)
	}
}

func TestDefaultDirs(t *testing.T) {
	assert.Equal(t, filepath.Join(ExpandPath("~"), ".local/share/wastewise"), ExpandPath(DataDir))
	assert.Equal(t, filepath.Join(ExpandPath("~"), ".config/wastewise"), ExpandPath(ConfigDir))
}
