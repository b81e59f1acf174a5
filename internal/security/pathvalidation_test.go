package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	output := filepath.Join(tmp, "output")
	other := filepath.Join(tmp, "other")
	require.NoError(t, os.MkdirAll(filepath.Join(output, "frames", "10"), 0755))
	require.NoError(t, os.MkdirAll(other, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(other, "runs.db"), []byte("x"), 0644))
	require.NoError(t, os.Symlink(other, filepath.Join(output, "escape")))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"existing frame dir", filepath.Join(output, "frames", "10"), false},
		{"missing file", filepath.Join(output, "frames", "10", "tracking.jpg"), false},
		{"missing nested dirs", filepath.Join(output, "a", "b", "c.png"), false},
		{"the root itself", output, false},
		{"dot dot", filepath.Join(output, "..", "other", "runs.db"), true},
		{"dot dot inside", filepath.Join(output, "frames", "..", "charts.html"), false},
		{"sibling with shared prefix", output + "-old/charts.html", true},
		{"symlinked file", filepath.Join(output, "escape", "runs.db"), true},
		{"symlinked parent of missing file", filepath.Join(output, "escape", "new.json"), true},
		{"absolute elsewhere", "/etc/passwd", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, output)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathWithinDirectory_MissingRoot(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "gone")
	assert.Error(t, ValidatePathWithinDirectory(filepath.Join(root, "x"), root))
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"3f2a-11ee-b001", "3f2a-11ee-b001"},
		{"run 1/../../etc", "run_1_.._.._etc"},
		{"  spaced  out  ", "spaced_out"},
		{"..hidden", "hidden"},
		{"é€", "unknown"},
		{"", "unknown"},
		{"a__b", "a__b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
	assert.Len(t, SanitizeFilename(strings.Repeat("x", 500)), 128)
}
