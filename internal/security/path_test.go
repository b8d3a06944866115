package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathValidator(t *testing.T) {
	_, err := NewPathValidator("")
	assert.Error(t, err)

	v, err := NewPathValidator("relative/dir")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(v.Directory()))
}

func TestPathValidator_Resolve(t *testing.T) {
	tempDir := t.TempDir()
	v, err := NewPathValidator(tempDir)
	require.NoError(t, err)

	tests := []struct {
		name      string
		input     string
		want      string
		wantError bool
	}{
		{name: "plain name", input: "Parecer_CJR_045-2025.docx", want: filepath.Join(v.Directory(), "Parecer_CJR_045-2025.docx")},
		{name: "surrounding spaces", input: " pl.pdf ", want: filepath.Join(v.Directory(), "pl.pdf")},
		{name: "empty", input: "", wantError: true},
		{name: "traversal", input: "../etc/passwd", wantError: true},
		{name: "parent", input: "..", wantError: true},
		{name: "nested", input: "sub/file.docx", wantError: true},
		{name: "windows separator", input: `..\file.docx`, wantError: true},
		{name: "nul byte", input: "a\x00.pdf", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Resolve(tt.input)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathValidator_Symlinks(t *testing.T) {
	base := t.TempDir()
	inside := filepath.Join(base, "generated")
	outside := filepath.Join(base, "secret.txt")
	require.NoError(t, os.MkdirAll(inside, 0o755))
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	link := filepath.Join(inside, "link.docx")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	v, err := NewPathValidator(inside)
	require.NoError(t, err)

	_, err = v.Resolve("link.docx")
	assert.ErrorContains(t, err, "outside configured directory")

	within, err := v.IsPathWithinDirectory(filepath.Join(inside, "ok.docx"))
	require.NoError(t, err)
	assert.True(t, within)
}
