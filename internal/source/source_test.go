package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Text(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Section 1. Définitions."), 0o644))

	text, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Section 1. Définitions.", text)
}

func TestLoad_InvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 'a'}, 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_Unsupported(t *testing.T) {
	_, err := Load("slides.pptx")
	require.Error(t, err)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.md"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_BrokenPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
