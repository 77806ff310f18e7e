package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir, "/uploads/")
	ctx := context.Background()

	url, err := s.Save(ctx, "shoes/a.png", "image/png", strings.NewReader("png-bytes"), 9)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/shoes/a.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "shoes", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, s.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(dir, "shoes", "a.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Delete(ctx, url), "deleting twice is fine")
	assert.NoError(t, s.Delete(ctx, "https://cdn.example.com/x.png"), "foreign urls are ignored")
}

func TestLocalStorageStaysInsideDir(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(filepath.Join(dir, "uploads"), "/uploads")

	url, err := s.Save(context.Background(), "../../escape.png", "image/png", strings.NewReader("x"), 1)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/escape.png", url)
	_, err = os.Stat(filepath.Join(dir, "uploads", "escape.png"))
	assert.NoError(t, err)
}
