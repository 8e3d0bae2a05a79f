// Package local_test tests the local filesystem blob store.
package local_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bitcrush/internal/artifact"
	"github.com/JakeFAU/bitcrush/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "archive")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: path})
		assert.Error(t, err)
	})
}

func TestPutObject(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)

	t.Run("WritesFile", func(t *testing.T) {
		payload := []byte{0xff, 0xd8, 0xff, 0xe0}
		uri, err := store.PutObject(context.Background(), artifact.Object{
			Path:        "crushed/abc.jpg",
			ContentType: artifact.ContentTypeJPEG,
			Metadata:    map[string]string{"artifact_id": "abc"},
			Data:        bytes.NewReader(payload),
		})
		require.NoError(t, err)

		expectedPath := filepath.Join(tempDir, "crushed", "abc.jpg")
		assert.Equal(t, "file://"+expectedPath, uri)
		got, err := os.ReadFile(expectedPath)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), artifact.Object{Data: bytes.NewReader(nil)})
		assert.Error(t, err)
	})

	t.Run("PathTraversal", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), artifact.Object{Path: "../escape.jpg", Data: bytes.NewReader([]byte("x"))})
		assert.ErrorContains(t, err, "path traversal")
	})
}
