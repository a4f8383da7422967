package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fest-registration/internal/apperr"
)

func TestLocalSaveReadDelete(t *testing.T) {
	root := t.TempDir()
	l, err := NewLocal(root)
	require.NoError(t, err)
	ctx := context.Background()

	key, err := l.Save(ctx, "qr/42.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "qr/42.png", key)

	data, err := l.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	require.NoError(t, l.Delete(ctx, key))
	_, err = l.Read(ctx, key)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	// deleting twice is fine
	assert.NoError(t, l.Delete(ctx, key))
}

func TestLocalKeysStayInsideRoot(t *testing.T) {
	root := t.TempDir()
	l, err := NewLocal(filepath.Join(root, "media"))
	require.NoError(t, err)

	key, err := l.Save(context.Background(), "../../etc/passwd", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "etc/passwd", key)

	_, err = os.Stat(filepath.Join(root, "media", "etc", "passwd"))
	assert.NoError(t, err)
}

func TestLocalRejectsEmptyKey(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	_, err = l.Save(context.Background(), "/", []byte("x"))
	assert.True(t, errors.Is(err, apperr.ErrMalformedInput))
}
