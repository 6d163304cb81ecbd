package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porosity/domain/core"
	"porosity/internal/errors"
	"porosity/ports"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStore_UploadListDownload(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "78", writeTemp(t, "b.json", `{"b":1}`), "P001_B001-nohough.json"))
	require.NoError(t, store.Upload(ctx, "78", writeTemp(t, "a.json", `{"a":1}`), "/sub/A.json"))
	require.NoError(t, store.Upload(ctx, "73", writeTemp(t, "c.json", `{}`), "other.json"))

	files, err := store.ListFiles(ctx, "78")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "P001_B001-nohough.json", files[0].Path)
	assert.Equal(t, "sub/A.json", files[1].Path)
	assert.Equal(t, int64(7), files[1].Size)
	assert.Equal(t, core.NewHash([]byte(`{"a":1}`)).String(), files[1].SHA256)
	assert.False(t, files[1].UpdatedAt.IsZero())

	dest := t.TempDir()
	local, err := store.Download(ctx, "78", files[1], dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "sub", "A.json"), local)
	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestStore_UploadReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "78", writeTemp(t, "v1.json", "one"), "x.json"))
	require.NoError(t, store.Upload(ctx, "78", writeTemp(t, "v2.json", "second"), "x.json"))

	files, err := store.ListFiles(ctx, "78")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, int64(6), files[0].Size)
}

func TestStore_Errors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Download(ctx, "78", ports.FileRef{Path: "nope.json"}, t.TempDir())
	assert.True(t, core.IsNotFoundError(err))

	err = store.Upload(ctx, "78", writeTemp(t, "a.json", "x"), "../a.json")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	files, err := store.ListFiles(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = Open(ctx, "mysql", "dsn")
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
