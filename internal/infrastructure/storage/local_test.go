package storage

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/outsource-importer/internal/config"
	"github.com/outsource-importer/internal/pkg/errors"
)

func TestLocalDisk_PutGetExists(t *testing.T) {
	fs := afero.NewMemMapFs()
	disk, err := NewLocalDisk(fs, "storage/osfmedia", zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := disk.Exists(ctx, "a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, disk.Put(ctx, "a.jpg", []byte("img")))

	ok, err = disk.Exists(ctx, "a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := disk.Get(ctx, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), data)

	// stored under the disk root of the underlying fs
	raw, err := afero.ReadFile(fs, "storage/osfmedia/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), raw)
}

func TestLocalDisk_PutCreatesDirectories(t *testing.T) {
	disk, err := NewLocalDisk(afero.NewMemMapFs(), "root", zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, disk.Put(context.Background(), "nested/dir/file.json", []byte("{}")))

	data, err := disk.Get(context.Background(), "nested/dir/file.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestLocalDisk_Overwrite(t *testing.T) {
	disk, err := NewLocalDisk(afero.NewMemMapFs(), "", zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, disk.Put(ctx, "m.json", []byte("long content")))
	require.NoError(t, disk.Put(ctx, "m.json", []byte("short")))

	data, err := disk.Get(ctx, "m.json")
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))
}

func TestLocalDisk_GetMissing(t *testing.T) {
	disk, err := NewLocalDisk(afero.NewMemMapFs(), "root", zap.NewNop())
	require.NoError(t, err)

	_, err = disk.Get(context.Background(), "missing.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrObjectNotFound))
}

func TestLocalDisk_NameCannotEscapeRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	disk, err := NewLocalDisk(fs, "root", zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, disk.Put(context.Background(), "../../etc/x", []byte("x")))

	ok, err := afero.Exists(fs, "root/etc/x")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in       string
		expected string
		wantErr  bool
	}{
		{"a.jpg", "a.jpg", false},
		{"/a/b.jpg", "a/b.jpg", false},
		{"a/../b.jpg", "b.jpg", false},
		{"", "", true},
		{"/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := cleanName(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNewDisk_Drivers(t *testing.T) {
	ctx := context.Background()

	disk, err := NewDisk(ctx, "mapping", config.DiskConfig{Driver: "memory", Root: "mapping"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, disk.Put(ctx, "x.json", []byte("[]")))

	_, err = NewDisk(ctx, "bad", config.DiskConfig{Driver: "s3"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewDisk(ctx, "gcs", config.DiskConfig{Driver: "gcs"}, zap.NewNop())
	assert.Error(t, err, "bucket is required")
}
