package partition_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/framestore/catalog"
	"github.com/alpacahq/framestore/cmd/partition"
	"github.com/alpacahq/framestore/utils"
	"github.com/alpacahq/framestore/utils/io"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := partition.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, utils.DefaultFrameConfig(), cfg)

	path := filepath.Join(t.TempDir(), "frames.yml")
	require.NoError(t, os.WriteFile(path, []byte("root_directory: /srv/frames\n"), 0o644))
	cfg, err = partition.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/frames", cfg.RootDirectory)
	assert.Equal(t, "/srv/frames/2024-01-01", partition.Path(cfg, "2024-01-01"))
	assert.Equal(t, "/abs", partition.Path(cfg, "/abs"))

	_, err = partition.LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestEnsureColumnAndCommit(t *testing.T) {
	cfg := utils.DefaultFrameConfig()
	cfg.RootDirectory = t.TempDir()

	_, err := partition.Load(cfg, "p", false)
	assert.Error(t, err)
	p, err := partition.Load(cfg, "p", true)
	require.NoError(t, err)
	assert.DirExists(t, p.Path())

	col, pos, err := partition.EnsureColumn(p, catalog.Column{Name: "q", Type: io.DOUBLE.String()})
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
	assert.Equal(t, io.DOUBLE, col.ColumnType())
	_, pos, err = partition.EnsureColumn(p, catalog.Column{Name: "q", Type: io.DOUBLE.String()})
	require.NoError(t, err)
	assert.Equal(t, 0, pos)

	require.NoError(t, partition.Commit(p, "q", 4, 9))
	require.NoError(t, partition.Commit(p, "q", 4, 2))
	loaded, err := partition.Load(cfg, "p", false)
	require.NoError(t, err)
	assert.Equal(t, int64(9), loaded.RowCount())
	q, _, err := loaded.Column("q")
	require.NoError(t, err)
	assert.Equal(t, int64(4), q.Top)
}
