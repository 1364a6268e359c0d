// Package partition holds what the framestore subcommands share: loading
// the configuration and resolving partitions and columns.
package partition

import (
	"errors"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"

	"github.com/alpacahq/framestore/catalog"
	"github.com/alpacahq/framestore/utils"
	"github.com/alpacahq/framestore/utils/log"
)

// ConfigDesc is the help text of every --config flag.
const ConfigDesc = "set the path for the framestore YAML configuration file"

const partitionDirPerm = 0o755

// LoadConfig reads the configuration file at path. An empty path means the
// defaults.
func LoadConfig(path string) (*utils.FrameConfig, error) {
	if path == "" {
		return utils.DefaultFrameConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to read configuration file")
	}
	cfg, err := utils.ParseConfig(data)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to parse configuration file")
	}
	log.Debug("using %v for configuration", path)
	return cfg, nil
}

// Path resolves a partition name against the root directory.
func Path(cfg *utils.FrameConfig, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.RootDirectory, name)
}

// Load reads a partition's metadata. With create set, a partition without
// metadata starts out empty instead of failing.
func Load(cfg *utils.FrameConfig, name string, create bool) (*catalog.Partition, error) {
	path := Path(cfg, name)
	p, err := catalog.LoadPartition(path)
	var nf catalog.NotFoundError
	if create && errors.As(err, &nf) {
		log.Info("creating partition %s", path)
		if err := os.MkdirAll(path, partitionDirPerm); err != nil {
			return nil, pkgerrors.Wrapf(err, "create partition directory %s", path)
		}
		return catalog.NewPartition(path), nil
	}
	return p, err
}

// Column looks a column up and reports its ordinal position.
func Column(p *catalog.Partition, name string) (catalog.Column, int, error) {
	c, pos, err := p.Column(name)
	if err != nil {
		return catalog.Column{}, -1, pkgerrors.Wrapf(err, "partition %s", p.Path())
	}
	return c, pos, nil
}

// EnsureColumn returns the named column of dst, adding it with the shape of
// like when it is missing.
func EnsureColumn(dst *catalog.Partition, like catalog.Column) (catalog.Column, int, error) {
	c, pos, err := dst.Column(like.Name)
	var cnf catalog.ColumnNotFound
	if !errors.As(err, &cnf) {
		return c, pos, err
	}
	if c, err = dst.AddColumn(like.Name, like.ColumnType(), like.IndexBlockCapacity); err != nil {
		return catalog.Column{}, -1, err
	}
	_, pos, err = dst.Column(like.Name)
	return c, pos, err
}

// Commit records the column top a write resolved plus the rows it reached,
// and saves the metadata.
func Commit(p *catalog.Partition, column string, columnTop, rows int64) error {
	if err := p.SetColumnTop(column, columnTop); err != nil {
		return err
	}
	if rows > p.RowCount() {
		p.SetRowCount(rows)
	}
	return p.Save()
}
