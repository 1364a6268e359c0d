// Package catalog keeps the metadata of a partition: its row count and, per
// column, the type, column top, file txn and index settings.
package catalog

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/alpacahq/framestore/executor/frm"
	"github.com/alpacahq/framestore/utils/io"
	"github.com/alpacahq/framestore/utils/log"
)

// MetaFileName is the metadata file inside every partition directory.
const MetaFileName = "_meta.yaml"

const metaFilePerm = 0o644

type Column struct {
	Name               string `yaml:"name"`
	Type               string `yaml:"type"`
	Top                int64  `yaml:"top"`
	Txn                int64  `yaml:"txn"`
	IndexBlockCapacity int    `yaml:"index_block_capacity,omitempty"`
}

func (c *Column) ColumnType() io.ColumnType {
	return io.ColumnTypeFromName(c.Type)
}

// Presence decodes the column top.
func (c *Column) Presence() frm.Presence {
	return frm.DecodeColumnTop(c.Top)
}

func (c *Column) Indexed() bool {
	return c.IndexBlockCapacity > 0
}

type partitionMeta struct {
	RowCount int64     `yaml:"row_count"`
	Columns  []*Column `yaml:"columns"`
}

// Partition is the in-memory copy of a partition's metadata file.
type Partition struct {
	sync.RWMutex

	path     string
	rowCount int64
	// columns are in ordinal position order
	columns []*Column
}

// NewPartition returns empty metadata for the partition directory at path.
// Nothing is written until Save.
func NewPartition(path string) *Partition {
	return &Partition{path: filepath.Clean(path)}
}

// LoadPartition reads the metadata file of the partition at path.
func LoadPartition(path string) (*Partition, error) {
	metaPath := filepath.Join(path, MetaFileName)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NotFoundError(metaPath)
		}
		return nil, errors.Wrapf(err, "read partition metadata %s", metaPath)
	}
	var meta partitionMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "parse partition metadata %s", metaPath)
	}
	p := NewPartition(path)
	p.rowCount = meta.RowCount
	seen := make(map[string]struct{}, len(meta.Columns))
	for _, c := range meta.Columns {
		if !c.ColumnType().IsValid() {
			return nil, InvalidColumnType(c.Type)
		}
		if _, ok := seen[c.Name]; ok {
			return nil, ColumnAlreadyExists(c.Name)
		}
		seen[c.Name] = struct{}{}
		p.columns = append(p.columns, c)
	}
	return p, nil
}

// Save writes the metadata file atomically.
func (p *Partition) Save() error {
	p.RLock()
	meta := partitionMeta{RowCount: p.rowCount, Columns: p.columns}
	data, err := yaml.Marshal(&meta)
	p.RUnlock()
	if err != nil {
		return errors.Wrap(err, "encode partition metadata")
	}

	if err := os.MkdirAll(p.path, 0o755); err != nil {
		return errors.Wrapf(err, "create partition directory %s", p.path)
	}
	metaPath := filepath.Join(p.path, MetaFileName)
	tmp := metaPath + ".tmp"
	if err := os.WriteFile(tmp, data, metaFilePerm); err != nil {
		return errors.Wrapf(err, "write partition metadata %s", tmp)
	}
	if err := os.Rename(tmp, metaPath); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "replace partition metadata %s", metaPath)
	}
	log.Debug("saved partition metadata %s", metaPath)
	return nil
}

func (p *Partition) Path() string {
	return p.path
}

func (p *Partition) RowCount() int64 {
	p.RLock()
	defer p.RUnlock()
	return p.rowCount
}

func (p *Partition) SetRowCount(rows int64) {
	p.Lock()
	defer p.Unlock()
	p.rowCount = rows
}

// Columns returns a copy of the column list in ordinal order.
func (p *Partition) Columns() []Column {
	p.RLock()
	defer p.RUnlock()
	out := make([]Column, len(p.columns))
	for i, c := range p.columns {
		out[i] = *c
	}
	return out
}

// Column returns a copy of the named column and its ordinal position.
func (p *Partition) Column(name string) (Column, int, error) {
	p.RLock()
	defer p.RUnlock()
	for i, c := range p.columns {
		if c.Name == name {
			return *c, i, nil
		}
	}
	return Column{}, -1, ColumnNotFound(name)
}

// AddColumn registers a column that has no file yet. Every existing row of
// the partition reads as null in it.
func (p *Partition) AddColumn(name string, columnType io.ColumnType, indexBlockCapacity int) (Column, error) {
	if !columnType.IsValid() {
		return Column{}, InvalidColumnType(columnType.String())
	}
	p.Lock()
	defer p.Unlock()
	for _, c := range p.columns {
		if c.Name == name {
			return Column{}, ColumnAlreadyExists(name)
		}
	}
	c := &Column{
		Name:               name,
		Type:               columnType.String(),
		Top:                frm.Absent(p.rowCount).Encode(),
		Txn:                frm.ColumnNameTxnNone,
		IndexBlockCapacity: indexBlockCapacity,
	}
	p.columns = append(p.columns, c)
	return *c, nil
}

// SetColumnTop records a new raw column top for the named column.
func (p *Partition) SetColumnTop(name string, top int64) error {
	p.Lock()
	defer p.Unlock()
	for _, c := range p.columns {
		if c.Name == name {
			c.Top = top
			return nil
		}
	}
	return ColumnNotFound(name)
}
