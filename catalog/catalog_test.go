package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/framestore/catalog"
	"github.com/alpacahq/framestore/executor/frm"
	"github.com/alpacahq/framestore/utils/io"
)

func TestSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "2024-03-01")
	p := catalog.NewPartition(dir)
	p.SetRowCount(12)
	_, err := p.AddColumn("ts", io.TIMESTAMP, 0)
	require.NoError(t, err)
	_, err = p.AddColumn("sym", io.SYMBOL, 256)
	require.NoError(t, err)
	require.NoError(t, p.SetColumnTop("ts", 0))
	require.NoError(t, p.Save())

	loaded, err := catalog.LoadPartition(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(12), loaded.RowCount())
	assert.Equal(t, p.Columns(), loaded.Columns())

	sym, pos, err := loaded.Column("sym")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	assert.Equal(t, io.SYMBOL, sym.ColumnType())
	assert.True(t, sym.Indexed())
	assert.Equal(t, frm.Absent(12), sym.Presence())
	assert.Equal(t, frm.ColumnNameTxnNone, sym.Txn)

	ts, pos, err := loaded.Column("ts")
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
	assert.Equal(t, frm.Present(0), ts.Presence())

	_, err = os.Stat(filepath.Join(dir, catalog.MetaFileName+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestColumnErrors(t *testing.T) {
	p := catalog.NewPartition(t.TempDir())
	_, err := p.AddColumn("a", io.LONG, 0)
	require.NoError(t, err)

	tests := map[string]struct {
		run  func() error
		want interface{}
	}{
		"duplicate column": {
			run: func() error {
				_, err := p.AddColumn("a", io.INT, 0)
				return err
			},
			want: new(catalog.ColumnAlreadyExists),
		},
		"invalid type": {
			run: func() error {
				_, err := p.AddColumn("b", io.UNDEFINED, 0)
				return err
			},
			want: new(catalog.InvalidColumnType),
		},
		"unknown column": {
			run: func() error {
				_, _, err := p.Column("zz")
				return err
			},
			want: new(catalog.ColumnNotFound),
		},
		"unknown column top": {
			run:  func() error { return p.SetColumnTop("zz", 3) },
			want: new(catalog.ColumnNotFound),
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.True(t, errors.As(err, tt.want), "got %v", err)
		})
	}
}

func TestLoadPartitionErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := catalog.LoadPartition(dir)
	var nf catalog.NotFoundError
	assert.True(t, errors.As(err, &nf))

	meta := filepath.Join(dir, catalog.MetaFileName)
	require.NoError(t, os.WriteFile(meta, []byte("columns: [{name: x, type: NOPE}]"), 0o644))
	_, err = catalog.LoadPartition(dir)
	var it catalog.InvalidColumnType
	assert.True(t, errors.As(err, &it))

	require.NoError(t, os.WriteFile(meta, []byte("columns: {"), 0o644))
	_, err = catalog.LoadPartition(dir)
	assert.Error(t, err)
}
