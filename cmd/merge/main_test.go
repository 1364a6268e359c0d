package merge_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/framestore/catalog"
	"github.com/alpacahq/framestore/cmd/merge"
	"github.com/alpacahq/framestore/executor/frm"
	"github.com/alpacahq/framestore/utils/io"
	"github.com/alpacahq/framestore/utils/test"
)

func sourcePartition(t *testing.T, root string) string {
	t.Helper()
	dir := test.MakePartition(t, root, "src")
	p := catalog.NewPartition(dir)
	p.SetRowCount(4)
	_, err := p.AddColumn("px", io.LONG, 0)
	require.NoError(t, err)
	require.NoError(t, p.SetColumnTop("px", 1))
	_, err = p.AddColumn("sym", io.SYMBOL, 4)
	require.NoError(t, err)
	require.NoError(t, p.SetColumnTop("sym", 0))
	require.NoError(t, p.Save())
	test.WriteFixColumn(t, dir, "px", frm.ColumnNameTxnNone, test.Longs(10, 11, 12))
	test.WriteFixColumn(t, dir, "sym", frm.ColumnNameTxnNone, test.Ints(0, 1, 1, 0))
	return dir
}

func TestMergeIntoNewPartition(t *testing.T) {
	// given
	root := t.TempDir()
	src := sourcePartition(t, root)
	dst := filepath.Join(root, "dst")

	// when
	err := merge.Run(merge.Options{Source: src, Destination: dst, Column: "px", Offset: 0, SourceOffset: 2, Count: 2})

	// then
	require.NoError(t, err)
	assert.Equal(t, test.Longs(11, 12), test.ReadFile(t, frm.DFile(dst, "px", frm.ColumnNameTxnNone)))
	meta, err := catalog.LoadPartition(dst)
	require.NoError(t, err)
	assert.Equal(t, int64(2), meta.RowCount())
	col, _, err := meta.Column("px")
	require.NoError(t, err)
	assert.Equal(t, frm.Present(0), col.Presence())
}

func TestMergeIndexedSymbols(t *testing.T) {
	// given
	root := t.TempDir()
	src := sourcePartition(t, root)
	dst := filepath.Join(root, "dst")

	// when
	err := merge.Run(merge.Options{Source: src, Destination: dst, Column: "sym", Offset: 0, SourceOffset: 1, Count: 3})

	// then
	require.NoError(t, err)
	assert.Equal(t, test.Ints(1, 1, 0), test.ReadFile(t, frm.DFile(dst, "sym", frm.ColumnNameTxnNone)))
	assert.FileExists(t, frm.KeyFile(dst, "sym", frm.ColumnNameTxnNone))
	assert.FileExists(t, frm.ValueFile(dst, "sym", frm.ColumnNameTxnNone))
}

func TestMergeRejectsRowsAboveSourceTop(t *testing.T) {
	root := t.TempDir()
	src := sourcePartition(t, root)
	dst := filepath.Join(root, "dst")

	err := merge.Run(merge.Options{Source: src, Destination: dst, Column: "px", SourceOffset: 0, Count: 1})
	var pe frm.PreconditionError
	assert.True(t, errors.As(err, &pe), "got %v", err)
}

func TestMergeTypeMismatch(t *testing.T) {
	root := t.TempDir()
	src := sourcePartition(t, root)
	dst := test.MakePartition(t, root, "dst")
	p := catalog.NewPartition(dst)
	_, err := p.AddColumn("px", io.DOUBLE, 0)
	require.NoError(t, err)
	require.NoError(t, p.Save())

	err = merge.Run(merge.Options{Source: src, Destination: dst, Column: "px", SourceOffset: 1, Count: 1})
	assert.Error(t, err)
}

func TestMergeMissingColumn(t *testing.T) {
	root := t.TempDir()
	src := sourcePartition(t, root)

	err := merge.Run(merge.Options{Source: src, Destination: filepath.Join(root, "dst"), Column: "nope", Count: 1})
	var cnf catalog.ColumnNotFound
	assert.True(t, errors.As(err, &cnf))
}
