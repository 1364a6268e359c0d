package pad_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/framestore/catalog"
	"github.com/alpacahq/framestore/cmd/pad"
	"github.com/alpacahq/framestore/executor/frm"
	"github.com/alpacahq/framestore/utils/io"
	"github.com/alpacahq/framestore/utils/test"
)

func TestPadAbsentColumn(t *testing.T) {
	// given a partition of 3 rows that never had the column
	dir := test.MakePartition(t, t.TempDir(), "p")
	p := catalog.NewPartition(dir)
	p.SetRowCount(3)
	_, err := p.AddColumn("name", io.STRING, 0)
	require.NoError(t, err)
	require.NoError(t, p.Save())

	// when
	err = pad.Run(pad.Options{Destination: dir, Column: "name", Offset: 3, Count: 2})

	// then
	require.NoError(t, err)
	assert.Equal(t, test.Longs(0, 4, 8), test.ReadFile(t, frm.IFile(dir, "name", frm.ColumnNameTxnNone)))
	meta, err := catalog.LoadPartition(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(5), meta.RowCount())
	col, _, err := meta.Column("name")
	require.NoError(t, err)
	assert.Equal(t, frm.Present(3), col.Presence())
}

func TestPadNewColumn(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh")

	err := pad.Run(pad.Options{Destination: dir, Column: "n", Type: "int", Offset: 0, Count: 3})
	require.NoError(t, err)
	assert.Equal(t, test.Ints(io.NullInt, io.NullInt, io.NullInt),
		test.ReadFile(t, frm.DFile(dir, "n", frm.ColumnNameTxnNone)))
}

func TestPadMissingColumn(t *testing.T) {
	dir := test.MakePartition(t, t.TempDir(), "p")
	require.NoError(t, catalog.NewPartition(dir).Save())

	err := pad.Run(pad.Options{Destination: dir, Column: "n", Count: 1})
	assert.Error(t, err)
}
