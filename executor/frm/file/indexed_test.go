package file

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/framestore/executor/ff"
	"github.com/alpacahq/framestore/executor/frm"
	"github.com/alpacahq/framestore/executor/frm/index"
	"github.com/alpacahq/framestore/utils/io"
	"github.com/alpacahq/framestore/utils/test"
)

func lookup(t *testing.T, dir, name string, columnTop int64, code int32) []int64 {
	t.Helper()
	rows, err := index.Lookup(ff.Default, dir, name, frm.ColumnNameTxnNone, columnTop, code)
	require.NoError(t, err)
	return rows
}

func TestIndexedAppendKeepsIndexInStep(t *testing.T) {
	dir := t.TempDir()
	test.WriteFixColumn(t, dir, "src", frm.ColumnNameTxnNone, test.Ints(0, 1, 0, io.NullInt, 2))
	p := newTestPool(ff.Default)
	defer p.Close()

	src := create(t, p.PoolRO(io.SYMBOL), dir, "src", io.SYMBOL, 4, 0)
	defer src.Close()
	dst := create(t, p.PoolRW(io.SYMBOL), dir, "sym", io.SYMBOL, 4, 0)
	defer dst.Close()
	require.IsType(t, &IndexedColumn{}, dst)

	require.NoError(t, dst.Append(0, src, 0, 5))
	assert.Equal(t, []int64{0, 2}, lookup(t, dir, "sym", 0, 0))
	assert.Equal(t, []int64{1}, lookup(t, dir, "sym", 0, 1))
	assert.Equal(t, []int64{4}, lookup(t, dir, "sym", 0, 2))
	assert.Equal(t, []int64{3}, lookup(t, dir, "sym", 0, io.NullInt))

	require.NoError(t, dst.AppendNulls(5, 2))
	assert.Equal(t, []int64{3, 5, 6}, lookup(t, dir, "sym", 0, io.NullInt))

	// rewriting from row 2 drops every indexed row from 2 on
	require.NoError(t, dst.Append(2, src, 1, 1))
	assert.Equal(t, []int64{0}, lookup(t, dir, "sym", 0, 0))
	assert.Equal(t, []int64{1, 2}, lookup(t, dir, "sym", 0, 1))
	assert.Empty(t, lookup(t, dir, "sym", 0, 2))
	assert.Empty(t, lookup(t, dir, "sym", 0, io.NullInt))
	assert.Equal(t, int64(2), dst.(*IndexedColumn).Writer().MaxValue())

	assert.Equal(t, test.Ints(0, 1, 1), test.ReadFile(t, frm.DFile(dir, "sym", frm.ColumnNameTxnNone)))
}

func TestIndexedBuildsFromExistingRows(t *testing.T) {
	dir := t.TempDir()
	test.WriteFixColumn(t, dir, "sym", frm.ColumnNameTxnNone, test.Ints(1, 1, 0))
	p := newTestPool(ff.Default)
	defer p.Close()

	col := create(t, p.PoolRW(io.SYMBOL), dir, "sym", io.SYMBOL, 2, 2)
	w := col.(*IndexedColumn).Writer()
	assert.True(t, w.Created())
	assert.Equal(t, int64(2), w.BlockValueCount())
	require.NoError(t, col.Close())

	assert.Equal(t, []int64{0, 1}, lookup(t, dir, "sym", 2, io.NullInt))
	assert.Equal(t, []int64{2, 3}, lookup(t, dir, "sym", 2, 1))
	assert.Equal(t, []int64{4}, lookup(t, dir, "sym", 2, 0))

	// reopening keeps the committed index
	col = create(t, p.PoolRW(io.SYMBOL), dir, "sym", io.SYMBOL, 2, 2)
	assert.False(t, col.(*IndexedColumn).Writer().Created())
	require.NoError(t, col.AppendNulls(5, 1))
	require.NoError(t, col.Close())
	assert.Equal(t, []int64{0, 1, 5}, lookup(t, dir, "sym", 2, io.NullInt))
}

func TestIndexedFailedBuildIsRebuiltOnReopen(t *testing.T) {
	// given a build that fails while reading the symbol codes
	dir := t.TempDir()
	test.WriteFixColumn(t, dir, "sym", frm.ColumnNameTxnNone, test.Ints(1, 1, 0))
	f := newRecordingFacade()
	f.readErr = syscall.EIO
	p := newTestPool(f)
	defer p.Close()

	_, err := p.PoolRW(io.SYMBOL).Create(dir, "sym", frm.ColumnNameTxnNone, io.SYMBOL, 4, 2, 0)
	require.Error(t, err)
	assert.True(t, frm.IsCritical(err))

	// when
	f.readErr = nil
	col := create(t, p.PoolRW(io.SYMBOL), dir, "sym", io.SYMBOL, 4, 2)

	// then the half built index is not trusted
	w := col.(*IndexedColumn).Writer()
	assert.False(t, w.Created())
	assert.Equal(t, int64(4), w.MaxValue())
	require.NoError(t, col.Close())
	assert.Equal(t, []int64{0, 1}, lookup(t, dir, "sym", 2, io.NullInt))
	assert.Equal(t, []int64{2, 3}, lookup(t, dir, "sym", 2, 1))
	assert.Equal(t, []int64{4}, lookup(t, dir, "sym", 2, 0))
}

func TestIndexedShortIndexIsRebuilt(t *testing.T) {
	// given an index committed before the last data rows were written
	dir := t.TempDir()
	p := newTestPool(ff.Default)
	defer p.Close()
	col := create(t, p.PoolRW(io.SYMBOL), dir, "sym", io.SYMBOL, 4, 0)
	require.NoError(t, col.AppendNulls(0, 1))
	require.NoError(t, col.Close())
	test.WriteFixColumn(t, dir, "sym", frm.ColumnNameTxnNone, test.Ints(io.NullInt, 3))

	// when
	col = create(t, p.PoolRW(io.SYMBOL), dir, "sym", io.SYMBOL, 4, 0)
	require.NoError(t, col.Close())

	// then
	assert.Equal(t, []int64{1}, lookup(t, dir, "sym", 0, 3))
}

func TestIndexedAbsentColumnResetsIndex(t *testing.T) {
	dir := t.TempDir()
	test.WriteFixColumn(t, dir, "sym", frm.ColumnNameTxnNone, test.Ints(3, 3))
	p := newTestPool(ff.Default)
	defer p.Close()

	col := create(t, p.PoolRW(io.SYMBOL), dir, "sym", io.SYMBOL, 4, 0)
	require.NoError(t, col.Close())
	assert.Equal(t, []int64{0, 1}, lookup(t, dir, "sym", 0, 3))

	col = create(t, p.PoolRW(io.SYMBOL), dir, "sym", io.SYMBOL, 4, -3)
	require.NoError(t, col.Close())
	assert.Empty(t, lookup(t, dir, "sym", -3, 3))
	assert.Equal(t, []int64{0, 1, 2}, lookup(t, dir, "sym", -3, io.NullInt))
}

func TestIndexedRejectsBeforeAnyIO(t *testing.T) {
	dir := t.TempDir()
	test.WriteFixColumn(t, dir, "src", frm.ColumnNameTxnNone, test.Ints(1))
	rec := newRecordingFacade()
	p := newTestPool(rec)
	defer p.Close()

	src := create(t, p.PoolRO(io.SYMBOL), dir, "src", io.SYMBOL, 4, 1)
	defer src.Close()
	dst := create(t, p.PoolRW(io.SYMBOL), dir, "sym", io.SYMBOL, 4, 0)
	defer dst.Close()

	before := rec.total()
	var pe frm.PreconditionError
	assert.True(t, errors.As(dst.Append(0, src, 0, 1), &pe))
	assert.True(t, errors.As(dst.AppendNulls(-1, 1), &pe))
	assert.True(t, errors.Is(dst.Append(0, &memColumn{columnType: io.SYMBOL}, 0, 1), frm.ErrUnsupported))
	assert.Equal(t, before, rec.total())

	_, err := dst.SecondaryFd()
	assert.True(t, errors.Is(err, frm.ErrUnsupported))
}

func TestIndexedOnlyForSymbols(t *testing.T) {
	c := NewIndexedColumn(ff.Default, ff.OptNone, 4096, 4096)
	err := c.OfRW(t.TempDir(), "l", frm.ColumnNameTxnNone, io.LONG, 4, frm.Present(0), 0)
	var pe frm.PreconditionError
	assert.True(t, errors.As(err, &pe))
	require.NoError(t, c.Close())
}
