package file

import (
	"fmt"

	"github.com/alpacahq/framestore/executor/ff"
	"github.com/alpacahq/framestore/executor/frm"
	"github.com/alpacahq/framestore/metrics"
	"github.com/alpacahq/framestore/utils/io"
)

// FixColumn is a frame column of fixed-width values held in one data file.
// Row r of the partition lives at byte (r-top)<<shl of the file.
type FixColumn struct {
	ff          ff.FilesFacade
	fileOpts    ff.FileOpts
	columnIndex int
	columnTop   int64
	columnType  io.ColumnType
	shl         int
	fd          int
	writable    bool
	open        bool
	shape       string
	recycler    recycler
	slot        int
}

var _ frm.FrameColumn = (*FixColumn)(nil)

// NewFixColumn returns a closed, unpooled column.
func NewFixColumn(f ff.FilesFacade, fileOpts ff.FileOpts) *FixColumn {
	return &FixColumn{ff: f, fileOpts: fileOpts, fd: -1, shape: shapeFix, slot: -1}
}

func (c *FixColumn) bindSlot(r recycler, slot int) {
	c.recycler = r
	c.slot = slot
}

func (c *FixColumn) of(columnType io.ColumnType, presence frm.Presence, columnIndex int) error {
	if c.open {
		return frm.PreconditionError(fmt.Sprintf("fix column is already open fd=%d", c.fd))
	}
	if !columnType.IsValid() || columnType.IsVarSize() {
		return frm.PreconditionError(fmt.Sprintf("%s is not a fixed-width column type", columnType))
	}
	c.columnType = columnType
	c.shl = columnType.Pow2Size()
	c.columnTop = presence.Top
	c.columnIndex = columnIndex
	return nil
}

// OfRO opens the data file for reading. An absent column has no file and
// reads as presence.Top nulls.
func (c *FixColumn) OfRO(partitionPath, columnName string, columnTxn int64, columnType io.ColumnType,
	presence frm.Presence, columnIndex int,
) error {
	if err := c.of(columnType, presence, columnIndex); err != nil {
		return err
	}
	if presence.Absent {
		c.open = true
		return nil
	}
	path := frm.DFile(partitionPath, columnName, columnTxn)
	fd, err := c.ff.OpenRO(path)
	if err != nil {
		return frm.Critical(err, "could not open read-only", frm.D("path", path))
	}
	c.fd = fd
	c.open = true
	return nil
}

// OfRW opens the data file for writing, creating it if needed. The file of an
// absent column starts out empty.
func (c *FixColumn) OfRW(partitionPath, columnName string, columnTxn int64, columnType io.ColumnType,
	presence frm.Presence, columnIndex int,
) error {
	if err := c.of(columnType, presence, columnIndex); err != nil {
		return err
	}
	path := frm.DFile(partitionPath, columnName, columnTxn)
	fd, err := c.ff.OpenRW(path, c.fileOpts)
	if err != nil {
		return frm.Critical(err, "could not open read-write", frm.D("path", path))
	}
	if presence.Absent {
		if err := truncate(c.ff, fd, 0); err != nil {
			_ = closeFd(c.ff, fd)
			return err
		}
	}
	c.fd = fd
	c.writable = true
	c.open = true
	return nil
}

// appendBounds validates an Append before any I/O and returns the physical
// source and destination rows.
func (c *FixColumn) appendBounds(offset int64, source frm.FrameColumn, sourceOffset, count int64) (srcLo, dstLo int64, err error) {
	if source.StorageType() != frm.ColumnContinuousFile {
		return 0, 0, fmt.Errorf("append from %v storage: %w", source.StorageType(), frm.ErrUnsupported)
	}
	st := source.ColumnType()
	if st.IsVarSize() || st.Pow2Size() != c.shl {
		return 0, 0, fmt.Errorf("append %s rows into %s column: %w", st, c.columnType, frm.ErrUnsupported)
	}
	srcLo = sourceOffset - source.ColumnTop()
	dstLo = offset - c.columnTop
	if srcLo < 0 || dstLo < 0 || count < 0 {
		return 0, 0, frm.PreconditionError(fmt.Sprintf(
			"append offset=%d columnTop=%d sourceOffset=%d sourceTop=%d count=%d",
			offset, c.columnTop, sourceOffset, source.ColumnTop(), count))
	}
	if !c.writable {
		return 0, 0, frm.PreconditionError("append to a column not open for write")
	}
	if count > 0 && source.PrimaryFd() < 0 {
		return 0, 0, frm.PreconditionError(fmt.Sprintf("append %d rows from a source without data", count))
	}
	return srcLo, dstLo, nil
}

// Append copies count rows of source, starting at partition row sourceOffset,
// so they land at partition row offset of this column. The data file is cut
// to end at the last copied row.
func (c *FixColumn) Append(offset int64, source frm.FrameColumn, sourceOffset, count int64) error {
	srcLo, dstLo, err := c.appendBounds(offset, source, sourceOffset, count)
	if err != nil {
		return err
	}
	return c.copyRows(source.PrimaryFd(), srcLo, dstLo, count)
}

func (c *FixColumn) copyRows(srcFd int, srcLo, dstLo, count int64) error {
	if count == 0 {
		return nil
	}
	length := count << c.shl
	if err := truncate(c.ff, c.fd, (dstLo+count)<<c.shl); err != nil {
		return err
	}
	if err := copyData(c.ff, srcFd, c.fd, srcLo<<c.shl, dstLo<<c.shl, length); err != nil {
		return err
	}
	metrics.BytesCopiedTotal.WithLabelValues(c.shape).Add(float64(length))
	return nil
}

func (c *FixColumn) nullBounds(offset, count int64) (int64, error) {
	dstLo := offset - c.columnTop
	if dstLo < 0 || count < 0 {
		return 0, frm.PreconditionError(fmt.Sprintf(
			"append nulls offset=%d columnTop=%d count=%d", offset, c.columnTop, count))
	}
	if !c.writable {
		return 0, frm.PreconditionError("append nulls to a column not open for write")
	}
	return dstLo, nil
}

// AppendNulls writes count nulls of the column type starting at partition
// row offset.
func (c *FixColumn) AppendNulls(offset, count int64) error {
	dstLo, err := c.nullBounds(offset, count)
	if err != nil {
		return err
	}
	return c.fillNulls(dstLo, count)
}

func (c *FixColumn) fillNulls(dstLo, count int64) error {
	if count == 0 {
		return nil
	}
	if err := truncate(c.ff, c.fd, (dstLo+count)<<c.shl); err != nil {
		return err
	}
	err := fillMapped(c.ff, c.fd, dstLo<<c.shl, count<<c.shl, func(b []byte) error {
		return io.SetNull(c.columnType, b, count)
	})
	if err != nil {
		return err
	}
	metrics.NullRowsTotal.WithLabelValues(c.shape).Add(float64(count))
	return nil
}

// StoredRows is the number of rows physically held by the data file.
func (c *FixColumn) StoredRows() (int64, error) {
	if c.fd < 0 {
		return 0, nil
	}
	size, err := fileLength(c.ff, c.fd)
	if err != nil {
		return 0, err
	}
	return size >> c.shl, nil
}

// ReadRows returns the stored form of partition rows [lo, hi). Rows below the
// column top come back as nulls.
func (c *FixColumn) ReadRows(lo, hi int64) ([]byte, error) {
	if lo < 0 || hi < lo {
		return nil, frm.PreconditionError(fmt.Sprintf("read rows lo=%d hi=%d", lo, hi))
	}
	out := make([]byte, (hi-lo)<<c.shl)
	nullHi := hi
	if c.columnTop < nullHi {
		nullHi = c.columnTop
	}
	if lo < nullHi {
		if err := io.SetNull(c.columnType, out, nullHi-lo); err != nil {
			return nil, err
		}
	}
	if hi <= c.columnTop {
		return out, nil
	}
	first := lo
	if first < c.columnTop {
		first = c.columnTop
	}
	stored, err := c.StoredRows()
	if err != nil {
		return nil, err
	}
	if hi-c.columnTop > stored {
		return nil, frm.PreconditionError(fmt.Sprintf(
			"read rows hi=%d past stored rows %d above top %d", hi, stored, c.columnTop))
	}
	if err := readAt(c.ff, c.fd, out[(first-lo)<<c.shl:], (first-c.columnTop)<<c.shl); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the data file and hands the column back to its pool. It is
// safe to call more than once.
func (c *FixColumn) Close() error {
	err := closeFd(c.ff, c.fd)
	c.fd = -1
	c.writable = false
	c.open = false
	if c.recycler != nil {
		c.recycler.recycle(c.slot)
	}
	return err
}

func (c *FixColumn) ColumnIndex() int {
	return c.columnIndex
}

func (c *FixColumn) ColumnTop() int64 {
	return c.columnTop
}

func (c *FixColumn) ColumnType() io.ColumnType {
	return c.columnType
}

// PrimaryFd is the data file descriptor, -1 when there is no file.
func (c *FixColumn) PrimaryFd() int {
	return c.fd
}

func (c *FixColumn) SecondaryFd() (int, error) {
	return -1, fmt.Errorf("fix column secondary fd: %w", frm.ErrUnsupported)
}

func (c *FixColumn) PrimaryAddress() ([]byte, error) {
	return nil, fmt.Errorf("fix column primary address: %w", frm.ErrUnsupported)
}

func (c *FixColumn) SecondaryAddress() ([]byte, error) {
	return nil, fmt.Errorf("fix column secondary address: %w", frm.ErrUnsupported)
}

func (c *FixColumn) StorageType() frm.StorageType {
	return frm.ColumnContinuousFile
}

// SetAddTop grows the column top by delta.
func (c *FixColumn) SetAddTop(delta int64) error {
	if delta < 0 {
		return frm.PreconditionError(fmt.Sprintf("column top delta %d", delta))
	}
	c.columnTop += delta
	return nil
}
