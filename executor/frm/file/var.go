package file

import (
	"fmt"

	"github.com/alpacahq/framestore/executor/ff"
	"github.com/alpacahq/framestore/executor/frm"
	"github.com/alpacahq/framestore/metrics"
	"github.com/alpacahq/framestore/utils/io"
)

// offsetShl is the width of one offsets file entry.
const offsetShl = 3

// VarColumn is a frame column of variable-length STRING or BINARY values. The
// data file holds length prefixed payloads back to back. The offsets file
// holds n+1 int64 entries for n stored rows; entry k is where row k starts
// and entry n is the end of the data file.
type VarColumn struct {
	ff          ff.FilesFacade
	fileOpts    ff.FileOpts
	columnIndex int
	columnTop   int64
	columnType  io.ColumnType
	fd          int
	offsetsFd   int
	writable    bool
	open        bool
	recycler    recycler
	slot        int
}

var _ frm.FrameColumn = (*VarColumn)(nil)

// NewVarColumn returns a closed, unpooled column.
func NewVarColumn(f ff.FilesFacade, fileOpts ff.FileOpts) *VarColumn {
	return &VarColumn{ff: f, fileOpts: fileOpts, fd: -1, offsetsFd: -1, slot: -1}
}

func (c *VarColumn) bindSlot(r recycler, slot int) {
	c.recycler = r
	c.slot = slot
}

func (c *VarColumn) of(columnType io.ColumnType, presence frm.Presence, columnIndex int) error {
	if c.open {
		return frm.PreconditionError(fmt.Sprintf("var column is already open fd=%d", c.fd))
	}
	if !columnType.IsVarSize() {
		return frm.PreconditionError(fmt.Sprintf("%s is not a variable-length column type", columnType))
	}
	c.columnType = columnType
	c.columnTop = presence.Top
	c.columnIndex = columnIndex
	return nil
}

func (c *VarColumn) OfRO(partitionPath, columnName string, columnTxn int64, columnType io.ColumnType,
	presence frm.Presence, columnIndex int,
) error {
	if err := c.of(columnType, presence, columnIndex); err != nil {
		return err
	}
	if presence.Absent {
		c.open = true
		return nil
	}
	dataPath := frm.DFile(partitionPath, columnName, columnTxn)
	fd, err := c.ff.OpenRO(dataPath)
	if err != nil {
		return frm.Critical(err, "could not open read-only", frm.D("path", dataPath))
	}
	offsetsPath := frm.IFile(partitionPath, columnName, columnTxn)
	offsetsFd, err := c.ff.OpenRO(offsetsPath)
	if err != nil {
		_ = closeFd(c.ff, fd)
		return frm.Critical(err, "could not open read-only", frm.D("path", offsetsPath))
	}
	c.fd, c.offsetsFd = fd, offsetsFd
	c.open = true
	return nil
}

func (c *VarColumn) OfRW(partitionPath, columnName string, columnTxn int64, columnType io.ColumnType,
	presence frm.Presence, columnIndex int,
) error {
	if err := c.of(columnType, presence, columnIndex); err != nil {
		return err
	}
	dataPath := frm.DFile(partitionPath, columnName, columnTxn)
	fd, err := c.ff.OpenRW(dataPath, c.fileOpts)
	if err != nil {
		return frm.Critical(err, "could not open read-write", frm.D("path", dataPath))
	}
	offsetsPath := frm.IFile(partitionPath, columnName, columnTxn)
	offsetsFd, err := c.ff.OpenRW(offsetsPath, c.fileOpts)
	if err != nil {
		_ = closeFd(c.ff, fd)
		return frm.Critical(err, "could not open read-write", frm.D("path", offsetsPath))
	}
	if presence.Absent {
		if err := truncate(c.ff, fd, 0); err == nil {
			err = truncate(c.ff, offsetsFd, 0)
		}
		if err != nil {
			_ = closeFd(c.ff, fd)
			_ = closeFd(c.ff, offsetsFd)
			return err
		}
	}
	c.fd, c.offsetsFd = fd, offsetsFd
	c.writable = true
	c.open = true
	return nil
}

// StoredRows is the number of rows held by the files. An empty offsets file
// means no rows.
func (c *VarColumn) StoredRows() (int64, error) {
	if c.offsetsFd < 0 {
		return 0, nil
	}
	size, err := fileLength(c.ff, c.offsetsFd)
	if err != nil {
		return 0, err
	}
	if size < 2<<offsetShl {
		return 0, nil
	}
	return size>>offsetShl - 1, nil
}

func (c *VarColumn) readOffsets(fd int, lo, n int64) ([]int64, error) {
	buf := make([]byte, n<<offsetShl)
	if err := readAt(c.ff, fd, buf, lo<<offsetShl); err != nil {
		return nil, err
	}
	return io.Int64Slice(buf), nil
}

// dataEnd is where stored row dstLo starts in the data file.
func (c *VarColumn) dataEnd(dstLo int64) (int64, error) {
	stored, err := c.StoredRows()
	if err != nil {
		return 0, err
	}
	if dstLo > stored {
		return 0, frm.PreconditionError(fmt.Sprintf(
			"append at stored row %d leaves a gap after %d stored rows", dstLo, stored))
	}
	if stored == 0 {
		return 0, nil
	}
	offsets, err := c.readOffsets(c.offsetsFd, dstLo, 1)
	if err != nil {
		return 0, err
	}
	return offsets[0], nil
}

// Append copies count rows of source starting at partition row sourceOffset
// so they land at partition row offset. The payload bytes move between
// descriptors and the offsets are rebased onto this data file.
func (c *VarColumn) Append(offset int64, source frm.FrameColumn, sourceOffset, count int64) error {
	if source.StorageType() != frm.ColumnContinuousFile {
		return fmt.Errorf("append from %v storage: %w", source.StorageType(), frm.ErrUnsupported)
	}
	if source.ColumnType() != c.columnType {
		return fmt.Errorf("append %s rows into %s column: %w", source.ColumnType(), c.columnType, frm.ErrUnsupported)
	}
	srcOffsetsFd, err := source.SecondaryFd()
	if err != nil {
		return fmt.Errorf("append without source offsets: %w", frm.ErrUnsupported)
	}
	srcLo := sourceOffset - source.ColumnTop()
	dstLo := offset - c.columnTop
	if srcLo < 0 || dstLo < 0 || count < 0 {
		return frm.PreconditionError(fmt.Sprintf(
			"append offset=%d columnTop=%d sourceOffset=%d sourceTop=%d count=%d",
			offset, c.columnTop, sourceOffset, source.ColumnTop(), count))
	}
	if !c.writable {
		return frm.PreconditionError("append to a column not open for write")
	}
	if count == 0 {
		return nil
	}
	srcFd := source.PrimaryFd()
	if srcFd < 0 || srcOffsetsFd < 0 {
		return frm.PreconditionError(fmt.Sprintf("append %d rows from a source without data", count))
	}

	srcOffsets, err := c.readOffsets(srcOffsetsFd, srcLo, count+1)
	if err != nil {
		return err
	}
	dstStart, err := c.dataEnd(dstLo)
	if err != nil {
		return err
	}
	srcStart := srcOffsets[0]
	length := srcOffsets[count] - srcStart
	if err := truncate(c.ff, c.fd, dstStart+length); err != nil {
		return err
	}
	if length > 0 {
		if err := copyData(c.ff, srcFd, c.fd, srcStart, dstStart, length); err != nil {
			return err
		}
	}

	buf := make([]byte, 0, (count+1)<<offsetShl)
	for _, o := range srcOffsets {
		buf = io.AppendInt64(buf, dstStart+o-srcStart)
	}
	if err := truncate(c.ff, c.offsetsFd, (dstLo+count+1)<<offsetShl); err != nil {
		return err
	}
	if err := writeAt(c.ff, c.offsetsFd, buf, dstLo<<offsetShl); err != nil {
		return err
	}
	metrics.BytesCopiedTotal.WithLabelValues(shapeVar).Add(float64(length))
	return nil
}

// AppendNulls writes count null values starting at partition row offset.
func (c *VarColumn) AppendNulls(offset, count int64) error {
	dstLo := offset - c.columnTop
	if dstLo < 0 || count < 0 {
		return frm.PreconditionError(fmt.Sprintf(
			"append nulls offset=%d columnTop=%d count=%d", offset, c.columnTop, count))
	}
	if !c.writable {
		return frm.PreconditionError("append nulls to a column not open for write")
	}
	if count == 0 {
		return nil
	}
	dstStart, err := c.dataEnd(dstLo)
	if err != nil {
		return err
	}
	hdr := io.VarHeaderSize(c.columnType)
	length := count * hdr
	if err := truncate(c.ff, c.fd, dstStart+length); err != nil {
		return err
	}
	err = fillMapped(c.ff, c.fd, dstStart, length, func(b []byte) error {
		return io.SetVarNulls(c.columnType, b, count)
	})
	if err != nil {
		return err
	}

	if err := truncate(c.ff, c.offsetsFd, (dstLo+count+1)<<offsetShl); err != nil {
		return err
	}
	err = fillMapped(c.ff, c.offsetsFd, dstLo<<offsetShl, (count+1)<<offsetShl, func(b []byte) error {
		for k := int64(0); k <= count; k++ {
			io.PutInt64(b[k<<offsetShl:], dstStart+k*hdr)
		}
		return nil
	})
	if err != nil {
		return err
	}
	metrics.NullRowsTotal.WithLabelValues(shapeVar).Add(float64(count))
	return nil
}

// ReadRows returns the values of partition rows [lo, hi). Nulls, including
// every row below the column top, come back as nil.
func (c *VarColumn) ReadRows(lo, hi int64) ([][]byte, error) {
	if lo < 0 || hi < lo {
		return nil, frm.PreconditionError(fmt.Sprintf("read rows lo=%d hi=%d", lo, hi))
	}
	out := make([][]byte, hi-lo)
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
	pLo, pHi := first-c.columnTop, hi-c.columnTop
	if pHi > stored {
		return nil, frm.PreconditionError(fmt.Sprintf(
			"read rows hi=%d past stored rows %d above top %d", hi, stored, c.columnTop))
	}
	offsets, err := c.readOffsets(c.offsetsFd, pLo, pHi-pLo+1)
	if err != nil {
		return nil, err
	}
	base := offsets[0]
	if base < 0 || offsets[len(offsets)-1] < base {
		return nil, c.corrupt("offsets out of order", pLo, base, offsets[len(offsets)-1])
	}
	data := make([]byte, offsets[len(offsets)-1]-base)
	if len(data) > 0 {
		if err := readAt(c.ff, c.fd, data, base); err != nil {
			return nil, err
		}
	}
	hdr := io.VarHeaderSize(c.columnType)
	for k := int64(0); k < pHi-pLo; k++ {
		at, end := offsets[k]-base, offsets[k+1]-base
		if at < 0 || end > int64(len(data)) || at+hdr > end {
			return nil, c.corrupt("offsets out of order", pLo+k, offsets[k], offsets[k+1])
		}
		n := io.VarHeader(c.columnType, data[at:])
		if n == io.VarNullLength {
			continue
		}
		if n < 0 || at+hdr+n > end {
			return nil, c.corrupt("length header past the row end", pLo+k, offsets[k], offsets[k+1],
				frm.D("length", n))
		}
		out[first-lo+k] = data[at+hdr : at+hdr+n]
	}
	return out, nil
}

func (c *VarColumn) corrupt(msg string, row, start, end int64, details ...frm.Detail) error {
	return frm.Critical(nil, "corrupt var column: "+msg, append([]frm.Detail{
		frm.D("fd", c.fd), frm.D("offsetsFd", c.offsetsFd), frm.D("row", row),
		frm.D("start", start), frm.D("end", end),
	}, details...)...)
}

// Close releases both files and hands the column back to its pool.
func (c *VarColumn) Close() error {
	err := closeFd(c.ff, c.fd)
	if oerr := closeFd(c.ff, c.offsetsFd); oerr != nil && err == nil {
		err = oerr
	}
	c.fd, c.offsetsFd = -1, -1
	c.writable = false
	c.open = false
	if c.recycler != nil {
		c.recycler.recycle(c.slot)
	}
	return err
}

func (c *VarColumn) ColumnIndex() int {
	return c.columnIndex
}

func (c *VarColumn) ColumnTop() int64 {
	return c.columnTop
}

func (c *VarColumn) ColumnType() io.ColumnType {
	return c.columnType
}

// PrimaryFd is the data file descriptor.
func (c *VarColumn) PrimaryFd() int {
	return c.fd
}

// SecondaryFd is the offsets file descriptor.
func (c *VarColumn) SecondaryFd() (int, error) {
	return c.offsetsFd, nil
}

func (c *VarColumn) PrimaryAddress() ([]byte, error) {
	return nil, fmt.Errorf("var column primary address: %w", frm.ErrUnsupported)
}

func (c *VarColumn) SecondaryAddress() ([]byte, error) {
	return nil, fmt.Errorf("var column secondary address: %w", frm.ErrUnsupported)
}

func (c *VarColumn) StorageType() frm.StorageType {
	return frm.ColumnContinuousFile
}

func (c *VarColumn) SetAddTop(delta int64) error {
	if delta < 0 {
		return frm.PreconditionError(fmt.Sprintf("column top delta %d", delta))
	}
	c.columnTop += delta
	return nil
}
