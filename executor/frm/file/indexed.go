package file

import (
	"fmt"

	"github.com/alpacahq/framestore/executor/ff"
	"github.com/alpacahq/framestore/executor/frm"
	"github.com/alpacahq/framestore/executor/frm/index"
	"github.com/alpacahq/framestore/utils/io"
	"github.com/alpacahq/framestore/utils/log"
)

// indexChunkRows bounds how many symbol codes are read back per index pass.
const indexChunkRows = 64 * 1024

// IndexedColumn is a SYMBOL frame column that keeps its bitmap index in step
// with every write. It is only built for writing.
type IndexedColumn struct {
	ff                  ff.FilesFacade
	fileOpts            ff.FileOpts
	keyAppendPageSize   int64
	valueAppendPageSize int64
	data                *FixColumn
	writer              *index.Writer
	recycler            recycler
	slot                int
}

var _ frm.FrameColumn = (*IndexedColumn)(nil)

func NewIndexedColumn(f ff.FilesFacade, fileOpts ff.FileOpts, keyAppendPageSize, valueAppendPageSize int64) *IndexedColumn {
	data := NewFixColumn(f, fileOpts)
	data.shape = shapeIndexed
	return &IndexedColumn{
		ff:                  f,
		fileOpts:            fileOpts,
		keyAppendPageSize:   keyAppendPageSize,
		valueAppendPageSize: valueAppendPageSize,
		data:                data,
		slot:                -1,
	}
}

func (c *IndexedColumn) bindSlot(r recycler, slot int) {
	c.recycler = r
	c.slot = slot
}

// OfRW opens the symbol data file and its index for writing. When the index
// is new, or the column was absent, it is rebuilt from the rows already in
// the partition: rows below the top are recorded as nulls.
func (c *IndexedColumn) OfRW(partitionPath, columnName string, columnTxn int64, columnType io.ColumnType,
	indexBlockCapacity int, presence frm.Presence, columnIndex int,
) error {
	if c.writer != nil {
		return frm.PreconditionError("indexed column is already open")
	}
	if columnType != io.SYMBOL {
		return frm.PreconditionError(fmt.Sprintf("%s column cannot be indexed", columnType))
	}
	if err := c.data.OfRW(partitionPath, columnName, columnTxn, columnType, presence, columnIndex); err != nil {
		return err
	}
	w, err := index.OpenWriter(c.ff,
		frm.KeyFile(partitionPath, columnName, columnTxn),
		frm.ValueFile(partitionPath, columnName, columnTxn),
		c.fileOpts, indexBlockCapacity, c.keyAppendPageSize, c.valueAppendPageSize)
	if err != nil {
		_ = c.closeData()
		return err
	}
	c.writer = w

	if w.Created() || presence.Absent {
		if err := c.rebuild(); err != nil {
			_ = c.abort()
			return err
		}
		log.Debug("built index for %s in %s: %d keys", columnName, partitionPath, w.KeyCount())
		return nil
	}
	// an index committed short of the data, e.g. by an interrupted build
	stored, err := c.data.StoredRows()
	if err != nil {
		_ = c.abort()
		return err
	}
	if want := c.data.columnTop + stored - 1; w.MaxValue() != want {
		log.Warn("index for %s in %s ends at row %d, data at row %d: rebuilding",
			columnName, partitionPath, w.MaxValue(), want)
		if err := c.rebuild(); err != nil {
			_ = c.abort()
			return err
		}
	}
	return nil
}

func (c *IndexedColumn) rebuild() error {
	if !c.writer.Created() {
		if err := c.writer.Reset(); err != nil {
			return err
		}
	}
	for r := int64(0); r < c.data.columnTop; r++ {
		if err := c.writer.Add(0, r); err != nil {
			return err
		}
	}
	stored, err := c.data.StoredRows()
	if err != nil {
		return err
	}
	if err := c.indexRows(0, stored); err != nil {
		return err
	}
	return c.writer.Commit()
}

// indexRows adds the codes of stored rows [lo, lo+count) to the index.
func (c *IndexedColumn) indexRows(lo, count int64) error {
	const width = 4
	buf := make([]byte, minInt64(count, indexChunkRows)*width)
	for done := int64(0); done < count; {
		n := minInt64(count-done, indexChunkRows)
		chunk := buf[:n*width]
		if err := readAt(c.ff, c.data.fd, chunk, (lo+done)*width); err != nil {
			return err
		}
		for i := int64(0); i < n; i++ {
			key := index.ToIndexKey(io.ToInt32(chunk[i*width:]))
			if err := c.writer.Add(key, c.data.columnTop+lo+done+i); err != nil {
				return err
			}
		}
		done += n
	}
	return nil
}

// Append copies symbol codes like FixColumn.Append and indexes the copied
// rows. Index entries at or past offset are dropped first.
func (c *IndexedColumn) Append(offset int64, source frm.FrameColumn, sourceOffset, count int64) error {
	srcLo, dstLo, err := c.data.appendBounds(offset, source, sourceOffset, count)
	if err != nil {
		return err
	}
	if err := c.writer.RollbackValues(offset - 1); err != nil {
		return err
	}
	if err := c.data.copyRows(source.PrimaryFd(), srcLo, dstLo, count); err != nil {
		return err
	}
	if err := c.indexRows(dstLo, count); err != nil {
		return err
	}
	return c.writer.Commit()
}

// AppendNulls writes null codes and indexes them under the null key.
func (c *IndexedColumn) AppendNulls(offset, count int64) error {
	dstLo, err := c.data.nullBounds(offset, count)
	if err != nil {
		return err
	}
	if err := c.writer.RollbackValues(offset - 1); err != nil {
		return err
	}
	if err := c.data.fillNulls(dstLo, count); err != nil {
		return err
	}
	nullKey := index.ToIndexKey(io.NullInt)
	for r := offset; r < offset+count; r++ {
		if err := c.writer.Add(nullKey, r); err != nil {
			return err
		}
	}
	return c.writer.Commit()
}

func (c *IndexedColumn) closeData() error {
	return c.data.Close()
}

// abort closes the index without committing what was added since the last
// Commit, then the data file.
func (c *IndexedColumn) abort() error {
	var err error
	if c.writer != nil {
		err = c.writer.Abort()
		c.writer = nil
	}
	if derr := c.closeData(); derr != nil && err == nil {
		err = derr
	}
	return err
}

func (c *IndexedColumn) closeAll() error {
	var err error
	if c.writer != nil {
		err = c.writer.Close()
		c.writer = nil
	}
	if derr := c.closeData(); derr != nil && err == nil {
		err = derr
	}
	return err
}

// Close commits and closes the index, closes the data file and hands the
// column back to its pool.
func (c *IndexedColumn) Close() error {
	err := c.closeAll()
	if c.recycler != nil {
		c.recycler.recycle(c.slot)
	}
	return err
}

// Writer is the open index, nil when the column is closed.
func (c *IndexedColumn) Writer() *index.Writer {
	return c.writer
}

func (c *IndexedColumn) StoredRows() (int64, error) {
	return c.data.StoredRows()
}

func (c *IndexedColumn) ReadRows(lo, hi int64) ([]byte, error) {
	return c.data.ReadRows(lo, hi)
}

func (c *IndexedColumn) ColumnIndex() int {
	return c.data.ColumnIndex()
}

func (c *IndexedColumn) ColumnTop() int64 {
	return c.data.ColumnTop()
}

func (c *IndexedColumn) ColumnType() io.ColumnType {
	return c.data.ColumnType()
}

func (c *IndexedColumn) PrimaryFd() int {
	return c.data.PrimaryFd()
}

func (c *IndexedColumn) SecondaryFd() (int, error) {
	return -1, fmt.Errorf("indexed column secondary fd: %w", frm.ErrUnsupported)
}

func (c *IndexedColumn) PrimaryAddress() ([]byte, error) {
	return nil, fmt.Errorf("indexed column primary address: %w", frm.ErrUnsupported)
}

func (c *IndexedColumn) SecondaryAddress() ([]byte, error) {
	return nil, fmt.Errorf("indexed column secondary address: %w", frm.ErrUnsupported)
}

func (c *IndexedColumn) StorageType() frm.StorageType {
	return frm.ColumnContinuousFile
}

func (c *IndexedColumn) SetAddTop(delta int64) error {
	return c.data.SetAddTop(delta)
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
