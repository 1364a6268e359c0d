package file

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alpacahq/framestore/executor/ff"
	"github.com/alpacahq/framestore/executor/frm"
	"github.com/alpacahq/framestore/utils/io"
)

// recordingFacade counts calls into the OS facade and injects failures.
type recordingFacade struct {
	ff.FilesFacade
	calls     map[string]int
	shortCopy bool
	mmapErr   error
	readErr   error
}

func newRecordingFacade() *recordingFacade {
	return &recordingFacade{FilesFacade: ff.Default, calls: map[string]int{}}
}

func (f *recordingFacade) total() int {
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *recordingFacade) OpenRO(path string) (int, error) {
	f.calls["OpenRO"]++
	return f.FilesFacade.OpenRO(path)
}

func (f *recordingFacade) OpenRW(path string, opts ff.FileOpts) (int, error) {
	f.calls["OpenRW"]++
	return f.FilesFacade.OpenRW(path, opts)
}

func (f *recordingFacade) Close(fd int) error {
	f.calls["Close"]++
	return f.FilesFacade.Close(fd)
}

func (f *recordingFacade) Truncate(fd int, size int64) error {
	f.calls["Truncate"]++
	return f.FilesFacade.Truncate(fd, size)
}

func (f *recordingFacade) Length(fd int) (int64, error) {
	f.calls["Length"]++
	return f.FilesFacade.Length(fd)
}

func (f *recordingFacade) ReadAt(fd int, b []byte, offset int64) (int, error) {
	f.calls["ReadAt"]++
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.FilesFacade.ReadAt(fd, b, offset)
}

func (f *recordingFacade) WriteAt(fd int, b []byte, offset int64) (int, error) {
	f.calls["WriteAt"]++
	return f.FilesFacade.WriteAt(fd, b, offset)
}

func (f *recordingFacade) CopyData(srcFd, destFd int, srcOffset, destOffset, length int64) (int64, error) {
	f.calls["CopyData"]++
	if f.shortCopy && length > 0 {
		n, err := f.FilesFacade.CopyData(srcFd, destFd, srcOffset, destOffset, length-1)
		return n, err
	}
	return f.FilesFacade.CopyData(srcFd, destFd, srcOffset, destOffset, length)
}

func (f *recordingFacade) MmapRW(fd int, offset, length int64) (*ff.Mapping, error) {
	f.calls["MmapRW"]++
	if f.mmapErr != nil {
		return nil, f.mmapErr
	}
	return f.FilesFacade.MmapRW(fd, offset, length)
}

func (f *recordingFacade) Munmap(m *ff.Mapping) error {
	f.calls["Munmap"]++
	return f.FilesFacade.Munmap(m)
}

// memColumn stands in for a column held in memory.
type memColumn struct {
	columnType io.ColumnType
}

func (m *memColumn) Append(int64, frm.FrameColumn, int64, int64) error { return frm.ErrUnsupported }
func (m *memColumn) AppendNulls(int64, int64) error                     { return frm.ErrUnsupported }
func (m *memColumn) Close() error                                       { return nil }
func (m *memColumn) ColumnIndex() int                                   { return 0 }
func (m *memColumn) ColumnTop() int64                                   { return 0 }
func (m *memColumn) ColumnType() io.ColumnType                          { return m.columnType }
func (m *memColumn) PrimaryFd() int                                     { return -1 }
func (m *memColumn) SecondaryFd() (int, error)                          { return -1, frm.ErrUnsupported }
func (m *memColumn) PrimaryAddress() ([]byte, error)                    { return make([]byte, 64), nil }
func (m *memColumn) SecondaryAddress() ([]byte, error)                  { return nil, frm.ErrUnsupported }
func (m *memColumn) StorageType() frm.StorageType                       { return frm.ColumnMemory }
func (m *memColumn) SetAddTop(int64) error                              { return nil }

func newTestPool(f ff.FilesFacade) *ContinuousFileColumnPool {
	return NewContinuousFileColumnPool(f, ff.OptNone, 4096, 4096)
}

func create(t *testing.T, tp frm.FrameColumnTypePool, dir, name string, ct io.ColumnType,
	capacity int, columnTop int64,
) frm.FrameColumn {
	t.Helper()
	col, err := tp.Create(dir, name, frm.ColumnNameTxnNone, ct, capacity, columnTop, 0)
	require.NoError(t, err)
	return col
}
