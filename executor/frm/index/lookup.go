package index

import (
	"errors"

	"github.com/alpacahq/framestore/executor/ff"
	"github.com/alpacahq/framestore/executor/frm"
	"github.com/alpacahq/framestore/utils/io"
	"github.com/alpacahq/framestore/utils/log"
)

const scanRows = 64 * 1024

// Lookup returns the partition row ids whose symbol code equals code. It
// answers from the index when the partition has one and otherwise falls back
// to scanning the symbol data file. columnTop is the raw metadata column top.
func Lookup(f ff.FilesFacade, partitionPath, columnName string, columnTxn, columnTop int64, code int32) ([]int64, error) {
	r, err := OpenReader(f, frm.KeyFile(partitionPath, columnName, columnTxn),
		frm.ValueFile(partitionPath, columnName, columnTxn))
	switch {
	case err == nil:
		defer r.Close()
		return r.Values(ToIndexKey(code))
	case errors.Is(err, ErrNoIndex):
		log.Debug("no index for %s in %s, scanning", columnName, partitionPath)
		return Scan(f, partitionPath, columnName, columnTxn, frm.DecodeColumnTop(columnTop), code)
	default:
		return nil, err
	}
}

// Scan finds the rows holding code by reading the symbol data file.
func Scan(f ff.FilesFacade, partitionPath, columnName string, columnTxn int64, presence frm.Presence, code int32) ([]int64, error) {
	var rows []int64
	if code == io.NullInt {
		for r := int64(0); r < presence.Top; r++ {
			rows = append(rows, r)
		}
	}
	if presence.Absent {
		return rows, nil
	}

	path := frm.DFile(partitionPath, columnName, columnTxn)
	fd, err := f.OpenRO(path)
	if err != nil {
		return nil, frm.Critical(err, "could not open symbol file", frm.D("path", path))
	}
	defer f.Close(fd)
	size, err := f.Length(fd)
	if err != nil {
		return nil, frm.Critical(err, "could not get symbol file size", frm.D("fd", fd))
	}

	const width = 4
	buf := make([]byte, scanRows*width)
	total := size / width
	for lo := int64(0); lo < total; lo += scanRows {
		n := total - lo
		if n > scanRows {
			n = scanRows
		}
		got, err := f.ReadAt(fd, buf[:n*width], lo*width)
		if err != nil || int64(got) != n*width {
			return nil, frm.Critical(err, "could not read symbol file",
				frm.D("fd", fd), frm.D("offset", lo*width), frm.D("size", n*width))
		}
		for i := int64(0); i < n; i++ {
			if io.ToInt32(buf[i*width:]) == code {
				rows = append(rows, presence.Top+lo+i)
			}
		}
	}
	return rows, nil
}
