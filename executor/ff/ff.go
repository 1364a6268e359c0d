// Package ff is the files facade used by frame columns. Every operation works
// on raw descriptors so that column data can move between files without
// passing through user-space buffers.
//
// The OS facade is built for linux and darwin only: CopyData uses
// copy_file_range on linux and a pread/pwrite loop on darwin.
package ff

import (
	"fmt"
	"os"
	"strings"
)

// FileOpts are extra flags applied when a file is opened read-write.
type FileOpts int64

const (
	// OptDsync opens with O_DSYNC: data writes reach the device before returning.
	OptDsync FileOpts = 1 << iota
	// OptSync opens with O_SYNC.
	OptSync

	OptNone FileOpts = 0
)

// FilePerm is the permission of files created by OpenRW.
const FilePerm = 0o644

// Mapping is a writable memory mapping of a byte range of a file.
// Bytes covers exactly the requested range; the mapping itself starts at
// the page boundary below it.
type Mapping struct {
	Bytes  []byte
	region []byte
}

// FilesFacade abstracts the file primitives frame columns consume.
// Implementations report failures with the underlying OS error so that
// callers can extract the errno.
type FilesFacade interface {
	OpenRO(path string) (int, error)
	OpenRW(path string, opts FileOpts) (int, error)
	Close(fd int) error
	Exists(path string) bool
	// Truncate sets the file size, extending with zeros or discarding the tail.
	Truncate(fd int, size int64) error
	Length(fd int) (int64, error)
	ReadAt(fd int, b []byte, offset int64) (int, error)
	WriteAt(fd int, b []byte, offset int64) (int, error)
	// CopyData copies length bytes from srcFd at srcOffset to destFd at
	// destOffset, descriptor to descriptor. It returns the number of bytes
	// copied, which is short of length only when the source ran out or an
	// error occurred.
	CopyData(srcFd, destFd int, srcOffset, destOffset, length int64) (int64, error)
	// MmapRW maps [offset, offset+length) of fd for writing.
	MmapRW(fd int, offset, length int64) (*Mapping, error)
	Munmap(m *Mapping) error
}

// Default is the process-wide facade backed by the OS.
var Default FilesFacade = osFacade{}

type osFacade struct{}

func (osFacade) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ParseFileOpts maps config option names to FileOpts.
func ParseFileOpts(names []string) (FileOpts, error) {
	opts := OptNone
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "dsync":
			opts |= OptDsync
		case "sync":
			opts |= OptSync
		case "", "none":
		default:
			return OptNone, fmt.Errorf("unknown file option %q", name)
		}
	}
	return opts, nil
}
