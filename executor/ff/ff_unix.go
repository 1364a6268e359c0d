//go:build linux || darwin

package ff

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

func openFlags(opts FileOpts) int {
	flags := 0
	if opts&OptDsync != 0 {
		flags |= unix.O_DSYNC
	}
	if opts&OptSync != 0 {
		flags |= unix.O_SYNC
	}
	return flags
}

func (osFacade) OpenRO(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return fd, nil
}

func (osFacade) OpenRW(path string, opts FileOpts) (int, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_CLOEXEC|openFlags(opts), FilePerm)
	if err != nil {
		return -1, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return fd, nil
}

func (osFacade) Close(fd int) error {
	return unix.Close(fd)
}

func (osFacade) Truncate(fd int, size int64) error {
	return unix.Ftruncate(fd, size)
}

func (osFacade) Length(fd int) (int64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return -1, err
	}
	return st.Size, nil
}

func (osFacade) ReadAt(fd int, b []byte, offset int64) (int, error) {
	total := 0
	for total < len(b) {
		n, err := unix.Pread(fd, b[total:], offset+int64(total))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
		total += n
	}
	return total, nil
}

func (osFacade) WriteAt(fd int, b []byte, offset int64) (int, error) {
	return writeFull(unix.Pwrite, fd, b, offset)
}

// writeFull repeats pwrite until b is written. A pwrite that makes no
// progress is a short write.
func writeFull(pwrite func(fd int, p []byte, offset int64) (int, error), fd int, b []byte, offset int64) (int, error) {
	total := 0
	for total < len(b) {
		n, err := pwrite(fd, b[total:], offset+int64(total))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
		total += n
	}
	return total, nil
}

func (osFacade) MmapRW(fd int, offset, length int64) (*Mapping, error) {
	if length <= 0 {
		return nil, fmt.Errorf("mmap: invalid length %d", length)
	}
	pageSize := int64(unix.Getpagesize())
	aligned := offset - offset%pageSize
	lead := offset - aligned
	region, err := unix.Mmap(fd, aligned, int(lead+length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return &Mapping{Bytes: region[lead : lead+length], region: region}, nil
}

func (osFacade) Munmap(m *Mapping) error {
	if m == nil || m.region == nil {
		return nil
	}
	err := unix.Munmap(m.region)
	m.region = nil
	m.Bytes = nil
	return err
}

// copyRange is the pread/pwrite loop used where the kernel cannot copy
// between descriptors itself.
func copyRange(srcFd, destFd int, srcOffset, destOffset, length int64) (int64, error) {
	const chunk = 1 << 20
	buf := make([]byte, minInt64(chunk, length))
	var copied int64
	for copied < length {
		want := minInt64(int64(len(buf)), length-copied)
		n, err := Default.ReadAt(srcFd, buf[:want], srcOffset+copied)
		if n > 0 {
			w, werr := Default.WriteAt(destFd, buf[:n], destOffset+copied)
			copied += int64(w)
			if werr != nil {
				return copied, werr
			}
		}
		if err != nil {
			return copied, err
		}
		if int64(n) < want {
			break
		}
	}
	return copied, nil
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
