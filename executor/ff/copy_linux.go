//go:build linux

package ff

import (
	"golang.org/x/sys/unix"
)

func (osFacade) CopyData(srcFd, destFd int, srcOffset, destOffset, length int64) (int64, error) {
	var copied int64
	for copied < length {
		roff := srcOffset + copied
		woff := destOffset + copied
		n, err := unix.CopyFileRange(srcFd, &roff, destFd, &woff, int(length-copied), 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if copied == 0 && (err == unix.ENOSYS || err == unix.EXDEV || err == unix.EOPNOTSUPP) {
				return copyRange(srcFd, destFd, srcOffset, destOffset, length)
			}
			return copied, err
		}
		if n == 0 {
			// source exhausted
			break
		}
		copied += int64(n)
	}
	return copied, nil
}
