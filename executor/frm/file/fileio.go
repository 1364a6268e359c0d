package file

import (
	"github.com/alpacahq/framestore/executor/ff"
	"github.com/alpacahq/framestore/executor/frm"
	"github.com/alpacahq/framestore/utils/log"
)

// fillMapped maps [offset, offset+length) of fd read-write and hands it to
// fill. The mapping is released whatever fill returns.
func fillMapped(f ff.FilesFacade, fd int, offset, length int64, fill func([]byte) error) (err error) {
	m, err := f.MmapRW(fd, offset, length)
	if err != nil {
		return frm.Critical(err, "could not map column file",
			frm.D("fd", fd), frm.D("offset", offset), frm.D("size", length))
	}
	defer func() {
		if uerr := f.Munmap(m); uerr != nil {
			log.Error("could not unmap column file fd=%d: %v", fd, uerr)
			if err == nil {
				err = frm.Critical(uerr, "could not unmap column file", frm.D("fd", fd))
			}
		}
	}()
	if ferr := fill(m.Bytes); ferr != nil {
		return frm.Critical(ferr, "could not fill column file",
			frm.D("fd", fd), frm.D("offset", offset), frm.D("size", length))
	}
	return nil
}

func fileLength(f ff.FilesFacade, fd int) (int64, error) {
	size, err := f.Length(fd)
	if err != nil {
		return 0, frm.Critical(err, "could not get column file size", frm.D("fd", fd))
	}
	return size, nil
}

// lengthOrUnknown is for diagnostics only.
func lengthOrUnknown(f ff.FilesFacade, fd int) int64 {
	if fd < 0 {
		return -1
	}
	size, err := f.Length(fd)
	if err != nil {
		return -1
	}
	return size
}

func truncate(f ff.FilesFacade, fd int, size int64) error {
	if err := f.Truncate(fd, size); err != nil {
		return frm.Critical(err, "could not set column file size",
			frm.D("fd", fd), frm.D("size", size), frm.D("fileSize", lengthOrUnknown(f, fd)))
	}
	return nil
}

func readAt(f ff.FilesFacade, fd int, b []byte, offset int64) error {
	n, err := f.ReadAt(fd, b, offset)
	if err != nil || n != len(b) {
		return frm.Critical(err, "could not read column file",
			frm.D("fd", fd), frm.D("offset", offset), frm.D("size", len(b)), frm.D("read", n))
	}
	return nil
}

func writeAt(f ff.FilesFacade, fd int, b []byte, offset int64) error {
	n, err := f.WriteAt(fd, b, offset)
	if err != nil || n != len(b) {
		return frm.Critical(err, "could not write column file",
			frm.D("fd", fd), frm.D("offset", offset), frm.D("size", len(b)), frm.D("written", n))
	}
	return nil
}

// copyData copies length bytes between descriptors. Anything short of length
// is a CriticalError carrying both file sizes.
func copyData(f ff.FilesFacade, srcFd, destFd int, srcOffset, destOffset, length int64) error {
	n, err := f.CopyData(srcFd, destFd, srcOffset, destOffset, length)
	if err == nil && n == length {
		return nil
	}
	if err == nil {
		err = frm.ErrShortCopy
	}
	return frm.Critical(err, "cannot copy data",
		frm.D("fd", destFd),
		frm.D("destOffset", destOffset),
		frm.D("size", length),
		frm.D("fileSize", lengthOrUnknown(f, destFd)),
		frm.D("srcFd", srcFd),
		frm.D("srcOffset", srcOffset),
		frm.D("srcFileSize", lengthOrUnknown(f, srcFd)),
		frm.D("copied", n))
}

func closeFd(f ff.FilesFacade, fd int) error {
	if fd < 0 {
		return nil
	}
	if err := f.Close(fd); err != nil {
		log.Error("could not close column file fd=%d: %v", fd, err)
		return frm.Critical(err, "could not close column file", frm.D("fd", fd))
	}
	return nil
}
