//go:build darwin

package ff

func (osFacade) CopyData(srcFd, destFd int, srcOffset, destOffset, length int64) (int64, error) {
	return copyRange(srcFd, destFd, srcOffset, destOffset, length)
}
