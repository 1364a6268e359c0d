package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alpacahq/framestore/utils/log"
)

// Setter is an interface for prometheus metrics to improve unit-testability.
type Setter interface {
	Set(m float64)
}

// ReportDiskUsage measures the directory and sets the result on s.
func ReportDiskUsage(s Setter, dir string) (int64, error) {
	du, err := DiskUsage(dir)
	if err != nil {
		return 0, err
	}
	s.Set(float64(du))
	return du, nil
}

// DiskUsage returns the bytes allocated on disk by the files under path.
// Column files are extended with truncate and stay sparse until written,
// so this is usually far less than the sum of the file sizes.
func DiskUsage(path string) (int64, error) {
	var totalSize int64
	err := filepath.Walk(path, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		stat, ok := info.Sys().(*syscall.Stat_t)
		if !ok {
			log.Error("failed to get Stat_t for the file %s", filePath)
			return nil
		}
		// st_blocks is always in 512 byte units
		totalSize += int64(stat.Blocks) * 512
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("get the disk usage of %s: %w", path, err)
	}
	return totalSize, nil
}
