package io

import (
	"fmt"
	"runtime"
)

func GetCallerFileContext(level int) (fileContext string) {
	_, file, line, _ := runtime.Caller(1 + level)
	return fmt.Sprintf("%s:%d", file, line)
}

// CeilPow2 returns the smallest power of two not less than v, 1 for v < 1.
func CeilPow2(v int64) int64 {
	n := int64(1)
	for n < v {
		n <<= 1
	}
	return n
}
