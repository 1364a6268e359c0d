// Package test builds partition directories with column files for tests.
package test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alpacahq/framestore/executor/frm"
	"github.com/alpacahq/framestore/utils/io"
)

const allowAllPerm = 0o777

// MakePartition creates an empty partition directory under root.
func MakePartition(t testing.TB, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, allowAllPerm))
	return dir
}

func writeFile(t testing.TB, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// WriteFixColumn writes the data file of a fixed-width column.
func WriteFixColumn(t testing.TB, partitionPath, columnName string, columnTxn int64, data []byte) {
	t.Helper()
	writeFile(t, frm.DFile(partitionPath, columnName, columnTxn), data)
}

// WriteVarColumn writes the data and offsets files of a variable-length
// column. nil values are stored as nulls.
func WriteVarColumn(t testing.TB, partitionPath, columnName string, columnTxn int64,
	columnType io.ColumnType, values [][]byte,
) {
	t.Helper()
	var data, offsets []byte
	offsets = io.AppendInt64(offsets, 0)
	for _, v := range values {
		data = io.AppendVarValue(columnType, data, v)
		offsets = io.AppendInt64(offsets, int64(len(data)))
	}
	if len(values) == 0 {
		offsets = nil
	}
	writeFile(t, frm.DFile(partitionPath, columnName, columnTxn), data)
	writeFile(t, frm.IFile(partitionPath, columnName, columnTxn), offsets)
}

// ReadFile returns the whole content of a column file.
func ReadFile(t testing.TB, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return b
}

// Longs is the stored form of LONG values.
func Longs(values ...int64) []byte {
	return io.AppendInt64(nil, values...)
}

// Ints is the stored form of INT or SYMBOL values.
func Ints(values ...int32) []byte {
	b := make([]byte, 4*len(values))
	for i, v := range values {
		io.PutInt32(b[i*4:], v)
	}
	return b
}

// Strings converts to var column values; "" is kept as an empty value.
func Strings(values ...string) [][]byte {
	out := make([][]byte, len(values))
	for i, v := range values {
		out[i] = []byte(v)
	}
	return out
}
