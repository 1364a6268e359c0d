package inspect_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/framestore/catalog"
	"github.com/alpacahq/framestore/cmd/inspect"
	"github.com/alpacahq/framestore/executor/frm"
	"github.com/alpacahq/framestore/utils/io"
	"github.com/alpacahq/framestore/utils/test"
)

func partition(t *testing.T) string {
	t.Helper()
	dir := test.MakePartition(t, t.TempDir(), "p")
	p := catalog.NewPartition(dir)
	p.SetRowCount(3)
	_, err := p.AddColumn("px", io.LONG, 0)
	require.NoError(t, err)
	require.NoError(t, p.SetColumnTop("px", 1))
	_, err = p.AddColumn("tag", io.STRING, 0)
	require.NoError(t, err)
	require.NoError(t, p.SetColumnTop("tag", 0))
	require.NoError(t, p.Save())
	test.WriteFixColumn(t, dir, "px", frm.ColumnNameTxnNone, test.Longs(5, io.NullLong))
	test.WriteVarColumn(t, dir, "tag", frm.ColumnNameTxnNone, io.STRING, [][]byte{[]byte("a"), nil, []byte("b c")})
	return dir
}

func TestInspect(t *testing.T) {
	dir := partition(t)

	tests := map[string]struct {
		opts inspect.Options
		want []string
	}{
		"fixed column with top": {
			opts: inspect.Options{Partition: dir, Column: "px", To: -1},
			want: []string{"# px long present(top=1)", "0\tnull", "1\t5", "2\tnull"},
		},
		"var column range": {
			opts: inspect.Options{Partition: dir, Column: "tag", From: 1, To: 3},
			want: []string{"# tag string present(top=0)", "1\tnull", "2\t\"b c\""},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, inspect.Run(tt.opts, &out))
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			require.Len(t, lines, len(tt.want)+1)
			assert.Equal(t, tt.want, lines[:len(tt.want)])
			assert.True(t, strings.HasPrefix(lines[len(lines)-1], "# disk usage "))
		})
	}
}

func TestInspectColumnPattern(t *testing.T) {
	dir := partition(t)

	var out bytes.Buffer
	require.NoError(t, inspect.Run(inspect.Options{Partition: dir, Column: "*", From: 2, To: 3}, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{"# px long present(top=1)", "2\tnull", "# tag string present(top=0)", "2\t\"b c\""},
		lines[:len(lines)-1])
	assert.Contains(t, lines[len(lines)-1], "bytes)")
}

func TestInspectNoMatchingColumn(t *testing.T) {
	dir := partition(t)
	var out bytes.Buffer
	err := inspect.Run(inspect.Options{Partition: dir, Column: "vol*", To: -1}, &out)
	var cnf catalog.ColumnNotFound
	assert.True(t, errors.As(err, &cnf), "got %v", err)
}

func TestInspectPastStoredRows(t *testing.T) {
	dir := partition(t)
	var out bytes.Buffer
	err := inspect.Run(inspect.Options{Partition: dir, Column: "px", To: 4}, &out)
	assert.Error(t, err)
}
