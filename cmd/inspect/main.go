package inspect

import (
	"encoding/hex"
	"fmt"
	stdio "io"
	"math"
	"strconv"

	"code.cloudfoundry.org/bytefmt"
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/alpacahq/framestore/catalog"
	"github.com/alpacahq/framestore/cmd/partition"
	"github.com/alpacahq/framestore/executor/ff"
	"github.com/alpacahq/framestore/executor/frm"
	"github.com/alpacahq/framestore/executor/frm/file"
	"github.com/alpacahq/framestore/metrics"
	"github.com/alpacahq/framestore/utils/io"
)

const (
	usage   = "inspect"
	short   = "Print rows of partition columns"
	long    = "This command prints a row range of every column matching a glob pattern, null rows included, and the disk usage of the partition"
	example = "framestore inspect --partition 2024-01-02 --column 'px_*' --from 0 --to 20"

	nullText = "null"
)

// Options are the inputs of an inspect. Column is a glob pattern over column
// names. To is exclusive, -1 means the partition row count.
type Options struct {
	ConfigPath string
	Partition  string
	Column     string
	From       int64
	To         int64
}

var (
	// Cmd is the inspect command.
	Cmd = &cobra.Command{
		Use:     usage,
		Short:   short,
		Long:    long,
		Example: example,
		RunE:    executeInspect,
	}
	opts Options
)

// nolint:gochecknoinits // cobra's standard way to initialize flags
func init() {
	Cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", partition.ConfigDesc)
	Cmd.Flags().StringVar(&opts.Partition, "partition", "", "partition, relative to the root directory")
	Cmd.Flags().StringVar(&opts.Column, "column", "", "glob pattern of the columns to print")
	Cmd.Flags().Int64Var(&opts.From, "from", 0, "first partition row")
	Cmd.Flags().Int64Var(&opts.To, "to", -1, "end partition row, exclusive (default: row count)")
	_ = Cmd.MarkFlagRequired("partition")
	_ = Cmd.MarkFlagRequired("column")
}

func executeInspect(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	return Run(opts, cmd.OutOrStdout())
}

// Run prints, for every matching column in ordinal order, a header line and
// one row per line as "<row>\t<value>". The partition disk usage comes last.
func Run(o Options, out stdio.Writer) error {
	cfg, err := partition.LoadConfig(o.ConfigPath)
	if err != nil {
		return err
	}
	p, err := partition.Load(cfg, o.Partition, false)
	if err != nil {
		return err
	}
	pattern, err := glob.Compile(o.Column)
	if err != nil {
		return errors.Wrapf(err, "invalid column pattern %q", o.Column)
	}
	to := o.To
	if to < 0 {
		to = p.RowCount()
	}

	pool := file.NewPoolFromConfig(ff.Default, cfg)
	defer pool.Close()
	matched := 0
	for pos, meta := range p.Columns() {
		if !pattern.Match(meta.Name) {
			continue
		}
		matched++
		if err := inspectColumn(out, pool, p, meta, pos, o.From, to); err != nil {
			return err
		}
	}
	if matched == 0 {
		return errors.Wrapf(catalog.ColumnNotFound(o.Column), "partition %s", p.Path())
	}

	du, err := metrics.ReportDiskUsage(metrics.PartitionDiskUsage, p.Path())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "# disk usage %s (%d bytes)\n", bytefmt.ByteSize(uint64(du)), du)
	return nil
}

func inspectColumn(out stdio.Writer, pool frm.FrameColumnPool, p *catalog.Partition, meta catalog.Column,
	pos int, from, to int64,
) error {
	ct := meta.ColumnType()
	col, err := pool.PoolRO(ct).Create(p.Path(), meta.Name, meta.Txn, ct, meta.IndexBlockCapacity, meta.Top, pos)
	if err != nil {
		return errors.Wrapf(err, "open column %s", meta.Name)
	}
	defer col.Close()

	values, err := render(col, from, to)
	if err != nil {
		return errors.Wrapf(err, "read column %s", meta.Name)
	}
	fmt.Fprintf(out, "# %s %s %s\n", meta.Name, meta.Type, frm.DecodeColumnTop(meta.Top))
	for i, v := range values {
		fmt.Fprintf(out, "%d\t%s\n", from+int64(i), v)
	}
	return nil
}

type fixReader interface {
	ReadRows(lo, hi int64) ([]byte, error)
}

func render(col frm.FrameColumn, from, to int64) ([]string, error) {
	switch c := col.(type) {
	case *file.VarColumn:
		rows, err := c.ReadRows(from, to)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = formatVar(c.ColumnType(), r)
		}
		return out, nil
	case fixReader:
		raw, err := c.ReadRows(from, to)
		if err != nil {
			return nil, err
		}
		width := int64(col.ColumnType().Size())
		out := make([]string, to-from)
		for i := range out {
			out[i] = formatFix(col.ColumnType(), raw[int64(i)*width:(int64(i)+1)*width])
		}
		return out, nil
	default:
		return nil, errors.Errorf("cannot read rows of %T", col)
	}
}

func formatVar(t io.ColumnType, v []byte) string {
	if v == nil {
		return nullText
	}
	if t == io.STRING {
		return strconv.Quote(string(v))
	}
	return hex.EncodeToString(v)
}

func formatFix(t io.ColumnType, b []byte) string {
	switch t {
	case io.BOOLEAN:
		return strconv.FormatBool(b[0] != 0)
	case io.BYTE:
		return strconv.Itoa(int(int8(b[0])))
	case io.SHORT:
		return strconv.Itoa(int(io.ToInt16(b)))
	case io.CHAR:
		return strconv.QuoteRune(rune(uint16(io.ToInt16(b))))
	case io.INT, io.SYMBOL:
		if io.IsNull(t, b) {
			return nullText
		}
		return strconv.FormatInt(int64(io.ToInt32(b)), 10)
	case io.LONG, io.DATE, io.TIMESTAMP:
		if io.IsNull(t, b) {
			return nullText
		}
		return strconv.FormatInt(io.ToInt64(b), 10)
	case io.FLOAT:
		if f := io.ToFloat32(b); !math.IsNaN(float64(f)) {
			return strconv.FormatFloat(float64(f), 'g', -1, 32)
		}
		return nullText
	case io.DOUBLE:
		if f := io.ToFloat64(b); !math.IsNaN(f) {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return nullText
	default:
		if io.IsNull(t, b) {
			return nullText
		}
		return hex.EncodeToString(b)
	}
}
