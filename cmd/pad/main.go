package pad

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/alpacahq/framestore/catalog"
	"github.com/alpacahq/framestore/cmd/partition"
	"github.com/alpacahq/framestore/executor/ff"
	"github.com/alpacahq/framestore/executor/frm/file"
	"github.com/alpacahq/framestore/utils/io"
	"github.com/alpacahq/framestore/utils/log"
)

const (
	usage   = "pad"
	short   = "Append null rows to a column"
	long    = "This command writes null values of the column type into a partition column"
	example = "framestore pad --dst 2024-01-02 --column price --offset 50 --count 10"
)

// Options are the inputs of a pad. Type and IndexBlockCapacity are only
// used when the column is new.
type Options struct {
	ConfigPath         string
	Destination        string
	Column             string
	Type               string
	IndexBlockCapacity int
	Offset             int64
	Count              int64
}

var (
	// Cmd is the pad command.
	Cmd = &cobra.Command{
		Use:     usage,
		Short:   short,
		Long:    long,
		Example: example,
		RunE:    executePad,
	}
	opts Options
)

// nolint:gochecknoinits // cobra's standard way to initialize flags
func init() {
	Cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", partition.ConfigDesc)
	Cmd.Flags().StringVar(&opts.Destination, "dst", "", "destination partition, relative to the root directory")
	Cmd.Flags().StringVar(&opts.Column, "column", "", "column to pad")
	Cmd.Flags().StringVar(&opts.Type, "type", "", "column type when the column does not exist yet")
	Cmd.Flags().IntVar(&opts.IndexBlockCapacity, "index-block-capacity", 0, "index block capacity of a new symbol column")
	Cmd.Flags().Int64Var(&opts.Offset, "offset", 0, "first partition row")
	Cmd.Flags().Int64Var(&opts.Count, "count", 0, "number of null rows")
	_ = Cmd.MarkFlagRequired("dst")
	_ = Cmd.MarkFlagRequired("column")
}

func executePad(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	return Run(opts)
}

// Run appends o.Count nulls and saves the partition metadata.
func Run(o Options) error {
	cfg, err := partition.LoadConfig(o.ConfigPath)
	if err != nil {
		return err
	}
	dst, err := partition.Load(cfg, o.Destination, o.Type != "")
	if err != nil {
		return err
	}
	meta, pos, err := dst.Column(o.Column)
	var cnf catalog.ColumnNotFound
	if errors.As(err, &cnf) && o.Type != "" {
		_, err = dst.AddColumn(o.Column, io.ColumnTypeFromName(o.Type), o.IndexBlockCapacity)
		if err == nil {
			meta, pos, err = dst.Column(o.Column)
		}
	}
	if err != nil {
		return errors.Wrapf(err, "partition %s", dst.Path())
	}

	pool := file.NewPoolFromConfig(ff.Default, cfg)
	defer pool.Close()

	ct := meta.ColumnType()
	col, err := pool.PoolRW(ct).Create(dst.Path(), meta.Name, meta.Txn, ct, meta.IndexBlockCapacity, meta.Top, pos)
	if err != nil {
		return errors.Wrap(err, "open column")
	}
	defer col.Close()

	if err := col.AppendNulls(o.Offset, o.Count); err != nil {
		return errors.Wrapf(err, "pad %s", o.Column)
	}
	if err := partition.Commit(dst, o.Column, col.ColumnTop(), o.Offset+o.Count); err != nil {
		return err
	}
	log.Info("padded %s in %s with %d nulls at row %d", o.Column, dst.Path(), o.Count, o.Offset)
	return nil
}
