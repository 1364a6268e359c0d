package merge

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/alpacahq/framestore/cmd/partition"
	"github.com/alpacahq/framestore/executor/ff"
	"github.com/alpacahq/framestore/executor/frm/file"
	"github.com/alpacahq/framestore/utils/log"
)

const (
	usage   = "merge"
	short   = "Append rows of a column from one partition to another"
	long    = "This command copies a row range of a column file from a source partition into a destination partition without decoding the values"
	example = "framestore merge --src 2024-01-01 --dst 2024-01-02 --column price --offset 0 --src-offset 100 --count 50"
)

// Options are the inputs of a merge.
type Options struct {
	ConfigPath   string
	Source       string
	Destination  string
	Column       string
	Offset       int64
	SourceOffset int64
	Count        int64
}

var (
	// Cmd is the merge command.
	Cmd = &cobra.Command{
		Use:     usage,
		Short:   short,
		Long:    long,
		Example: example,
		RunE:    executeMerge,
	}
	opts Options
)

// nolint:gochecknoinits // cobra's standard way to initialize flags
func init() {
	Cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", partition.ConfigDesc)
	Cmd.Flags().StringVar(&opts.Source, "src", "", "source partition, relative to the root directory")
	Cmd.Flags().StringVar(&opts.Destination, "dst", "", "destination partition, relative to the root directory")
	Cmd.Flags().StringVar(&opts.Column, "column", "", "column to merge")
	Cmd.Flags().Int64Var(&opts.Offset, "offset", 0, "first destination partition row")
	Cmd.Flags().Int64Var(&opts.SourceOffset, "src-offset", 0, "first source partition row")
	Cmd.Flags().Int64Var(&opts.Count, "count", 0, "number of rows")
	_ = Cmd.MarkFlagRequired("src")
	_ = Cmd.MarkFlagRequired("dst")
	_ = Cmd.MarkFlagRequired("column")
}

func executeMerge(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	return Run(opts)
}

// Run appends o.Count rows of the column and saves the destination metadata.
func Run(o Options) error {
	cfg, err := partition.LoadConfig(o.ConfigPath)
	if err != nil {
		return err
	}
	src, err := partition.Load(cfg, o.Source, false)
	if err != nil {
		return err
	}
	dst, err := partition.Load(cfg, o.Destination, true)
	if err != nil {
		return err
	}
	srcMeta, srcPos, err := partition.Column(src, o.Column)
	if err != nil {
		return err
	}
	dstMeta, dstPos, err := partition.EnsureColumn(dst, srcMeta)
	if err != nil {
		return err
	}
	if dstMeta.ColumnType() != srcMeta.ColumnType() {
		return errors.Errorf("column %s is %s in %s and %s in %s", o.Column,
			srcMeta.Type, src.Path(), dstMeta.Type, dst.Path())
	}

	pool := file.NewPoolFromConfig(ff.Default, cfg)
	defer pool.Close()

	ct := srcMeta.ColumnType()
	srcCol, err := pool.PoolRO(ct).Create(src.Path(), srcMeta.Name, srcMeta.Txn, ct,
		srcMeta.IndexBlockCapacity, srcMeta.Top, srcPos)
	if err != nil {
		return errors.Wrap(err, "open source column")
	}
	defer srcCol.Close()

	dstCol, err := pool.PoolRW(ct).Create(dst.Path(), dstMeta.Name, dstMeta.Txn, ct,
		dstMeta.IndexBlockCapacity, dstMeta.Top, dstPos)
	if err != nil {
		return errors.Wrap(err, "open destination column")
	}
	defer dstCol.Close()

	if err := dstCol.Append(o.Offset, srcCol, o.SourceOffset, o.Count); err != nil {
		return errors.Wrapf(err, "merge %s", o.Column)
	}
	// the destination file exists now, whatever the column top said before
	if err := partition.Commit(dst, o.Column, dstCol.ColumnTop(), o.Offset+o.Count); err != nil {
		return err
	}
	log.Info("merged %d rows of %s from %s into %s at row %d",
		o.Count, o.Column, src.Path(), dst.Path(), o.Offset)
	return nil
}
