// Package frm defines frame columns: handles over the on-disk files of one
// table column in one partition, and the pools that manufacture them.
package frm

import (
	"github.com/alpacahq/framestore/utils/io"
)

// StorageType identifies the physical representation behind a FrameColumn.
type StorageType int8

const (
	// ColumnContinuousFile is backed directly by OS files and operated on
	// through descriptors.
	ColumnContinuousFile StorageType = iota
	// ColumnMemory is an in-memory mapped arena representation.
	ColumnMemory
)

// FrameColumn is bound to exactly one (partition, column) pair between open
// and Close. Offsets and counts are in rows; offsets are logical partition
// rows, which include the column top.
type FrameColumn interface {
	// Append copies count rows of sourceColumn starting at logical row
	// sourceOffset into this column at logical row offset.
	Append(offset int64, sourceColumn FrameColumn, sourceOffset, count int64) error
	// AppendNulls writes count null rows at logical row offset.
	AppendNulls(offset, count int64) error
	// Close releases the descriptors and, unless the owning pool is closed,
	// returns the handle to its pool. Closing twice is harmless.
	Close() error
	ColumnIndex() int
	ColumnTop() int64
	ColumnType() io.ColumnType
	PrimaryFd() int
	SecondaryFd() (int, error)
	PrimaryAddress() ([]byte, error)
	SecondaryAddress() ([]byte, error)
	StorageType() StorageType
	// SetAddTop grows the column top by delta rows.
	SetAddTop(delta int64) error
}

// FrameColumnTypePool materializes frame columns.
type FrameColumnTypePool interface {
	Create(partitionPath, columnName string, columnTxn int64, columnType io.ColumnType,
		indexBlockCapacity int, columnTop int64, columnIndex int) (FrameColumn, error)
}

// FrameColumnPool hands out read-only and read-write views over the same
// underlying pools. The view last asked for decides the open mode of the
// next Create, so acquire-create-use-close must be serialized by the caller.
type FrameColumnPool interface {
	PoolRO(columnType io.ColumnType) FrameColumnTypePool
	PoolRW(columnType io.ColumnType) FrameColumnTypePool
	Close() error
}
