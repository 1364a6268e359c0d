// Package file implements frame columns backed directly by OS files.
package file

import (
	"github.com/alpacahq/framestore/executor/ff"
	"github.com/alpacahq/framestore/executor/frm"
	"github.com/alpacahq/framestore/utils"
	"github.com/alpacahq/framestore/utils/io"
	"github.com/alpacahq/framestore/utils/log"
)

// ContinuousFileColumnPool manufactures and recycles continuous file frame
// columns. It has no internal locking: one owner drives a pool at a time.
type ContinuousFileColumnPool struct {
	ff                  ff.FilesFacade
	fileOpts            ff.FileOpts
	keyAppendPageSize   int64
	valueAppendPageSize int64
	columnTypePool      *columnTypePool
	fixColumns          *arena[*FixColumn]
	varColumns          *arena[*VarColumn]
	indexedColumns      *arena[*IndexedColumn]
	canWrite            bool
	closed              bool
}

var _ frm.FrameColumnPool = (*ContinuousFileColumnPool)(nil)

func NewContinuousFileColumnPool(f ff.FilesFacade, fileOpts ff.FileOpts,
	keyAppendPageSize, valueAppendPageSize int64,
) *ContinuousFileColumnPool {
	p := &ContinuousFileColumnPool{
		ff:                  f,
		fileOpts:            fileOpts,
		keyAppendPageSize:   keyAppendPageSize,
		valueAppendPageSize: valueAppendPageSize,
	}
	p.columnTypePool = &columnTypePool{pool: p}
	p.fixColumns = newArena[*FixColumn](p, shapeFix)
	p.varColumns = newArena[*VarColumn](p, shapeVar)
	p.indexedColumns = newArena[*IndexedColumn](p, shapeIndexed)
	return p
}

// NewPoolFromConfig builds a pool with the file options and index page sizes
// of cfg.
func NewPoolFromConfig(f ff.FilesFacade, cfg *utils.FrameConfig) *ContinuousFileColumnPool {
	return NewContinuousFileColumnPool(f, cfg.FileOpts, cfg.KeyAppendPageSize, cfg.ValueAppendPageSize)
}

// Close stops recycling. Handles already handed out stay usable and are
// discarded when they are closed.
func (p *ContinuousFileColumnPool) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.fixColumns.drop()
	p.varColumns.drop()
	p.indexedColumns.drop()
	log.Debug("frame column pool closed")
	return nil
}

func (p *ContinuousFileColumnPool) IsClosed() bool {
	return p.closed
}

func (p *ContinuousFileColumnPool) PoolRO(_ io.ColumnType) frm.FrameColumnTypePool {
	p.canWrite = false
	return p.columnTypePool
}

func (p *ContinuousFileColumnPool) PoolRW(_ io.ColumnType) frm.FrameColumnTypePool {
	p.canWrite = true
	return p.columnTypePool
}

type columnTypePool struct {
	pool *ContinuousFileColumnPool
}

func (tp *columnTypePool) Create(partitionPath, columnName string, columnTxn int64, columnType io.ColumnType,
	indexBlockCapacity int, columnTop int64, columnIndex int,
) (frm.FrameColumn, error) {
	p := tp.pool
	presence := frm.DecodeColumnTop(columnTop)
	isIndexed := indexBlockCapacity > 0

	switch columnType {
	case io.SYMBOL:
		if p.canWrite && isIndexed {
			col := p.indexedColumns.get(p.newIndexedColumn)
			err := col.OfRW(partitionPath, columnName, columnTxn, columnType, indexBlockCapacity, presence, columnIndex)
			if err != nil {
				_ = col.Close()
				return nil, err
			}
			return col, nil
		}
		return tp.createFix(partitionPath, columnName, columnTxn, columnType, presence, columnIndex)

	case io.STRING, io.BINARY:
		col := p.varColumns.get(p.newVarColumn)
		var err error
		if p.canWrite {
			err = col.OfRW(partitionPath, columnName, columnTxn, columnType, presence, columnIndex)
		} else {
			err = col.OfRO(partitionPath, columnName, columnTxn, columnType, presence, columnIndex)
		}
		if err != nil {
			_ = col.Close()
			return nil, err
		}
		return col, nil

	default:
		return tp.createFix(partitionPath, columnName, columnTxn, columnType, presence, columnIndex)
	}
}

func (tp *columnTypePool) createFix(partitionPath, columnName string, columnTxn int64, columnType io.ColumnType,
	presence frm.Presence, columnIndex int,
) (frm.FrameColumn, error) {
	p := tp.pool
	col := p.fixColumns.get(p.newFixColumn)
	var err error
	if p.canWrite {
		err = col.OfRW(partitionPath, columnName, columnTxn, columnType, presence, columnIndex)
	} else {
		err = col.OfRO(partitionPath, columnName, columnTxn, columnType, presence, columnIndex)
	}
	if err != nil {
		_ = col.Close()
		return nil, err
	}
	return col, nil
}

func (p *ContinuousFileColumnPool) newFixColumn() *FixColumn {
	log.Debug("new fix frame column")
	return NewFixColumn(p.ff, p.fileOpts)
}

func (p *ContinuousFileColumnPool) newVarColumn() *VarColumn {
	log.Debug("new var frame column")
	return NewVarColumn(p.ff, p.fileOpts)
}

func (p *ContinuousFileColumnPool) newIndexedColumn() *IndexedColumn {
	log.Debug("new indexed frame column")
	return NewIndexedColumn(p.ff, p.fileOpts, p.keyAppendPageSize, p.valueAppendPageSize)
}
