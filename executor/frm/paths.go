package frm

import (
	"path/filepath"
	"strconv"
)

// ColumnNameTxnNone means the column file name carries no txn suffix.
const ColumnNameTxnNone int64 = -1

const (
	dataSuffix  = ".d"
	indexSuffix = ".i"
	keySuffix   = ".k"
	valueSuffix = ".v"
)

func columnFile(partitionPath, columnName, suffix string, columnTxn int64) string {
	name := columnName + suffix
	if columnTxn > ColumnNameTxnNone {
		name += "." + strconv.FormatInt(columnTxn, 10)
	}
	return filepath.Join(partitionPath, name)
}

// DFile is the data file: fixed-width values or variable-length payloads.
func DFile(partitionPath, columnName string, columnTxn int64) string {
	return columnFile(partitionPath, columnName, dataSuffix, columnTxn)
}

// IFile is the offsets file of a variable-length column.
func IFile(partitionPath, columnName string, columnTxn int64) string {
	return columnFile(partitionPath, columnName, indexSuffix, columnTxn)
}

// KeyFile is the key file of a symbol index.
func KeyFile(partitionPath, columnName string, columnTxn int64) string {
	return columnFile(partitionPath, columnName, keySuffix, columnTxn)
}

// ValueFile is the value file of a symbol index.
func ValueFile(partitionPath, columnName string, columnTxn int64) string {
	return columnFile(partitionPath, columnName, valueSuffix, columnTxn)
}
