package io

import (
	"strings"
)

type EnumStorageKind int8

const (
	FIXED EnumStorageKind = iota
	VARIABLE
	NOSTORAGE
)

// ColumnType is the semantic type tag of a table column.
type ColumnType int8

/*
NOTE: The ordering of this enum must match the on-disk metadata order

Element widths are powers of two so that a row index converts to a byte offset
with a single shift. Variable-length types report the width of one entry in
their offsets file.
*/
const (
	UNDEFINED ColumnType = iota
	BOOLEAN
	BYTE
	SHORT
	CHAR
	INT
	LONG
	DATE
	TIMESTAMP
	FLOAT
	DOUBLE
	STRING
	SYMBOL
	LONG256
	BINARY
	UUID
)

var attributeMap = map[ColumnType]struct {
	name    string
	pow2    int
	storage EnumStorageKind
}{
	UNDEFINED: {"undefined", -1, NOSTORAGE},
	BOOLEAN:   {"boolean", 0, FIXED},
	BYTE:      {"byte", 0, FIXED},
	SHORT:     {"short", 1, FIXED},
	CHAR:      {"char", 1, FIXED},
	INT:       {"int", 2, FIXED},
	LONG:      {"long", 3, FIXED},
	DATE:      {"date", 3, FIXED},
	TIMESTAMP: {"timestamp", 3, FIXED},
	FLOAT:     {"float", 2, FIXED},
	DOUBLE:    {"double", 3, FIXED},
	STRING:    {"string", 3, VARIABLE},
	SYMBOL:    {"symbol", 2, FIXED},
	LONG256:   {"long256", 5, FIXED},
	BINARY:    {"binary", 3, VARIABLE},
	UUID:      {"uuid", 4, FIXED},
}

func ColumnTypeFromName(name string) ColumnType {
	// O(N)
	for key, el := range attributeMap {
		if strings.EqualFold(name, el.name) {
			return key
		}
	}
	return UNDEFINED
}

func (t ColumnType) String() string {
	if a, ok := attributeMap[t]; ok {
		return a.name
	}
	return attributeMap[UNDEFINED].name
}

// Pow2Size returns log2 of the element width in bytes, or -1 for an unknown type.
func (t ColumnType) Pow2Size() int {
	if a, ok := attributeMap[t]; ok {
		return a.pow2
	}
	return -1
}

// Size returns the element width in bytes.
func (t ColumnType) Size() int {
	shl := t.Pow2Size()
	if shl < 0 {
		return 0
	}
	return 1 << shl
}

func (t ColumnType) StorageKind() EnumStorageKind {
	if a, ok := attributeMap[t]; ok {
		return a.storage
	}
	return NOSTORAGE
}

func (t ColumnType) IsVarSize() bool {
	return t.StorageKind() == VARIABLE
}

func (t ColumnType) IsValid() bool {
	return t != UNDEFINED && t.StorageKind() != NOSTORAGE
}
