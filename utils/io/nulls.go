package io

import (
	"fmt"
	"math"
)

const (
	NullInt  = math.MinInt32
	NullLong = math.MinInt64

	// VarNullLength is the length header of a null variable-length value.
	VarNullLength = -1
)

// NullPattern returns one element worth of the designated null
// representation of t.
func NullPattern(t ColumnType) []byte {
	b := make([]byte, t.Size())
	switch t {
	case BOOLEAN, BYTE, SHORT, CHAR:
		// zero
	case INT, SYMBOL:
		PutInt32(b, NullInt)
	case FLOAT:
		PutInt32(b, int32(math.Float32bits(float32(math.NaN()))))
	case LONG, DATE, TIMESTAMP:
		PutInt64(b, NullLong)
	case DOUBLE:
		PutInt64(b, int64(math.Float64bits(math.NaN())))
	case LONG256, UUID:
		for off := 0; off < len(b); off += 8 {
			PutInt64(b[off:], NullLong)
		}
	case STRING, BINARY:
		// offsets have no null of their own, the payload header carries it
	}
	return b
}

// SetNull fills count elements of dst with the null pattern of t.
func SetNull(t ColumnType, dst []byte, count int64) error {
	if t.IsVarSize() || !t.IsValid() {
		return fmt.Errorf("set null: %s is not a fixed-width type", t)
	}
	size := int64(t.Size())
	if int64(len(dst)) < count*size {
		return fmt.Errorf("set null: buffer of %d bytes is short for %d %s values", len(dst), count, t)
	}
	pattern := NullPattern(t)
	if count == 0 {
		return nil
	}
	// seed one element then double the filled prefix
	filled := int64(copy(dst, pattern))
	total := count * size
	for filled < total {
		filled += int64(copy(dst[filled:total], dst[:filled]))
	}
	return nil
}

// IsNull reports whether the element at the head of b is null for t.
func IsNull(t ColumnType, b []byte) bool {
	switch t {
	case BOOLEAN, BYTE:
		return b[0] == 0
	case SHORT, CHAR:
		return ToInt16(b) == 0
	case INT, SYMBOL:
		return ToInt32(b) == NullInt
	case FLOAT:
		return math.IsNaN(float64(ToFloat32(b)))
	case LONG, DATE, TIMESTAMP:
		return ToInt64(b) == NullLong
	case DOUBLE:
		return math.IsNaN(ToFloat64(b))
	case LONG256, UUID:
		for off := 0; off < t.Size(); off += 8 {
			if ToInt64(b[off:]) != NullLong {
				return false
			}
		}
		return true
	}
	return false
}

// VarHeaderSize is the width of the length header in front of every
// variable-length payload.
func VarHeaderSize(t ColumnType) int64 {
	switch t {
	case STRING:
		return 4
	case BINARY:
		return 8
	}
	return 0
}

// PutVarHeader writes a payload length header, VarNullLength for null.
func PutVarHeader(t ColumnType, b []byte, length int64) {
	if t == STRING {
		PutInt32(b, int32(length))
		return
	}
	PutInt64(b, length)
}

func VarHeader(t ColumnType, b []byte) int64 {
	if t == STRING {
		return int64(ToInt32(b))
	}
	return ToInt64(b)
}

// SetVarNulls fills dst with count null headers of t.
func SetVarNulls(t ColumnType, dst []byte, count int64) error {
	hdr := VarHeaderSize(t)
	if hdr == 0 {
		return fmt.Errorf("set var nulls: %s is not a variable-length type", t)
	}
	if int64(len(dst)) < count*hdr {
		return fmt.Errorf("set var nulls: buffer of %d bytes is short for %d %s values", len(dst), count, t)
	}
	for i := int64(0); i < count; i++ {
		PutVarHeader(t, dst[i*hdr:], VarNullLength)
	}
	return nil
}

// AppendVarValue appends the stored form of value to buf. A nil value is
// stored as a null header.
func AppendVarValue(t ColumnType, buf, value []byte) []byte {
	hdr := VarHeaderSize(t)
	start := len(buf)
	buf = append(buf, make([]byte, hdr)...)
	if value == nil {
		PutVarHeader(t, buf[start:], VarNullLength)
		return buf
	}
	PutVarHeader(t, buf[start:], int64(len(value)))
	return append(buf, value...)
}
