package io

import (
	"encoding/binary"
	"math"
)

// All on-disk values are little endian.

func ToInt16(b []byte) int16 {
	return int16(binary.LittleEndian.Uint16(b))
}

func ToInt32(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b))
}

func ToInt64(b []byte) int64 {
	return int64(binary.LittleEndian.Uint64(b))
}

func ToFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func ToFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func PutInt32(b []byte, v int32) {
	binary.LittleEndian.PutUint32(b, uint32(v))
}

func PutInt64(b []byte, v int64) {
	binary.LittleEndian.PutUint64(b, uint64(v))
}

// Int64Slice decodes consecutive little endian int64 values.
func Int64Slice(b []byte) []int64 {
	out := make([]int64, len(b)/8)
	for i := range out {
		out[i] = ToInt64(b[i*8:])
	}
	return out
}

// AppendInt64 encodes values onto buf.
func AppendInt64(buf []byte, values ...int64) []byte {
	var scratch [8]byte
	for _, v := range values {
		PutInt64(scratch[:], v)
		buf = append(buf, scratch[:]...)
	}
	return buf
}
