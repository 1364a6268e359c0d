// Package index implements the block-structured inverted index of symbol
// columns.
//
// The key file starts with a fixed header followed by one entry per key:
//
//	header (KeyHeaderSize bytes)
//	  0  signature       byte
//	  8  sequence        int64
//	  16 valueMemSize    int64   used bytes of the value file
//	  24 blockValueCount int64   row ids per value block, a power of two
//	  32 keyCount        int64
//	  40 sequenceCheck   int64   equals sequence once a commit is complete
//	  48 maxValue        int64   highest row id indexed, -1 when empty
//	entry (KeyEntrySize bytes, at KeyHeaderSize + key*KeyEntrySize)
//	  0  valueCount      int64
//	  8  firstBlock      int64   value file offset
//	  16 lastBlock       int64
//	  24 countCheck      int64
//
// The value file is a sequence of blocks, each holding blockValueCount row
// ids followed by the offsets of the previous and next block of the same key.
// Row ids of a key are stored in ascending order.
package index

import (
	"errors"

	"github.com/alpacahq/framestore/utils/io"
)

const (
	Signature     byte  = 0xfa
	KeyHeaderSize int64 = 64
	KeyEntrySize  int64 = 32

	hdrSignature       = 0
	hdrSequence        = 8
	hdrValueMemSize    = 16
	hdrBlockValueCount = 24
	hdrKeyCount        = 32
	hdrSequenceCheck   = 40
	hdrMaxValue        = 48

	entryValueCount = 0
	entryFirstBlock = 8
	entryLastBlock  = 16
	entryCountCheck = 24

	linkSize = 16
)

var (
	// ErrNoIndex is returned when a column has no index files.
	ErrNoIndex = errors.New("symbol index does not exist")
	// ErrInconsistent is returned when a commit was torn or the files are not
	// an index.
	ErrInconsistent = errors.New("symbol index is inconsistent")
)

type keyHeader struct {
	sequence        int64
	valueMemSize    int64
	blockValueCount int64
	keyCount        int64
	sequenceCheck   int64
	maxValue        int64
}

func (h *keyHeader) encode() []byte {
	b := make([]byte, KeyHeaderSize)
	b[hdrSignature] = Signature
	io.PutInt64(b[hdrSequence:], h.sequence)
	io.PutInt64(b[hdrValueMemSize:], h.valueMemSize)
	io.PutInt64(b[hdrBlockValueCount:], h.blockValueCount)
	io.PutInt64(b[hdrKeyCount:], h.keyCount)
	io.PutInt64(b[hdrSequenceCheck:], h.sequenceCheck)
	io.PutInt64(b[hdrMaxValue:], h.maxValue)
	return b
}

func decodeHeader(b []byte) (keyHeader, error) {
	if int64(len(b)) < KeyHeaderSize || b[hdrSignature] != Signature {
		return keyHeader{}, ErrInconsistent
	}
	h := keyHeader{
		sequence:        io.ToInt64(b[hdrSequence:]),
		valueMemSize:    io.ToInt64(b[hdrValueMemSize:]),
		blockValueCount: io.ToInt64(b[hdrBlockValueCount:]),
		keyCount:        io.ToInt64(b[hdrKeyCount:]),
		sequenceCheck:   io.ToInt64(b[hdrSequenceCheck:]),
		maxValue:        io.ToInt64(b[hdrMaxValue:]),
	}
	if h.sequence != h.sequenceCheck || h.blockValueCount <= 0 ||
		h.blockValueCount&(h.blockValueCount-1) != 0 || h.keyCount < 0 {
		return keyHeader{}, ErrInconsistent
	}
	return h, nil
}

type keyEntry struct {
	valueCount int64
	firstBlock int64
	lastBlock  int64
}

func (e keyEntry) encode(b []byte) {
	io.PutInt64(b[entryValueCount:], e.valueCount)
	io.PutInt64(b[entryFirstBlock:], e.firstBlock)
	io.PutInt64(b[entryLastBlock:], e.lastBlock)
	io.PutInt64(b[entryCountCheck:], e.valueCount)
}

func decodeEntries(b []byte, keyCount int64) ([]keyEntry, error) {
	keys := make([]keyEntry, keyCount)
	for i := range keys {
		raw := b[int64(i)*KeyEntrySize:]
		keys[i] = keyEntry{
			valueCount: io.ToInt64(raw[entryValueCount:]),
			firstBlock: io.ToInt64(raw[entryFirstBlock:]),
			lastBlock:  io.ToInt64(raw[entryLastBlock:]),
		}
		if keys[i].valueCount != io.ToInt64(raw[entryCountCheck:]) || keys[i].valueCount < 0 {
			return nil, ErrInconsistent
		}
	}
	return keys, nil
}

// ToIndexKey maps a symbol code to its index key; null lives under key 0.
func ToIndexKey(code int32) int64 {
	if code == io.NullInt {
		return 0
	}
	return int64(code) + 1
}

// BlockValueCount is the number of row ids per value block for a requested
// index block capacity.
func BlockValueCount(indexBlockCapacity int) int64 {
	return io.CeilPow2(int64(indexBlockCapacity))
}

func blockSize(blockValueCount int64) int64 {
	return blockValueCount*8 + linkSize
}

// valuesInTail is the number of row ids in the last block of a key holding
// valueCount ids.
func valuesInTail(valueCount, blockValueCount int64) int64 {
	if valueCount == 0 {
		return 0
	}
	return valueCount - ((valueCount-1)/blockValueCount)*blockValueCount
}
