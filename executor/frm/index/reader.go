package index

import (
	"fmt"

	"github.com/alpacahq/framestore/executor/ff"
	"github.com/alpacahq/framestore/executor/frm"
	"github.com/alpacahq/framestore/utils/io"
)

// Reader gives read access to a committed symbol index.
type Reader struct {
	ff      ff.FilesFacade
	keyFd   int
	valueFd int
	hdr     keyHeader
	keys    []keyEntry
}

// OpenReader opens an index for reading. It returns ErrNoIndex when the key
// file does not exist, which happens for partitions written before the
// column was indexed.
func OpenReader(f ff.FilesFacade, keyPath, valuePath string) (*Reader, error) {
	if !f.Exists(keyPath) {
		return nil, fmt.Errorf("%s: %w", keyPath, ErrNoIndex)
	}
	keyFd, err := f.OpenRO(keyPath)
	if err != nil {
		return nil, frm.Critical(err, "could not open index key file", frm.D("path", keyPath))
	}
	valueFd, err := f.OpenRO(valuePath)
	if err != nil {
		_ = f.Close(keyFd)
		return nil, frm.Critical(err, "could not open index value file", frm.D("path", valuePath))
	}
	r := &Reader{ff: f, keyFd: keyFd, valueFd: valueFd}
	if err := r.load(keyPath); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) load(keyPath string) error {
	raw := make([]byte, KeyHeaderSize)
	if n, err := r.ff.ReadAt(r.keyFd, raw, 0); err != nil || n != len(raw) {
		if err != nil {
			return frm.Critical(err, "could not read index header", frm.D("path", keyPath))
		}
		return fmt.Errorf("%s: %w: short header", keyPath, ErrInconsistent)
	}
	hdr, err := decodeHeader(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", keyPath, err)
	}
	entries := make([]byte, hdr.keyCount*KeyEntrySize)
	if n, err := r.ff.ReadAt(r.keyFd, entries, KeyHeaderSize); err != nil || n != len(entries) {
		if err != nil {
			return frm.Critical(err, "could not read index keys", frm.D("path", keyPath))
		}
		return fmt.Errorf("%s: %w: short key entries", keyPath, ErrInconsistent)
	}
	if r.keys, err = decodeEntries(entries, hdr.keyCount); err != nil {
		return fmt.Errorf("%s: %w", keyPath, err)
	}
	r.hdr = hdr
	return nil
}

func (r *Reader) KeyCount() int64 {
	return int64(len(r.keys))
}

// MaxValue is the highest indexed row id, -1 when nothing is indexed.
func (r *Reader) MaxValue() int64 {
	return r.hdr.maxValue
}

func (r *Reader) BlockValueCount() int64 {
	return r.hdr.blockValueCount
}

// ValueCount is the number of rows holding key.
func (r *Reader) ValueCount(key int64) int64 {
	if key < 0 || key >= int64(len(r.keys)) {
		return 0
	}
	return r.keys[key].valueCount
}

// Values returns the ascending row ids holding key.
func (r *Reader) Values(key int64) ([]int64, error) {
	if key < 0 || key >= int64(len(r.keys)) {
		return nil, nil
	}
	e := r.keys[key]
	bvc := r.hdr.blockValueCount
	out := make([]int64, 0, e.valueCount)
	block := make([]byte, blockSize(bvc))
	blockOff := e.firstBlock
	for remaining := e.valueCount; remaining > 0; {
		n, err := r.ff.ReadAt(r.valueFd, block, blockOff)
		if err != nil || int64(n) != int64(len(block)) {
			return nil, frm.Critical(err, "could not read index value block",
				frm.D("fd", r.valueFd), frm.D("offset", blockOff), frm.D("read", n))
		}
		take := bvc
		if remaining < take {
			take = remaining
		}
		out = append(out, io.Int64Slice(block[:take*8])...)
		remaining -= take
		blockOff = io.ToInt64(block[bvc*8+8:])
	}
	return out, nil
}

func (r *Reader) Close() error {
	var err error
	if r.keyFd >= 0 {
		err = r.ff.Close(r.keyFd)
		r.keyFd = -1
	}
	if r.valueFd >= 0 {
		if cerr := r.ff.Close(r.valueFd); cerr != nil && err == nil {
			err = cerr
		}
		r.valueFd = -1
	}
	return err
}
