package index

import (
	"fmt"

	"github.com/alpacahq/framestore/executor/ff"
	"github.com/alpacahq/framestore/executor/frm"
	"github.com/alpacahq/framestore/metrics"
	"github.com/alpacahq/framestore/utils/io"
	"github.com/alpacahq/framestore/utils/log"
)

// tailBlock caches the last value block of a key between commits.
type tailBlock struct {
	offset int64
	values []byte
	lo, hi int64 // dirty byte range within values
}

// Writer appends row ids to a symbol index. It is not safe for concurrent use.
type Writer struct {
	ff              ff.FilesFacade
	keyFd           int
	valueFd         int
	keyPageSize     int64
	valuePageSize   int64
	keyFileLen      int64
	valueFileLen    int64
	blockValueCount int64
	hdr             keyHeader
	keys            []keyEntry
	dirty           map[int64]struct{}
	tails           map[int64]*tailBlock
	created         bool
}

// OpenWriter opens or creates the key and value files of an index. A new
// index gets blocks of BlockValueCount(indexBlockCapacity) row ids; an
// existing one keeps the block size it was created with.
func OpenWriter(f ff.FilesFacade, keyPath, valuePath string, opts ff.FileOpts,
	indexBlockCapacity int, keyPageSize, valuePageSize int64,
) (*Writer, error) {
	if indexBlockCapacity <= 0 {
		return nil, frm.PreconditionError(fmt.Sprintf("indexBlockCapacity=%d", indexBlockCapacity))
	}
	keyFd, err := f.OpenRW(keyPath, opts)
	if err != nil {
		return nil, frm.Critical(err, "could not open index key file", frm.D("path", keyPath))
	}
	valueFd, err := f.OpenRW(valuePath, opts)
	if err != nil {
		_ = f.Close(keyFd)
		return nil, frm.Critical(err, "could not open index value file", frm.D("path", valuePath))
	}
	w := &Writer{
		ff:            f,
		keyFd:         keyFd,
		valueFd:       valueFd,
		keyPageSize:   maxInt64(keyPageSize, 1),
		valuePageSize: maxInt64(valuePageSize, 1),
		dirty:         make(map[int64]struct{}),
		tails:         make(map[int64]*tailBlock),
	}
	if err := w.load(indexBlockCapacity, keyPath); err != nil {
		_ = f.Close(keyFd)
		_ = f.Close(valueFd)
		return nil, err
	}
	return w, nil
}

func (w *Writer) load(indexBlockCapacity int, keyPath string) error {
	keyLen, err := w.ff.Length(w.keyFd)
	if err != nil {
		return frm.Critical(err, "could not get index key file size", frm.D("fd", w.keyFd))
	}
	valueLen, err := w.ff.Length(w.valueFd)
	if err != nil {
		return frm.Critical(err, "could not get index value file size", frm.D("fd", w.valueFd))
	}

	if keyLen < KeyHeaderSize {
		w.created = true
		w.blockValueCount = BlockValueCount(indexBlockCapacity)
		w.hdr = keyHeader{blockValueCount: w.blockValueCount, maxValue: -1}
		if err := w.ff.Truncate(w.valueFd, 0); err != nil {
			return frm.Critical(err, "could not reset index value file", frm.D("fd", w.valueFd))
		}
		w.valueFileLen = 0
		if err := w.ensure(w.keyFd, &w.keyFileLen, KeyHeaderSize, w.keyPageSize); err != nil {
			return err
		}
		return w.writeHeader()
	}

	raw := make([]byte, KeyHeaderSize)
	if err := w.read(w.keyFd, raw, 0); err != nil {
		return err
	}
	hdr, err := decodeHeader(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", keyPath, err)
	}
	if hdr.blockValueCount != BlockValueCount(indexBlockCapacity) {
		log.Warn("index %s keeps block value count %d, requested %d",
			keyPath, hdr.blockValueCount, BlockValueCount(indexBlockCapacity))
	}
	if KeyHeaderSize+hdr.keyCount*KeyEntrySize > keyLen || hdr.valueMemSize > valueLen {
		return fmt.Errorf("%s: %w: files are shorter than the header claims", keyPath, ErrInconsistent)
	}
	entries := make([]byte, hdr.keyCount*KeyEntrySize)
	if err := w.read(w.keyFd, entries, KeyHeaderSize); err != nil {
		return err
	}
	if w.keys, err = decodeEntries(entries, hdr.keyCount); err != nil {
		return fmt.Errorf("%s: %w", keyPath, err)
	}
	w.hdr = hdr
	w.blockValueCount = hdr.blockValueCount
	w.keyFileLen = keyLen
	w.valueFileLen = valueLen
	return nil
}

// Created reports whether OpenWriter initialized a new index.
func (w *Writer) Created() bool {
	return w.created
}

func (w *Writer) KeyCount() int64 {
	return int64(len(w.keys))
}

func (w *Writer) MaxValue() int64 {
	return w.hdr.maxValue
}

func (w *Writer) BlockValueCount() int64 {
	return w.blockValueCount
}

func (w *Writer) KeyFd() int {
	return w.keyFd
}

func (w *Writer) ValueFd() int {
	return w.valueFd
}

// Add records that row value holds key. Values must arrive in ascending order.
func (w *Writer) Add(key, value int64) error {
	if key < 0 || value < 0 {
		return frm.PreconditionError(fmt.Sprintf("index add key=%d value=%d", key, value))
	}
	if value < w.hdr.maxValue {
		return frm.PreconditionError(fmt.Sprintf("index value %d is below max value %d", value, w.hdr.maxValue))
	}
	for int64(len(w.keys)) <= key {
		w.keys = append(w.keys, keyEntry{})
		w.dirty[int64(len(w.keys)-1)] = struct{}{}
	}
	e := &w.keys[key]
	cell := e.valueCount & (w.blockValueCount - 1)

	var tail *tailBlock
	switch {
	case e.valueCount == 0:
		off, err := w.allocBlock(0)
		if err != nil {
			return err
		}
		e.firstBlock, e.lastBlock = off, off
		tail = w.newTail(key, off)
	case cell == 0:
		off, err := w.allocBlock(e.lastBlock)
		if err != nil {
			return err
		}
		if err := w.writeInt64(w.valueFd, e.lastBlock+w.blockValueCount*8+8, off); err != nil {
			return err
		}
		if err := w.flushTail(key); err != nil {
			return err
		}
		e.lastBlock = off
		tail = w.newTail(key, off)
	default:
		var err error
		if tail, err = w.loadTail(key, e.lastBlock); err != nil {
			return err
		}
	}

	pos := cell * 8
	io.PutInt64(tail.values[pos:], value)
	if tail.lo > pos {
		tail.lo = pos
	}
	if tail.hi < pos+8 {
		tail.hi = pos + 8
	}
	e.valueCount++
	w.hdr.maxValue = value
	w.dirty[key] = struct{}{}
	metrics.IndexValuesTotal.Inc()
	return nil
}

// RollbackValues drops every row id greater than maxValue.
func (w *Writer) RollbackValues(maxValue int64) error {
	if maxValue >= w.hdr.maxValue {
		return nil
	}
	if err := w.flushTails(); err != nil {
		return err
	}
	w.tails = make(map[int64]*tailBlock)

	newMax := int64(-1)
	block := make([]byte, w.blockValueCount*8)
	for k := range w.keys {
		e := &w.keys[k]
		remaining := e.valueCount
		blockOff := e.lastBlock
		var last int64 = -1
		for remaining > 0 {
			inBlock := valuesInTail(remaining, w.blockValueCount)
			if err := w.read(w.valueFd, block[:inBlock*8], blockOff); err != nil {
				return err
			}
			keep := inBlock
			for keep > 0 && io.ToInt64(block[(keep-1)*8:]) > maxValue {
				keep--
			}
			if keep > 0 {
				remaining -= inBlock - keep
				last = io.ToInt64(block[(keep-1)*8:])
				break
			}
			remaining -= inBlock
			if remaining == 0 {
				break
			}
			prev, err := w.readInt64(w.valueFd, blockOff+w.blockValueCount*8)
			if err != nil {
				return err
			}
			blockOff = prev
		}
		if remaining != e.valueCount {
			e.valueCount = remaining
			e.lastBlock = blockOff
			if remaining == 0 {
				e.firstBlock, e.lastBlock = 0, 0
			}
			w.dirty[int64(k)] = struct{}{}
		}
		if last > newMax {
			newMax = last
		}
	}
	w.hdr.maxValue = newMax
	return nil
}

// Reset drops every key and value, leaving an empty committed index.
func (w *Writer) Reset() error {
	if err := w.ff.Truncate(w.keyFd, 0); err != nil {
		return frm.Critical(err, "could not reset index key file", frm.D("fd", w.keyFd))
	}
	if err := w.ff.Truncate(w.valueFd, 0); err != nil {
		return frm.Critical(err, "could not reset index value file", frm.D("fd", w.valueFd))
	}
	w.keyFileLen, w.valueFileLen = 0, 0
	w.keys = nil
	w.dirty = make(map[int64]struct{})
	w.tails = make(map[int64]*tailBlock)
	w.hdr = keyHeader{blockValueCount: w.blockValueCount, maxValue: -1}
	if err := w.ensure(w.keyFd, &w.keyFileLen, KeyHeaderSize, w.keyPageSize); err != nil {
		return err
	}
	return w.writeHeader()
}

// Commit makes everything added so far visible to readers.
func (w *Writer) Commit() error {
	if err := w.flushTails(); err != nil {
		return err
	}
	keyCount := int64(len(w.keys))
	if err := w.ensure(w.keyFd, &w.keyFileLen, KeyHeaderSize+keyCount*KeyEntrySize, w.keyPageSize); err != nil {
		return err
	}
	w.hdr.sequence++
	w.hdr.keyCount = keyCount
	w.hdr.blockValueCount = w.blockValueCount
	if err := w.writeHeader(); err != nil {
		return err
	}
	raw := make([]byte, KeyEntrySize)
	for k := range w.dirty {
		w.keys[k].encode(raw)
		if err := w.write(w.keyFd, raw, KeyHeaderSize+k*KeyEntrySize); err != nil {
			return err
		}
	}
	w.dirty = make(map[int64]struct{})
	w.hdr.sequenceCheck = w.hdr.sequence
	return w.writeInt64(w.keyFd, hdrSequenceCheck, w.hdr.sequenceCheck)
}

// Close commits and releases both descriptors.
func (w *Writer) Close() error {
	if w.keyFd < 0 {
		return nil
	}
	err := w.Commit()
	if cerr := w.closeFds(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Abort releases both descriptors without committing. Readers and the next
// writer see the index as of the last Commit.
func (w *Writer) Abort() error {
	if w.keyFd < 0 {
		return nil
	}
	return w.closeFds()
}

func (w *Writer) closeFds() error {
	var err error
	if cerr := w.ff.Close(w.keyFd); cerr != nil {
		err = frm.Critical(cerr, "could not close index key file", frm.D("fd", w.keyFd))
	}
	if cerr := w.ff.Close(w.valueFd); cerr != nil && err == nil {
		err = frm.Critical(cerr, "could not close index value file", frm.D("fd", w.valueFd))
	}
	w.keyFd, w.valueFd = -1, -1
	w.dirty = make(map[int64]struct{})
	w.tails = make(map[int64]*tailBlock)
	return err
}

func (w *Writer) writeHeader() error {
	// sequenceCheck is only brought level with sequence after the entries
	hdr := w.hdr
	hdr.sequenceCheck = w.hdr.sequence - 1
	if w.hdr.sequence == 0 {
		hdr.sequenceCheck = 0
	}
	return w.write(w.keyFd, hdr.encode(), 0)
}

func (w *Writer) allocBlock(prev int64) (int64, error) {
	off := w.hdr.valueMemSize
	w.hdr.valueMemSize += blockSize(w.blockValueCount)
	if err := w.ensure(w.valueFd, &w.valueFileLen, w.hdr.valueMemSize, w.valuePageSize); err != nil {
		return 0, err
	}
	link := io.AppendInt64(nil, prev, 0)
	if err := w.write(w.valueFd, link, off+w.blockValueCount*8); err != nil {
		return 0, err
	}
	return off, nil
}

func (w *Writer) newTail(key, offset int64) *tailBlock {
	t := &tailBlock{offset: offset, values: make([]byte, w.blockValueCount*8)}
	t.lo = int64(len(t.values))
	w.tails[key] = t
	return t
}

func (w *Writer) loadTail(key, offset int64) (*tailBlock, error) {
	if t, ok := w.tails[key]; ok {
		if t.offset == offset {
			return t, nil
		}
		if err := w.flushTail(key); err != nil {
			return nil, err
		}
	}
	t := w.newTail(key, offset)
	if err := w.read(w.valueFd, t.values, offset); err != nil {
		delete(w.tails, key)
		return nil, err
	}
	return t, nil
}

func (w *Writer) flushTail(key int64) error {
	t, ok := w.tails[key]
	if !ok {
		return nil
	}
	delete(w.tails, key)
	if t.hi <= t.lo {
		return nil
	}
	return w.write(w.valueFd, t.values[t.lo:t.hi], t.offset+t.lo)
}

func (w *Writer) flushTails() error {
	for _, t := range w.tails {
		if t.hi > t.lo {
			if err := w.write(w.valueFd, t.values[t.lo:t.hi], t.offset+t.lo); err != nil {
				return err
			}
		}
		t.lo, t.hi = int64(len(t.values)), 0
	}
	return nil
}

// ensure grows a file in page sized steps so it is at least size bytes.
func (w *Writer) ensure(fd int, fileLen *int64, size, pageSize int64) error {
	if size <= *fileLen {
		return nil
	}
	newLen := (size + pageSize - 1) / pageSize * pageSize
	if err := w.ff.Truncate(fd, newLen); err != nil {
		return frm.Critical(err, "could not extend index file", frm.D("fd", fd), frm.D("size", newLen))
	}
	*fileLen = newLen
	return nil
}

func (w *Writer) read(fd int, b []byte, offset int64) error {
	n, err := w.ff.ReadAt(fd, b, offset)
	if err != nil || n != len(b) {
		return frm.Critical(err, "could not read index file",
			frm.D("fd", fd), frm.D("offset", offset), frm.D("size", len(b)), frm.D("read", n))
	}
	return nil
}

func (w *Writer) write(fd int, b []byte, offset int64) error {
	n, err := w.ff.WriteAt(fd, b, offset)
	if err != nil || n != len(b) {
		return frm.Critical(err, "could not write index file",
			frm.D("fd", fd), frm.D("offset", offset), frm.D("size", len(b)), frm.D("written", n))
	}
	return nil
}

func (w *Writer) readInt64(fd int, offset int64) (int64, error) {
	var b [8]byte
	if err := w.read(fd, b[:], offset); err != nil {
		return 0, err
	}
	return io.ToInt64(b[:]), nil
}

func (w *Writer) writeInt64(fd int, offset, v int64) error {
	var b [8]byte
	io.PutInt64(b[:], v)
	return w.write(fd, b[:], offset)
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
