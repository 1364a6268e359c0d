package frm

import "fmt"

// Presence is the decoded form of the signed column top found in partition
// metadata.
//
// A non-negative raw top means the column file exists and its first Top rows
// were never stored. A negative raw top means the column does not exist in
// the partition at all: -raw rows must read as nulls, and a writer has to
// create the file.
type Presence struct {
	Absent bool
	Top    int64
}

// DecodeColumnTop converts a raw metadata column top into a Presence.
func DecodeColumnTop(raw int64) Presence {
	if raw < 0 {
		return Presence{Absent: true, Top: -raw}
	}
	return Presence{Top: raw}
}

// Present is a Presence for an existing column file.
func Present(top int64) Presence {
	return Presence{Top: top}
}

// Absent is a Presence for a column missing from the partition.
func Absent(rows int64) Presence {
	return Presence{Absent: true, Top: rows}
}

// Encode returns the raw metadata form.
func (p Presence) Encode() int64 {
	if p.Absent {
		return -p.Top
	}
	return p.Top
}

func (p Presence) String() string {
	if p.Absent {
		return fmt.Sprintf("absent(%d)", p.Top)
	}
	return fmt.Sprintf("present(top=%d)", p.Top)
}
