package catalog

import (
	"fmt"

	"github.com/alpacahq/framestore/utils/io"
)

type ColumnNotFound string

func (msg ColumnNotFound) Error() string {
	return errReport("%s: Column not found in partition", string(msg))
}

type ColumnAlreadyExists string

func (msg ColumnAlreadyExists) Error() string {
	return errReport("%s: Column is already in partition", string(msg))
}

type InvalidColumnType string

func (msg InvalidColumnType) Error() string {
	return errReport("%s: Invalid column type", string(msg))
}

type NotFoundError string

func (msg NotFoundError) Error() string {
	return errReport("%s: Path not found", string(msg))
}

func errReport(base string, msg string) string {
	base = io.GetCallerFileContext(2) + ":" + base
	return fmt.Sprintf(base, msg)
}
