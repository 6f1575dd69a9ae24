package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPartition is returned when a checkpoint names a partition outside the catalog.
	ErrUnknownPartition = errors.New("unknown partition")
	// ErrNoCheckpoint signals an empty checkpoint log.
	ErrNoCheckpoint = errors.New("no checkpoint recorded")
	// ErrPageNotArchived is returned by archives for keys never stored.
	ErrPageNotArchived = errors.New("page not archived")
)

// UpstreamError wraps network and decoding failures of the page fetcher.
type UpstreamError struct {
	Partition Partition
	Page      int
	Err       error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s page %d: %v", e.Partition, e.Page, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// MalformedRecordError reports a record missing a required nested field.
type MalformedRecordError struct {
	Index int
	Field string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("record %d: missing %s", e.Index, e.Field)
}

// StorageError wraps archive and warehouse write failures.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
