package mboot

import (
	"errors"
	"fmt"
)

// ErrNoOffsets is returned when a multiboot header is requested with an
// empty offset list; at least one offset is needed to fill the slots.
var ErrNoOffsets = errors.New("mboot: no boot offsets supplied")

// SlotCountError indicates that more boot offsets were supplied than the
// header has slots for. Excess offsets are never silently dropped.
type SlotCountError struct {
	Count int
}

func (e *SlotCountError) Error() string {
	return fmt.Sprintf("mboot: %d boot offsets supplied, header has only %d slots", e.Count, NumSlots)
}

// OffsetRangeError indicates a boot offset that does not fit the 24-bit
// boot address field.
type OffsetRangeError struct {
	Slot   int
	Offset uint32
}

func (e *OffsetRangeError) Error() string {
	return fmt.Sprintf("mboot: slot %d offset 0x%X exceeds 24-bit boot address range", e.Slot, e.Offset)
}

// RecordError indicates a malformed byte at a given offset while decoding
// a multiboot header.
type RecordError struct {
	Offset int
	Reason string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("mboot: %s at header offset %d", e.Reason, e.Offset)
}

// TruncationError reports that padding an image to its target length
// dropped trailing data. The truncated result is still returned alongside
// the error so the caller can decide whether the loss is acceptable.
type TruncationError struct {
	Length int
	Target int
}

func (e *TruncationError) Error() string {
	return fmt.Sprintf("mboot: image of %d bytes truncated to %d bytes", e.Length, e.Target)
}

// ImageError indicates a required input image that is missing or shorter
// than expected.
type ImageError struct {
	Path   string
	Length int
	Min    int
	Err    error
}

func (e *ImageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mboot: image %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("mboot: image %s is %d bytes, need at least %d", e.Path, e.Length, e.Min)
}

func (e *ImageError) Unwrap() error { return e.Err }
