package mboot

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeBootHeadersReplicatesFirstOffset(t *testing.T) {
	header, err := EncodeBootHeaders([]uint32{160})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if len(header) != HeaderSize {
		t.Fatalf("header length = %d, want %d", len(header), HeaderSize)
	}

	first := header[:RecordSize]
	for i := 1; i < NumSlots; i++ {
		rec := header[i*RecordSize : (i+1)*RecordSize]
		if !bytes.Equal(rec, first) {
			t.Errorf("record %d differs from record 0", i)
		}
	}
	if got, want := first[9:12], []byte{0x00, 0x00, 0xA0}; !bytes.Equal(got, want) {
		t.Errorf("boot address bytes = % X, want % X", got, want)
	}
}

func TestEncodeBootHeadersAddresses(t *testing.T) {
	header, err := EncodeBootHeaders([]uint32{160, 160, 157696, 262144, 294912})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	wantAddr := [][]byte{
		{0x00, 0x00, 0xA0},
		{0x00, 0x00, 0xA0},
		{0x02, 0x68, 0x00},
		{0x04, 0x00, 0x00},
		{0x04, 0x80, 0x00},
	}
	for i, want := range wantAddr {
		rec := header[i*RecordSize : (i+1)*RecordSize]
		if !bytes.Equal(rec[9:12], want) {
			t.Errorf("record %d boot address = % X, want % X", i+1, rec[9:12], want)
		}
	}
}

func TestEncodeBootHeadersRecordLayout(t *testing.T) {
	header, err := EncodeBootHeaders([]uint32{0x123456})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	rec := header[:RecordSize]
	want := []byte{
		0x7E, 0xAA, 0x99, 0x7E, // sync
		0x92, 0x00, 0x00, // boot mode
		0x44, 0x03, 0x12, 0x34, 0x56, // boot address
		0x82, 0x00, 0x00, // bank offset
		0x01, 0x08, // reboot
	}
	want = append(want, make([]byte, RecordSize-len(want))...)
	if !bytes.Equal(rec, want) {
		t.Errorf("record = % X\nwant     % X", rec, want)
	}
}

func TestEncodeBootHeadersErrors(t *testing.T) {
	if _, err := EncodeBootHeaders(nil); !errors.Is(err, ErrNoOffsets) {
		t.Errorf("nil offsets: error = %v, want %v", err, ErrNoOffsets)
	}

	var sce *SlotCountError
	if _, err := EncodeBootHeaders([]uint32{1, 2, 3, 4, 5, 6}); !errors.As(err, &sce) {
		t.Errorf("six offsets: error = %v, want *SlotCountError", err)
	} else if sce.Count != 6 {
		t.Errorf("six offsets: Count = %d, want 6", sce.Count)
	}

	var ore *OffsetRangeError
	if _, err := EncodeBootHeaders([]uint32{1 << 24}); !errors.As(err, &ore) {
		t.Errorf("large offset: error = %v, want *OffsetRangeError", err)
	} else if ore.Slot != 0 || ore.Offset != 1<<24 {
		t.Errorf("large offset: Slot = %d, Offset = %#x, want 0, 0x1000000", ore.Slot, ore.Offset)
	}
}

func TestDecodeBootHeadersRoundTrip(t *testing.T) {
	offsets := []uint32{160, 160, 157696, 262144, 294912}
	header, err := EncodeBootHeaders(offsets)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	got, err := DecodeBootHeaders(header)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	for i, want := range offsets {
		if got[i] != want {
			t.Errorf("slot %d offset = %d, want %d", i, got[i], want)
		}
	}
}

func TestDecodeBootHeadersRejectsCorruption(t *testing.T) {
	header, err := EncodeBootHeaders([]uint32{160})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	header[RecordSize] ^= 0xFF // sync byte of record 2
	_, err = DecodeBootHeaders(header)
	var re *RecordError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v, want *RecordError", err)
	}
	if re.Offset != RecordSize {
		t.Errorf("Offset = %d, want %d", re.Offset, RecordSize)
	}

	if _, err := DecodeBootHeaders(header[:HeaderSize-1]); err == nil {
		t.Error("expected error for short header")
	}
}
