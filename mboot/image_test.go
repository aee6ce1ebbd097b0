package mboot

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMergeImages(t *testing.T) {
	tests := []struct {
		name      string
		primary   []byte
		secondary []byte
		want      []byte
	}{
		{
			name:      "secondary longer than primary",
			primary:   []byte{1, 2, 3},
			secondary: []byte{9, 9, 9, 4, 5},
			want:      []byte{1, 2, 3, 4, 5},
		},
		{
			name:      "secondary shorter than primary",
			primary:   []byte{1, 2, 3, 4},
			secondary: []byte{9, 9},
			want:      []byte{1, 2, 3, 4},
		},
		{
			name:      "equal lengths",
			primary:   []byte{1, 2},
			secondary: []byte{9, 9},
			want:      []byte{1, 2},
		},
		{
			name:      "empty primary",
			primary:   nil,
			secondary: []byte{7, 8},
			want:      []byte{7, 8},
		},
		{
			name:      "empty secondary",
			primary:   []byte{1},
			secondary: nil,
			want:      []byte{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeImages(tt.primary, tt.secondary)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("MergeImages() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPadImageZeroExtends(t *testing.T) {
	src := make([]byte, 64)
	out, err := PadImage(src, GatewareRegion)
	if err != nil {
		t.Fatalf("pad failed: %v", err)
	}
	if len(out) != GatewareRegion {
		t.Fatalf("length = %d, want %d", len(out), GatewareRegion)
	}
	if !bytes.Equal(out[:64], src) {
		t.Error("head of padded image differs from source")
	}
	for i, b := range out[64:] {
		if b != 0 {
			t.Fatalf("byte %d = %#x, want 0", 64+i, b)
		}
	}
}

func TestPadImageTruncates(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5}
	out, err := PadImage(src, 3)

	var te *TruncationError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *TruncationError", err)
	}
	if te.Length != 5 || te.Target != 3 {
		t.Errorf("TruncationError = %+v, want {Length:5 Target:3}", te)
	}
	if !bytes.Equal(out, []byte{1, 2, 3}) {
		t.Errorf("truncated result = %v, want [1 2 3]", out)
	}
}

func TestComposeRoundTrip(t *testing.T) {
	offsets := []uint32{160, 160, 157696, 262144, 294912}
	gateware := bytes.Repeat([]byte{0xAA}, 512)
	firmware := append(make([]byte, 512), bytes.Repeat([]byte{0x55}, 256)...)

	plain, multi, err := Compose(gateware, firmware, offsets, GatewareRegion)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	if len(plain) != GatewareRegion || len(multi) != GatewareRegion {
		t.Fatalf("artifact lengths = %d, %d, want %d", len(plain), len(multi), GatewareRegion)
	}

	// Re-parsing the head of the multiboot artifact recovers the slots.
	got, err := DecodeBootHeaders(multi[:HeaderSize])
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	for i, want := range offsets {
		if got[i] != want {
			t.Errorf("slot %d offset = %d, want %d", i, got[i], want)
		}
	}

	// The multiboot artifact carries the plain image after the header.
	if !bytes.Equal(multi[HeaderSize:HeaderSize+768], plain[:768]) {
		t.Error("multiboot payload differs from plain artifact")
	}
	if !bytes.Equal(plain[:512], gateware) {
		t.Error("gateware head missing from plain artifact")
	}
	if !bytes.Equal(plain[512:768], firmware[512:]) {
		t.Error("firmware tail missing from plain artifact")
	}
}

func TestComposeRejectsBadOffsets(t *testing.T) {
	_, _, err := Compose([]byte{1}, nil, []uint32{1, 2, 3, 4, 5, 6}, 64)
	var sce *SlotCountError
	if !errors.As(err, &sce) {
		t.Fatalf("error = %v, want *SlotCountError", err)
	}
}

func TestReadImage(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "img.bin")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadImage(path, 3); err != nil {
		t.Errorf("read failed: %v", err)
	}

	var ie *ImageError
	if _, err := ReadImage(path, 4); !errors.As(err, &ie) {
		t.Errorf("short image: error = %v, want *ImageError", err)
	}
	if _, err := ReadImage(filepath.Join(dir, "missing.bin"), 0); !errors.As(err, &ie) {
		t.Errorf("missing image: error = %v, want *ImageError", err)
	}
}

func TestPadFileReportsTruncation(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	if err := os.WriteFile(src, []byte{1, 2, 3, 4}, 0644); err != nil {
		t.Fatal(err)
	}

	err := PadFile(src, dst, 2)
	var te *TruncationError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *TruncationError", err)
	}

	// The artifact is still written; truncation is a signal, not a veto.
	out, rerr := os.ReadFile(dst)
	if rerr != nil {
		t.Fatal(rerr)
	}
	if !bytes.Equal(out, []byte{1, 2}) {
		t.Errorf("dst = %v, want [1 2]", out)
	}
}
