package mboot

import (
	"fmt"
	"os"
)

const (
	// GatewareRegion is the flash region reserved for one bitstream.
	// The UP5K bitstream is slightly smaller; the region is rounded up
	// to a multiple of the 4 KB erase sector.
	GatewareRegion = 0x1a000

	// FlashSize is the size of the SPI flash part on the board (8 Mb).
	FlashSize = 1 << 20
)

// MergeImages lays a primary image over the head of a secondary one. The
// result starts with every byte of primary, followed by the portion of
// secondary beyond len(primary). Bytes of secondary already covered by
// primary's length are skipped, not overlaid.
func MergeImages(primary, secondary []byte) []byte {
	out := make([]byte, 0, len(primary)+max(0, len(secondary)-len(primary)))
	out = append(out, primary...)
	if len(secondary) > len(primary) {
		out = append(out, secondary[len(primary):]...)
	}
	return out
}

// PadImage returns exactly target bytes: src zero-extended, or truncated
// when src is longer. Truncation drops data, so it is reported as a
// *TruncationError; the truncated buffer is still returned with it.
func PadImage(src []byte, target int) ([]byte, error) {
	out := make([]byte, target)
	copy(out, src)
	if len(src) > target {
		return out, &TruncationError{Length: len(src), Target: target}
	}
	return out, nil
}

// Compose builds both deployable artifacts from a gateware image and an
// optional firmware image: the plain artifact is the merged image padded
// to target, and the multiboot artifact is the same with the encoded
// header prepended before padding. A truncated artifact is returned
// together with the *TruncationError.
func Compose(gateware, firmware []byte, offsets []uint32, target int) (plain, multi []byte, err error) {
	header, err := EncodeBootHeaders(offsets)
	if err != nil {
		return nil, nil, err
	}

	merged := MergeImages(gateware, firmware)
	plain, err = PadImage(merged, target)
	multi, multiErr := PadImage(append(header, merged...), target)
	if err == nil {
		err = multiErr
	}
	return plain, multi, err
}

// ReadImage reads an input image, failing with an *ImageError when the
// file is missing or shorter than minLen.
func ReadImage(path string, minLen int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ImageError{Path: path, Err: err}
	}
	if len(data) < minLen {
		return nil, &ImageError{Path: path, Length: len(data), Min: minLen}
	}
	return data, nil
}

// WriteBootHeaders encodes offsets and writes the header to path.
func WriteBootHeaders(path string, offsets []uint32) error {
	header, err := EncodeBootHeaders(offsets)
	if err != nil {
		return err
	}
	return os.WriteFile(path, header, 0644)
}

// MergeFiles merges the primary and secondary image files into dst.
func MergeFiles(primary, secondary, dst string) error {
	p, err := ReadImage(primary, 0)
	if err != nil {
		return err
	}
	s, err := ReadImage(secondary, 0)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, MergeImages(p, s), 0644)
}

// PadFile pads or truncates the src image file into dst. Truncation is
// reported after dst has been written, so the caller can treat it as a
// warning without losing the artifact.
func PadFile(src, dst string, target int) error {
	data, err := ReadImage(src, 0)
	if err != nil {
		return err
	}
	out, padErr := PadImage(data, target)
	if err := os.WriteFile(dst, out, 0644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return padErr
}
