package mboot

// Multiboot header layout [Lattice-TN1248]:
//
//	[7E AA 99 7E]     sync
//	[92 00 k0]        boot mode (k = 1 for cold boot, 0 for warmboot)
//	[44 03 o1 o2 o3]  boot address, most significant byte first
//	[82 00 00]        bank offset
//	[01 08]           reboot
//	[00 x 15]         padding up to 32 bytes
//
// The second nybble of each opcode is the number of payload bytes that
// follow it (the sync word excepted). The record is repeated once per
// boot slot.
const (
	// RecordSize is the fixed length of one boot slot record.
	RecordSize = 32

	// NumSlots is the number of boot slots: the initial boot image plus
	// the four SB_WARMBOOT selections.
	NumSlots = 5

	// HeaderSize is the total length of an encoded multiboot header.
	HeaderSize = RecordSize * NumSlots

	// MaxBootOffset is the first byte address that no longer fits the
	// 24-bit boot address field.
	MaxBootOffset = 1 << 24
)

var (
	syncWord   = [4]byte{0x7E, 0xAA, 0x99, 0x7E}
	bootMode   = [3]byte{0x92, 0x00, 0x00}
	bootAddrOp = [2]byte{0x44, 0x03}
	bankOffset = [3]byte{0x82, 0x00, 0x00}
	rebootCmd  = [2]byte{0x01, 0x08}
)

// DefaultBootOffsets places the cold boot and first warm boot slot at the
// start of the primary bitstream (offset 160, just past the header), and
// the remaining slots at the alternate image regions.
var DefaultBootOffsets = []uint32{160, 160, 157696, 262144, 294912}

// EncodeBootHeaders encodes up to NumSlots boot offsets into a multiboot
// header. If fewer than NumSlots offsets are given, the first offset is
// replicated to fill the remaining slots. Supplying no offsets, more than
// NumSlots offsets, or an offset that does not fit in 24 bits is an error.
// The result is always exactly HeaderSize bytes.
func EncodeBootHeaders(offsets []uint32) ([]byte, error) {
	if len(offsets) == 0 {
		return nil, ErrNoOffsets
	}
	if len(offsets) > NumSlots {
		return nil, &SlotCountError{Count: len(offsets)}
	}
	for i, off := range offsets {
		if off >= MaxBootOffset {
			return nil, &OffsetRangeError{Slot: i, Offset: off}
		}
	}

	out := make([]byte, 0, HeaderSize)
	for i := 0; i < NumSlots; i++ {
		off := offsets[0]
		if i < len(offsets) {
			off = offsets[i]
		}
		out = append(out, syncWord[:]...)
		out = append(out, bootMode[:]...)
		out = append(out, bootAddrOp[:]...)
		out = append(out, byte(off>>16), byte(off>>8), byte(off))
		out = append(out, bankOffset[:]...)
		out = append(out, rebootCmd[:]...)
		out = append(out, make([]byte, RecordSize-17)...)
	}
	return out, nil
}

// DecodeBootHeaders parses an encoded multiboot header back into its
// NumSlots boot offsets, verifying every fixed byte of each record.
func DecodeBootHeaders(data []byte) ([]uint32, error) {
	if len(data) < HeaderSize {
		return nil, &RecordError{Offset: len(data), Reason: "short header"}
	}

	offsets := make([]uint32, 0, NumSlots)
	for i := 0; i < NumSlots; i++ {
		rec := data[i*RecordSize : (i+1)*RecordSize]
		pos := i * RecordSize

		fixed := []struct {
			at   int
			want []byte
		}{
			{0, syncWord[:]},
			{4, bootMode[:]},
			{7, bootAddrOp[:]},
			{12, bankOffset[:]},
			{15, rebootCmd[:]},
			{17, make([]byte, RecordSize-17)},
		}
		for _, f := range fixed {
			for j, b := range f.want {
				if rec[f.at+j] != b {
					return nil, &RecordError{
						Offset: pos + f.at + j,
						Reason: "unexpected byte",
					}
				}
			}
		}

		off := uint32(rec[9])<<16 | uint32(rec[10])<<8 | uint32(rec[11])
		offsets = append(offsets, off)
	}
	return offsets, nil
}
