// Package mboot composes deployable flash images for the iCE40 UP5K and
// encodes the SB_WARMBOOT multiboot header that selects between them.
//
// The header is five 32-byte records, one per boot slot (the initial boot
// image plus the four warm-boot selections S00..S11). Each record tells
// the configuration ROM where in SPI flash the corresponding bitstream
// begins.
//
// References:
//   - [Lattice-TN1248]: iCE40 Programming and Configuration (https://www.latticesemi.com/view_document?document_id=46502)
//   - [UP5K]: iCE40 UltraPlus Family Data Sheet (https://www.latticesemi.com/view_document?document_id=51968)
package mboot
