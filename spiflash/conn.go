package spiflash

import (
	"errors"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/spi"
)

// BitbangConn exposes the controller's bit-bang bridge as a spi.Conn, the
// way firmware drives it: mode 0, one byte at a time, chip select through
// the mode register and one auto-clocked pulse per data register write.
// It is how software issues the unlock, erase and program commands the
// read engine cannot express.
//
// The conn owns the pins for as long as bit-bang mode is enabled; call
// Release to hand them back to the memory-mapped engine.
type BitbangConn struct {
	c *Controller
}

// NewBitbangConn wraps a controller. The controller stays in its current
// mode until the first transaction enables bit-bang.
func NewBitbangConn(c *Controller) *BitbangConn {
	return &BitbangConn{c: c}
}

func (b *BitbangConn) String() string { return "spiflash/bitbang" }

func (b *BitbangConn) Duplex() conn.Duplex { return conn.Full }

// Tx runs one chip-select-framed transaction. w and r may be the same
// slice; every transmitted byte is replaced by the byte shifted in.
func (b *BitbangConn) Tx(w, r []byte) error {
	return b.tx(w, r, false)
}

// TxPackets runs a sequence of transactions; a packet with KeepCS leaves
// the chip selected for the next one.
func (b *BitbangConn) TxPackets(p []spi.Packet) error {
	for i := range p {
		if p[i].BitsPerWord != 0 && p[i].BitsPerWord != 8 {
			return errors.New("spiflash: only 8 bits per word supported")
		}
		if err := b.tx(p[i].W, p[i].R, p[i].KeepCS); err != nil {
			return err
		}
	}
	return nil
}

// Release disables bit-bang mode, returning pin ownership to the
// memory-mapped read engine.
func (b *BitbangConn) Release() {
	b.c.WriteMode(0)
	b.c.Step()
}

func (b *BitbangConn) tx(w, r []byte, keepCS bool) error {
	if len(w) != 0 && len(r) != 0 && len(w) != len(r) {
		return errors.New("spiflash: w and r lengths differ")
	}

	n := len(w)
	if n == 0 {
		n = len(r)
	}

	// bit-bang on, chip selected
	b.c.WriteMode(1)
	b.c.Step()

	for i := 0; i < n; i++ {
		var out byte
		if i < len(w) {
			out = w[i]
		}
		var in byte
		for bit := 7; bit >= 0; bit-- {
			// sample before the clock pulse: the chip presented
			// this bit on the previous falling edge
			in <<= 1
			if b.c.ReadRdata()&(1<<ioCIPO) != 0 {
				in |= 1
			}

			word := uint32(1) << (4 + ioCOPI) // drive COPI only
			if out&(1<<uint(bit)) != 0 {
				word |= 1 << ioCOPI
			}
			b.c.WriteWdata(word)
			b.c.Step() // data reaches the pins
			b.c.Step() // clock high, chip samples
			b.c.Step() // clock low, chip shifts out
		}
		if i < len(r) {
			r[i] = in
		}
	}

	if !keepCS {
		b.c.WriteMode(1 | 2) // deselect, stay in bit-bang mode
		b.c.Step()
	}
	return nil
}

var _ spi.Conn = (*BitbangConn)(nil)
