package spiflash

import "periph.io/x/conn/v3/gpio"

// xipState is the protocol phase of the memory-mapped read engine.
type xipState int

const (
	xipIdle    xipState = iota // chip deselected, waiting for a request
	xipCommand                 // shifting the read command out on IO0
	xipAddress                 // shifting the 24-bit address out on IO0
	xipDummy                   // dummy clocks before the chip drives data
	xipData                    // sampling nibbles on IO3..IO0
	xipHold                    // word complete, chip still selected for a burst
)

// xipEngine performs quad-output fast reads (command 6Bh) from the flash:
// command and address go out bit-serial on IO0, then after eight dummy
// clocks the chip returns data four bits per clock on IO3..IO0, high
// nibble of each byte first. Bytes are assembled little-endian into the
// 32-bit word. After a word the chip stays selected; a sequential address
// continues the burst without a new command, which is the read-ahead
// state a configuration-update pulse discards.
type xipEngine struct {
	state xipState
	clk   gpio.Level
	bits  int    // clocks remaining in the current phase
	shift uint32 // output shift register, MSB first
	word  uint32
	addr  uint32 // in-progress address, then next sequential address
	ready bool

	csn gpio.Level
	io  [4]gpio.Level
	oe  [4]bool
}

func (x *xipEngine) reset() {
	x.state = xipIdle
	x.clk = gpio.Low
	x.csn = gpio.High
	x.oe = [4]bool{}
	x.ready = false
}

// tick advances the engine one half clock. valid and addr come from the
// bus sequencer; in carries the device-driven data lines as of the end of
// the previous tick. A configuration-update pulse aborts any in-progress
// read and returns the engine to its initial phase.
func (x *xipEngine) tick(valid bool, addr uint32, cfgUpdate bool, in [4]gpio.Level) {
	if cfgUpdate {
		x.reset()
		return
	}

	switch x.state {
	case xipIdle:
		if !valid {
			return
		}
		// select the chip and present the command MSB
		x.addr = addr
		x.word = 0
		x.csn = gpio.Low
		x.clk = gpio.Low
		x.shift = uint32(cmdQuadRead) << 24
		x.bits = 8
		x.oe = [4]bool{ioCOPI: true}
		x.io[ioCOPI] = gpio.Level(x.shift&(1<<31) != 0)
		x.state = xipCommand

	case xipCommand, xipAddress:
		if x.clk == gpio.Low {
			x.clk = gpio.High // chip samples the presented bit
			x.bits--
			return
		}
		x.clk = gpio.Low
		if x.bits == 0 {
			if x.state == xipCommand {
				x.shift = x.addr << 8
				x.bits = 24
				x.io[ioCOPI] = gpio.Level(x.shift&(1<<31) != 0)
				x.state = xipAddress
			} else {
				x.bits = quadDummyClks
				x.oe = [4]bool{}
				x.state = xipDummy
			}
			return
		}
		x.shift <<= 1
		x.io[ioCOPI] = gpio.Level(x.shift&(1<<31) != 0)

	case xipDummy:
		if x.clk == gpio.Low {
			x.clk = gpio.High
			x.bits--
			return
		}
		x.clk = gpio.Low
		if x.bits == 0 {
			x.bits = 8 // nibbles per word
			x.word = 0
			x.state = xipData
		}

	case xipData:
		if x.clk == gpio.Low {
			x.clk = gpio.High
			x.sampleNibble(in)
			x.bits--
			if x.bits == 0 {
				x.ready = true
			}
			return
		}
		x.clk = gpio.Low
		if x.bits == 0 {
			x.addr += 4
			x.state = xipHold
		}

	case xipHold:
		x.clk = gpio.Low
		if !valid {
			x.ready = false
			return
		}
		if x.ready {
			return // waiting for the sequencer to acknowledge
		}
		if addr == x.addr {
			// sequential word: continue the burst
			x.word = 0
			x.bits = 8
			x.state = xipData
			return
		}
		// non-sequential: terminate the burst and restart
		x.csn = gpio.High
		x.state = xipIdle
	}
}

// sampleNibble shifts in four bits, IO3 most significant. The first
// nibble of each byte is the high one; bytes fill the word low to high.
func (x *xipEngine) sampleNibble(in [4]gpio.Level) {
	var nib uint32
	for i := 3; i >= 0; i-- {
		nib <<= 1
		if in[i] == gpio.High {
			nib |= 1
		}
	}
	k := 8 - x.bits // nibble index 0..7
	byteIdx := k / 2
	if k%2 == 0 {
		x.word |= nib << (uint(byteIdx)*8 + 4)
	} else {
		x.word |= nib << (uint(byteIdx) * 8)
	}
}
