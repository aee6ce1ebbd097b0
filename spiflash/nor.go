package spiflash

import "periph.io/x/conn/v3/gpio"

// Flash commands understood by the simulated chip:
//   - [W25Q80|8.1.2 Instruction Set Table 1]
const (
	cmdReleasePowerDown = 0xAB
	cmdPowerDown        = 0xB9
	cmdReadID           = 0x9F
	cmdReadStatus       = 0x05
	cmdWriteEnable      = 0x06
	cmdWriteDisable     = 0x04
	cmdRead             = 0x03
	cmdQuadRead         = 0x6B // Fast Read Quad Output
	cmdPageProgram      = 0x02
	cmdErase4KB         = 0x20
	cmdErase64KB        = 0xD8
	cmdEraseChip        = 0xC7
)

const (
	pageSize      = 256
	sectorSize    = 4 << 10
	blockSize     = 64 << 10
	quadDummyClks = 8
)

type norState int

const (
	norCommand norState = iota
	norAddress
	norDummy
	norReadData
	norQuadData
	norProgramData
	norStreamID
	norStreamStatus
	norIgnore
)

// NOR is a pin-level model of a SPI-NOR flash chip. It samples its inputs
// on the rising clock edge and updates its outputs on the falling edge,
// mode 0. Program and erase operations are latched during the transaction
// and committed when chip select rises, provided the write enable latch
// is set. Erased bytes read 0xFF; programming can only clear bits.
type NOR struct {
	mem []byte
	id  [3]byte

	powered bool
	wel     bool

	state   norState
	cmd     byte
	csPrev  gpio.Level
	clkPrev gpio.Level

	shiftIn byte
	bitsIn  int

	addr      uint32
	addrBytes int
	dummy     int

	outByte byte
	outBits int
	idPos   int
	nibHigh bool

	page     [pageSize]byte
	pageLen  int
	pageBase uint32

	eraseOp byte // pending erase command, 0 if none

	out [4]gpio.Level
}

// NewNOR returns a blank (all 0xFF) flash model of the given size with
// the given JEDEC ID.
func NewNOR(size int, id [3]byte) *NOR {
	n := &NOR{
		mem:     make([]byte, size),
		id:      id,
		powered: true,
		csPrev:  gpio.High,
		out:     [4]gpio.Level{gpio.High, gpio.High, gpio.High, gpio.High},
	}
	for i := range n.mem {
		n.mem[i] = 0xFF
	}
	return n
}

// Bytes exposes the backing memory for test setup and inspection.
func (n *NOR) Bytes() []byte { return n.mem }

// Tick advances the chip by one half clock.
func (n *NOR) Tick(csn, clk gpio.Level, io [4]gpio.Level, oe [4]bool) [4]gpio.Level {
	pins := PinState{CSN: csn, CLK: clk, IO: io, OE: oe}

	if csn == gpio.High {
		if n.csPrev == gpio.Low {
			n.commit()
		}
		n.csPrev, n.clkPrev = csn, clk
		n.release()
		return n.out
	}

	if n.csPrev == gpio.High {
		// chip select fell: new transaction
		n.state = norCommand
		n.bitsIn = 0
		n.shiftIn = 0
		n.release()
	}
	n.csPrev = csn

	rising := n.clkPrev == gpio.Low && clk == gpio.High
	falling := n.clkPrev == gpio.High && clk == gpio.Low
	n.clkPrev = clk

	if rising {
		n.onRisingEdge(pins.Driven(ioCOPI))
	}
	if falling {
		n.onFallingEdge()
	}
	return n.out
}

func (n *NOR) release() {
	n.out = [4]gpio.Level{gpio.High, gpio.High, gpio.High, gpio.High}
	n.outBits = 0
	n.nibHigh = false
}

func (n *NOR) onRisingEdge(copi gpio.Level) {
	switch n.state {
	case norCommand, norAddress, norProgramData:
		n.shiftIn = n.shiftIn << 1
		if copi == gpio.High {
			n.shiftIn |= 1
		}
		n.bitsIn++
		if n.bitsIn == 8 {
			b := n.shiftIn
			n.bitsIn = 0
			n.shiftIn = 0
			n.byteIn(b)
		}
	case norDummy:
		n.dummy--
		if n.dummy == 0 {
			n.state = norQuadData
		}
	}
}

func (n *NOR) byteIn(b byte) {
	switch n.state {
	case norCommand:
		n.command(b)
	case norAddress:
		n.addr = n.addr<<8 | uint32(b)
		n.addrBytes++
		if n.addrBytes == 3 {
			n.addrDone()
		}
	case norProgramData:
		if n.pageLen < pageSize {
			n.page[n.pageLen] = b
			n.pageLen++
		}
	}
}

func (n *NOR) command(cmd byte) {
	n.cmd = cmd
	if !n.powered && cmd != cmdReleasePowerDown {
		n.state = norIgnore
		return
	}

	switch cmd {
	case cmdReleasePowerDown:
		n.powered = true
		n.state = norIgnore
	case cmdPowerDown:
		n.powered = false
		n.state = norIgnore
	case cmdWriteEnable:
		n.wel = true
		n.state = norIgnore
	case cmdWriteDisable:
		n.wel = false
		n.state = norIgnore
	case cmdReadID:
		n.idPos = 0
		n.state = norStreamID
	case cmdReadStatus:
		n.state = norStreamStatus
	case cmdRead, cmdQuadRead, cmdPageProgram, cmdErase4KB, cmdErase64KB:
		n.addr = 0
		n.addrBytes = 0
		n.state = norAddress
	case cmdEraseChip:
		n.eraseOp = cmdEraseChip
		n.state = norIgnore
	default:
		n.state = norIgnore
	}
}

func (n *NOR) addrDone() {
	n.addr %= uint32(len(n.mem))
	switch n.cmd {
	case cmdRead:
		n.state = norReadData
	case cmdQuadRead:
		n.dummy = quadDummyClks
		n.state = norDummy
	case cmdPageProgram:
		n.pageBase = n.addr
		n.pageLen = 0
		n.state = norProgramData
	case cmdErase4KB, cmdErase64KB:
		n.eraseOp = n.cmd
		n.state = norIgnore
	}
}

func (n *NOR) onFallingEdge() {
	switch n.state {
	case norReadData, norStreamID, norStreamStatus:
		if n.outBits == 0 {
			n.outByte = n.nextOutByte()
			n.outBits = 8
		}
		n.out[ioCIPO] = gpio.Level(n.outByte&0x80 != 0)
		n.outByte <<= 1
		n.outBits--
	case norQuadData:
		if n.nibHigh = !n.nibHigh; n.nibHigh {
			n.outByte = n.mem[n.addr]
			n.addr = (n.addr + 1) % uint32(len(n.mem))
		}
		nib := n.outByte >> 4
		n.outByte <<= 4
		for i := 0; i < 4; i++ {
			n.out[i] = gpio.Level(nib&(1<<i) != 0)
		}
	}
}

func (n *NOR) nextOutByte() byte {
	switch n.state {
	case norReadData:
		b := n.mem[n.addr]
		n.addr = (n.addr + 1) % uint32(len(n.mem))
		return b
	case norStreamID:
		b := n.id[n.idPos%len(n.id)]
		n.idPos++
		return b
	case norStreamStatus:
		var sr byte
		if n.wel {
			sr |= 1 << 1
		}
		return sr
	}
	return 0xFF
}

// commit applies any latched program or erase when chip select rises.
// Both require the write enable latch and clear it afterwards.
func (n *NOR) commit() {
	defer func() {
		n.state = norCommand
		n.eraseOp = 0
		n.pageLen = 0
	}()

	if !n.powered || !n.wel {
		return
	}

	switch {
	case n.eraseOp == cmdEraseChip:
		for i := range n.mem {
			n.mem[i] = 0xFF
		}
	case n.eraseOp == cmdErase4KB || n.eraseOp == cmdErase64KB:
		size := uint32(sectorSize)
		if n.eraseOp == cmdErase64KB {
			size = blockSize
		}
		base := n.addr &^ (size - 1)
		for i := uint32(0); i < size; i++ {
			n.mem[(base+i)%uint32(len(n.mem))] = 0xFF
		}
	case n.cmd == cmdPageProgram && n.pageLen > 0:
		// column address wraps within the page
		for i := 0; i < n.pageLen; i++ {
			a := n.pageBase&^(pageSize-1) | (n.pageBase+uint32(i))&(pageSize-1)
			n.mem[a] &= n.page[i]
		}
	default:
		return
	}
	n.wel = false
}
