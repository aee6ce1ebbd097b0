package spiflash

import "periph.io/x/conn/v3/gpio"

// Data line assignment on the shared quad bus. In the non-quad pinout the
// four lines are the discretely named copi/cipo/wp/hold pins.
const (
	ioCOPI = 0
	ioCIPO = 1
	ioWP   = 2
	ioHOLD = 3
)

// PinState is the controller-driven side of the shared flash pins for one
// tick: chip select, clock, and the four data lines with their per-pin
// output enables. A line with OE false is released to the bus pull-ups.
type PinState struct {
	CSN gpio.Level
	CLK gpio.Level
	IO  [4]gpio.Level
	OE  [4]bool
}

// Driven returns the level seen on data line i by the attached device:
// the driven level when the controller enables the output, otherwise the
// pulled-up idle level.
func (p PinState) Driven(i int) gpio.Level {
	if p.OE[i] {
		return p.IO[i]
	}
	return gpio.High
}

// Device is the flash chip attached to the shared pins. Tick advances the
// device by one half clock: it observes the controller-driven pin state
// and returns the levels it drives back on the four data lines. Released
// lines read High.
type Device interface {
	Tick(csn, clk gpio.Level, io [4]gpio.Level, oe [4]bool) [4]gpio.Level
}

// Owner selects which component drives the shared pins. It is a single
// value, so exactly one driver is live at any tick; there is no
// representable state with both drivers active.
type Owner int

const (
	// OwnerXIP gives the pins to the memory-mapped read engine.
	OwnerXIP Owner = iota

	// OwnerBitbang gives the pins to the software bit-bang bridge.
	OwnerBitbang
)

func (o Owner) String() string {
	if o == OwnerBitbang {
		return "bitbang"
	}
	return "xip"
}

// ControlConfig is the mode register: bit-bang enable and the bit-bang
// chip select (active low at the pin). It changes only on an explicit
// register write or the one-shot power-up pulse.
type ControlConfig struct {
	BitBang bool
	CSN     bool
}

// Owner derives the pin owner from the configuration.
func (c ControlConfig) Owner() Owner {
	if c.BitBang {
		return OwnerBitbang
	}
	return OwnerXIP
}

// BitbangWord is the wdata register: a data nibble and a per-pin output
// enable mask. Every write pulses the clock pin one tick later.
type BitbangWord struct {
	Data uint8
	OE   uint8
}
