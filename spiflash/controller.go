package spiflash

import (
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// RegionSize is the memory-mapped flash region (8 Mb part).
const RegionSize = 1 << 20

// porDelay is the number of ticks after reset before the one-shot forced
// configuration pulse, which guarantees the memory-mapped mode is active
// even if software never writes the mode register.
const porDelay = 3

// DefaultClock is the system clock the gateware is built for.
const DefaultClock = 18 * physic.MegaHertz

// Controller models the memory-mapped SPI flash controller: a quad read
// engine for execute-in-place access plus a raw bit-bang override, with
// the mode register selecting which of the two drives the shared pins.
//
// The model advances one half SPI clock per Step; every register write
// and bus signal change takes effect on the following Step. All methods
// are for use from a single goroutine, matching the single synchronous
// clock domain of the hardware.
type Controller struct {
	dev   Device
	clock physic.Frequency

	cfg   ControlConfig
	wdata BitbangWord

	bus BusIn
	seq sequencer
	xip xipEngine

	// one-tick pulses scheduled by register writes
	cfgPulse bool
	bbWrite  bool // wdata written, pulse on the tick after next
	bbClk    bool // clock pulse due this tick

	porCount int

	pins PinState
	in   [4]gpio.Level
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the modeled system clock frequency.
func WithClock(f physic.Frequency) Option {
	return func(c *Controller) { c.clock = f }
}

// NewController returns a controller in its power-on state with dev
// attached to the shared pins. dev may be nil, in which case the data
// lines read as pulled up.
func NewController(dev Device, opts ...Option) *Controller {
	c := &Controller{dev: dev, clock: DefaultClock}
	for _, o := range opts {
		o(c)
	}
	c.Reset()
	return c
}

// Reset forces the controller to its power-on state: sequencer idle, read
// engine in its initial phase, chip deselected, any pending transaction
// or scheduled pulse discarded, and the forced configuration pulse
// countdown restarted. Nothing partial survives a reset.
func (c *Controller) Reset() {
	c.cfg = ControlConfig{}
	c.wdata = BitbangWord{}
	c.bus = BusIn{}
	c.seq.reset()
	c.xip.reset()
	c.cfgPulse = false
	c.bbWrite = false
	c.bbClk = false
	c.porCount = porDelay
	c.pins = PinState{CSN: gpio.High}
	c.in = [4]gpio.Level{gpio.High, gpio.High, gpio.High, gpio.High}
}

// TickDuration is the real-time span of one Step at the modeled clock:
// half an SPI clock period, with the SPI clock at half the system clock.
func (c *Controller) TickDuration() time.Duration {
	return c.clock.Period()
}

// WriteMode writes the mode register. Bit 0 enables bit-bang mode, bit 1
// is the bit-bang chip select (active low at the pin). Every write emits
// one configuration-update pulse on the next Step, which returns the read
// engine to its initial phase and discards its read-ahead state.
func (c *Controller) WriteMode(v uint32) {
	c.cfg = ControlConfig{
		BitBang: v&1 != 0,
		CSN:     v&2 != 0,
	}
	c.cfgPulse = true
}

// Mode returns the current configuration.
func (c *Controller) Mode() ControlConfig { return c.cfg }

// WriteWdata writes the bit-bang data register: data nibble in bits 3:0,
// per-pin output enables in bits 7:4. The written data reaches the pins
// on the next Step and the clock pulses exactly one tick after that; the
// one-tick offset gives the attached chip its setup time on the data
// lines.
func (c *Controller) WriteWdata(v uint32) {
	c.wdata = BitbangWord{
		Data: uint8(v & 0xF),
		OE:   uint8(v>>4) & 0xF,
	}
	c.bbWrite = true
}

// ReadRdata samples the four data lines combinationally, with no caching:
// bits [3:0] are [hold, wp, cipo, copi].
func (c *Controller) ReadRdata() uint32 {
	var v uint32
	for i, l := range c.in {
		if l == gpio.High {
			v |= 1 << uint(i)
		}
	}
	return v
}

// SetBus drives the master side of the bus for subsequent Steps.
func (c *Controller) SetBus(in BusIn) { c.bus = in }

// BusOut returns the controller side of the bus as of the last Step.
func (c *Controller) BusOut() BusOut {
	return BusOut{Ack: c.seq.ack, RData: c.xip.word}
}

// Pins returns the controller-driven pin state as of the last Step.
func (c *Controller) Pins() PinState { return c.pins }

// flashAddr resolves the bus word address to a 24-bit flash byte address.
// The word address is shifted by the bus word size; the region mask keeps
// the result strictly inside the flash region, the same structural wrap
// the address bit slicing performs in gateware.
func flashAddr(wordAddr uint32) uint32 {
	return (wordAddr << 2) & (RegionSize - 1)
}

// Step advances the whole controller by one tick. Exactly one of the read
// engine and the bit-bang bridge drives the shared pins, selected by the
// configuration; the other's outputs are never applied.
func (c *Controller) Step() {
	// consume scheduled one-tick pulses
	cfgUpdate := c.cfgPulse
	c.cfgPulse = false
	bbPulse := c.bbClk
	c.bbClk = c.bbWrite
	c.bbWrite = false

	if c.porCount > 0 {
		c.porCount--
		if c.porCount == 0 {
			cfgUpdate = true
		}
	}

	// readiness from the previous tick: acknowledge trails it by one
	readyPrev := c.xip.ready
	c.seq.step(c.bus, flashAddr(c.bus.Addr), readyPrev)

	switch c.cfg.Owner() {
	case OwnerBitbang:
		// the engine holds its state but never touches the pins;
		// a pending configuration update still resets it
		if cfgUpdate {
			c.xip.reset()
		}
		c.pins = PinState{
			CSN: gpio.Level(c.cfg.CSN),
			CLK: gpio.Level(bbPulse),
		}
		for i := 0; i < 4; i++ {
			c.pins.OE[i] = c.wdata.OE&(1<<uint(i)) != 0
			c.pins.IO[i] = gpio.Level(c.wdata.Data&(1<<uint(i)) != 0)
		}
	case OwnerXIP:
		c.xip.tick(c.seq.valid(), c.seq.addr, cfgUpdate, c.in)
		c.pins = PinState{
			CSN: c.xip.csn,
			CLK: c.xip.clk,
			IO:  c.xip.io,
			OE:  c.xip.oe,
		}
	}

	if c.dev != nil {
		c.in = c.dev.Tick(c.pins.CSN, c.pins.CLK, c.pins.IO, c.pins.OE)
	}
}

// StepN advances the controller n ticks.
func (c *Controller) StepN(n int) {
	for i := 0; i < n; i++ {
		c.Step()
	}
}
