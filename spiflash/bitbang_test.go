package spiflash

import (
	"bytes"
	"testing"

	"periph.io/x/conn/v3/gpio"
)

func TestBitbangAutoClockOneTickAfterData(t *testing.T) {
	c, _ := newTestController(t)
	c.WriteMode(1) // bit-bang on, chip selected
	c.Step()

	c.WriteWdata(0x11) // drive COPI high, OE on COPI
	c.Step()
	p := c.Pins()
	if p.CLK != gpio.Low {
		t.Error("clock pulsed on the same tick the data reached the pins")
	}
	if p.IO[ioCOPI] != gpio.High || !p.OE[ioCOPI] {
		t.Error("data not on the pins one tick after the write")
	}

	c.Step()
	if c.Pins().CLK != gpio.High {
		t.Error("no clock pulse one tick after the data")
	}

	c.Step()
	if c.Pins().CLK != gpio.Low {
		t.Error("clock pulse wider than one tick")
	}
}

func TestBitbangSingleClockPulsePerWrite(t *testing.T) {
	c, _ := newTestController(t)
	c.WriteMode(1)
	c.Step()

	c.WriteWdata(0x10)
	pulses := 0
	for i := 0; i < 10; i++ {
		c.Step()
		if c.Pins().CLK == gpio.High {
			pulses++
		}
	}
	if pulses != 1 {
		t.Errorf("clock pulsed %d times for one write, want 1", pulses)
	}
}

func TestRdataSamplesPinsWithoutCaching(t *testing.T) {
	dev := &patternDevice{}
	c := NewController(dev)
	c.StepN(porDelay + 1)

	dev.out = [4]gpio.Level{gpio.High, gpio.Low, gpio.High, gpio.Low}
	c.Step()
	if got := c.ReadRdata(); got != 0b0101 {
		t.Errorf("rdata = %#04b, want 0b0101", got)
	}

	dev.out = [4]gpio.Level{gpio.Low, gpio.High, gpio.Low, gpio.High}
	c.Step()
	if got := c.ReadRdata(); got != 0b1010 {
		t.Errorf("rdata = %#04b, want 0b1010 after pins changed", got)
	}
}

// patternDevice drives fixed levels on the data lines.
type patternDevice struct {
	out [4]gpio.Level
}

func (d *patternDevice) Tick(csn, clk gpio.Level, io [4]gpio.Level, oe [4]bool) [4]gpio.Level {
	return d.out
}

func TestBitbangConnReadsJEDECID(t *testing.T) {
	c, _ := newTestController(t)
	conn := NewBitbangConn(c)

	buf := []byte{cmdReadID, 0, 0, 0}
	if err := conn.Tx(buf, buf); err != nil {
		t.Fatalf("tx failed: %v", err)
	}
	if got := buf[1:]; !bytes.Equal(got, testID[:]) {
		t.Errorf("JEDEC ID = % X, want % X", got, testID)
	}
}

func TestBitbangConnReadsFlashData(t *testing.T) {
	c, nor := newTestController(t)
	copy(nor.Bytes()[16:], []byte{0xCA, 0xFE, 0xBA, 0xBE})
	conn := NewBitbangConn(c)

	buf := []byte{cmdRead, 0x00, 0x00, 0x10, 0, 0, 0, 0}
	if err := conn.Tx(buf, buf); err != nil {
		t.Fatalf("tx failed: %v", err)
	}
	if got, want := buf[4:], []byte{0xCA, 0xFE, 0xBA, 0xBE}; !bytes.Equal(got, want) {
		t.Errorf("read data = % X, want % X", got, want)
	}
}

func TestBitbangConnProgramThenXIPRead(t *testing.T) {
	c, _ := newTestController(t)
	conn := NewBitbangConn(c)

	// write enable, then page program four bytes at 0
	if err := conn.Tx([]byte{cmdWriteEnable}, nil); err != nil {
		t.Fatal(err)
	}
	prog := []byte{cmdPageProgram, 0x00, 0x00, 0x00, 0x78, 0x56, 0x34, 0x12}
	if err := conn.Tx(prog, nil); err != nil {
		t.Fatal(err)
	}

	// hand the pins back to the read engine and read the word back
	conn.Release()
	if got, want := readWord(t, c, 0), uint32(0x12345678); got != want {
		t.Errorf("word 0 = %#08x, want %#08x", got, want)
	}
}

func TestMutualExclusionAcrossRegisterSequences(t *testing.T) {
	c, _ := newTestController(t)

	assertSingleOwner := func() {
		t.Helper()
		p := c.Pins()
		if c.Mode().BitBang {
			// engine outputs must never reach the pins
			want := PinState{CSN: gpio.Level(c.Mode().CSN), CLK: p.CLK}
			for i := 0; i < 4; i++ {
				want.OE[i] = c.wdata.OE&(1<<uint(i)) != 0
				want.IO[i] = gpio.Level(c.wdata.Data&(1<<uint(i)) != 0)
			}
			if p != want {
				t.Fatalf("bit-bang mode: pins %+v not derived from bit-bang registers %+v", p, want)
			}
		} else if c.xip.oe != p.OE {
			t.Fatalf("memory-mapped mode: pin output enables %v differ from engine %v", p.OE, c.xip.oe)
		}
	}

	// a hostile register sequence: flip ownership mid-read, write
	// bit-bang data in both modes, start reads in both modes
	c.SetBus(BusIn{Stb: true, Cyc: true, Addr: 0})
	for i := 0; i < 40; i++ {
		c.Step()
		assertSingleOwner()
	}
	c.WriteMode(1) // steal the pins mid-read
	c.WriteWdata(0x35)
	for i := 0; i < 10; i++ {
		c.Step()
		assertSingleOwner()
	}
	c.WriteMode(0) // and give them back with the bus still strobing
	c.WriteWdata(0x0F)
	for i := 0; i < 200; i++ {
		c.Step()
		assertSingleOwner()
		if c.BusOut().Ack {
			c.SetBus(BusIn{})
		}
	}
}
