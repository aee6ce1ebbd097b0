package main

import (
	"errors"
	"fmt"
	"sync/atomic"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"

	"github.com/betrusted-io/usbc-tester/programmer"
)

// Device is an FT2232H adapter wired to the tester board's SPI flash.
type Device struct {
	FTDI  *ftdi.FT232H
	Flash *programmer.Flash

	cs    gpio.PinIO // ADBUS4 Chip Select
	reset gpio.PinIO // ADBUS7 FPGA Reset
	cdone gpio.PinIO // ADBUS6 FPGA Done

	clock physic.Frequency
	conn  spi.Conn
}

var hostInitialized atomic.Bool

// NewDevice finds an FT2232H and opens the MPSSE/SPI connection.
func NewDevice() (*Device, error) {
	if hostInitialized.CompareAndSwap(false, true) {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("host initialization failed: %w", err)
		}
	}

	d := &Device{
		clock: 30 * physic.MegaHertz, // [AN_135 3.2.1 Divisors]
	}
	if err := d.findFT2232H(); err != nil {
		return nil, err
	}

	// ADBUS0 | FLASH_SCK
	// ADBUS1 | FLASH_MOSI
	// ADBUS2 | FLASH_MISO
	// ADBUS4 | FLASH_SS_B
	// ADBUS6 | iCE_CDONE
	// ADBUS7 | iCE_CRESET
	d.cs = d.FTDI.D4
	d.reset = d.FTDI.D7
	d.cdone = d.FTDI.D6

	if err := d.connectSPI(); err != nil {
		return nil, err
	}

	d.Flash = programmer.New(&csConn{conn: d.conn, cs: d.cs})
	return d, nil
}

// HoldFPGAReset keeps the FPGA in reset so it cannot act as a SPI master
// while the adapter owns the flash bus.
func (d *Device) HoldFPGAReset() error {
	return d.reset.Out(gpio.Low)
}

func (d *Device) ReleaseFPGAReset() error {
	return d.reset.Out(gpio.High)
}

// Done reports the FPGA configuration-done line.
func (d *Device) Done() gpio.Level {
	return d.cdone.Read()
}

func (d *Device) findFT2232H() error {
	const (
		vendorID  = 0x0403 // FTDI
		productID = 0x6010 // FT2232H
	)

	info := ftdi.Info{}
	for _, dev := range ftdi.All() {
		dev.Info(&info)
		if info.VenID != vendorID || info.DevID != productID {
			continue
		}
		if ft, ok := dev.(*ftdi.FT232H); ok {
			d.FTDI = ft
			return nil
		}
	}

	return errors.New("FT2232H device not found")
}

func (d *Device) connectSPI() (err error) {
	port, err := d.FTDI.SPI()
	if err != nil {
		return fmt.Errorf("failed to get SPI port: %w", err)
	}

	// [FTDI AN_114|1.2] > FTDI device can only support mode 0 and mode 2 due to the limitation of MPSSE engine
	// [W25Q80|6.1 Standard SPI Instructions] mode 0 and mode 3 are supported
	d.conn, err = port.Connect(d.clock, spi.Mode0, 8)
	return err
}

// csConn frames each transaction with the board's chip-select line. The
// flash hangs off ADBUS4 rather than the MPSSE engine's own select pin,
// so CS is driven as a plain GPIO around every exchange.
type csConn struct {
	conn spi.Conn
	cs   gpio.PinOut
}

var _ spi.Conn = (*csConn)(nil)

func (c *csConn) String() string { return c.conn.String() + "+cs" }

func (c *csConn) Duplex() conn.Duplex { return c.conn.Duplex() }

func (c *csConn) Tx(w, r []byte) error {
	return c.framed(func() error { return c.conn.Tx(w, r) })
}

func (c *csConn) TxPackets(p []spi.Packet) error {
	return c.framed(func() error { return c.conn.TxPackets(p) })
}

func (c *csConn) framed(tx func() error) (err error) {
	if err = c.cs.Out(gpio.Low); err != nil {
		return err
	}
	defer func() {
		if csErr := c.cs.Out(gpio.High); csErr != nil && err == nil {
			err = csErr
		}
	}()
	return tx()
}
