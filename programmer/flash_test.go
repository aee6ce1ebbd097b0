package programmer

import (
	"bytes"
	"testing"

	"github.com/betrusted-io/usbc-tester/spiflash"
)

func newTestFlash(t *testing.T) (*Flash, *spiflash.NOR, *spiflash.BitbangConn) {
	t.Helper()
	nor := spiflash.NewNOR(spiflash.RegionSize, [3]byte{0xEF, 0x40, 0x14})
	c := spiflash.NewController(nor)
	c.StepN(8)
	conn := spiflash.NewBitbangConn(c)
	return New(conn), nor, conn
}

func TestReadIDOverBitbang(t *testing.T) {
	f, _, _ := newTestFlash(t)

	id, name, err := f.ReadID()
	if err != nil {
		t.Fatalf("read ID failed: %v", err)
	}
	if id != [3]byte{0xEF, 0x40, 0x14} {
		t.Errorf("JEDEC ID = % X, want EF 40 14", id)
	}
	if name != "Winbond W25Q 8Mb" {
		t.Errorf("name = %q, want Winbond W25Q 8Mb", name)
	}
}

func TestWriteThenRead(t *testing.T) {
	f, _, _ := newTestFlash(t)

	img := []byte{0x7E, 0xAA, 0x99, 0x7E, 0x01, 0x02, 0x03, 0x04}
	if err := f.Write(bytes.NewReader(img)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := f.Read(0, len(img))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(got, img) {
		t.Errorf("read back % X, want % X", got, img)
	}
}

func TestWriteSpansPages(t *testing.T) {
	f, nor, _ := newTestFlash(t)

	img := make([]byte, 300)
	for i := range img {
		img[i] = byte(i)
	}
	if err := f.Write(bytes.NewReader(img)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !bytes.Equal(nor.Bytes()[:300], img) {
		t.Error("multi-page write did not land contiguously")
	}
}

func TestErase4KB(t *testing.T) {
	f, nor, _ := newTestFlash(t)

	if err := f.Write(bytes.NewReader([]byte{1, 2, 3, 4})); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := f.Erase4KB(0); err != nil {
		t.Fatalf("erase failed: %v", err)
	}
	for i, b := range nor.Bytes()[:8] {
		if b != 0xFF {
			t.Fatalf("byte %d = %#x after erase, want 0xFF", i, b)
		}
	}
}

func TestStatusRegisterWEL(t *testing.T) {
	f, _, _ := newTestFlash(t)

	sr, err := f.ReadStatusRegister()
	if err != nil {
		t.Fatal(err)
	}
	if sr.WriteEnabled() || sr.Busy() {
		t.Errorf("status = %v at power on, want WEL and BUSY clear", sr)
	}

	if err := f.writeEnable(); err != nil {
		t.Fatal(err)
	}
	sr, err = f.ReadStatusRegister()
	if err != nil {
		t.Fatal(err)
	}
	if !sr.WriteEnabled() {
		t.Errorf("status = %v after write enable, want WEL set", sr)
	}
}

func TestProgramThenXIPReadBack(t *testing.T) {
	nor := spiflash.NewNOR(spiflash.RegionSize, [3]byte{0xEF, 0x40, 0x14})
	c := spiflash.NewController(nor)
	c.StepN(8)
	conn := spiflash.NewBitbangConn(c)
	f := New(conn)

	if err := f.Write(bytes.NewReader([]byte{0xEF, 0xBE, 0xAD, 0xDE})); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	conn.Release()

	c.SetBus(spiflash.BusIn{Stb: true, Cyc: true, Addr: 0})
	for i := 0; i < 500; i++ {
		c.Step()
		if out := c.BusOut(); out.Ack {
			if out.RData != 0xDEADBEEF {
				t.Errorf("XIP read = %#08x, want 0xDEADBEEF", out.RData)
			}
			return
		}
	}
	t.Fatal("no acknowledge from memory-mapped read")
}
