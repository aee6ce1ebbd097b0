package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	"github.com/betrusted-io/usbc-tester/mboot"
)

func burnCommand(args []string) {
	fs := flag.NewFlagSet("burn", flag.ExitOnError)
	var (
		filename  string
		bulkErase bool
		verify    bool
	)
	fs.StringVar(&filename, "f", "", "input image file")
	fs.BoolVar(&bulkErase, "e", false, "erase the entire flash instead of just the image region")
	fs.BoolVar(&verify, "v", false, "read back and verify after programming")
	fs.Parse(args)

	if filename == "" && !bulkErase {
		fatalUsage("input image file is required")
	}

	var image []byte
	if filename != "" {
		var err error
		image, err = mboot.ReadImage(filename, 1)
		if err != nil {
			fatalf("%v", err)
		}
		if len(image) > mboot.FlashSize {
			fatalf("image %s (%d bytes) exceeds the %d byte flash", filename, len(image), mboot.FlashSize)
		}
	}

	d, err := NewDevice()
	if err != nil {
		fatalf("%v", err)
	}

	// prevent the FPGA from acting as a SPI master
	d.HoldFPGAReset()
	defer d.ReleaseFPGAReset()

	if err := d.Flash.PowerUp(); err != nil {
		fatalf("flash power up failed: %v", err)
	}
	defer d.Flash.PowerDown()

	flashID, name, err := d.Flash.ReadID()
	if err != nil {
		fatalf("read flash ID failed: %v", err)
	}
	if name == "" {
		fmt.Fprintf(os.Stderr, "unknown flash ID (%X)\n", flashID)
	}

	if bulkErase {
		if err := d.Flash.EraseChip(); err != nil {
			fatalf("bulk erase failed: %v", err)
		}
	} else {
		if err := d.Flash.Erase(0, len(image)); err != nil {
			fatalf("erase failed: %v", err)
		}
	}

	if image == nil {
		return
	}

	if err := d.Flash.Write(bytes.NewReader(image)); err != nil {
		fatalf("write flash failed: %v", err)
	}
	fmt.Printf("programmed %d bytes\n", len(image))

	if verify {
		got, err := d.Flash.Read(0, len(image))
		if err != nil {
			fatalf("verify read failed: %v", err)
		}
		if !bytes.Equal(got, image) {
			fatalf("verify failed: flash contents differ from %s", filename)
		}
		fmt.Println("verify OK")
	}
}
