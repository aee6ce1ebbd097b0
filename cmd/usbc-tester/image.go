package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/betrusted-io/usbc-tester/mboot"
)

func imageCommand(args []string) {
	fs := flag.NewFlagSet("image", flag.ExitOnError)
	var (
		gatewareFile string
		firmwareFile string
		outDir       string
		offsets      string
		size         int
		force        bool
	)
	fs.StringVar(&gatewareFile, "g", "", "gateware bitstream file")
	fs.StringVar(&firmwareFile, "f", "", "firmware binary file (optional)")
	fs.StringVar(&outDir, "o", ".", "output directory")
	fs.StringVar(&offsets, "offsets", "", "comma-separated boot offsets (default: board layout)")
	fs.IntVar(&size, "size", mboot.GatewareRegion, "artifact size in bytes")
	fs.BoolVar(&force, "force", false, "keep truncated artifacts instead of failing")
	fs.Parse(args)

	if gatewareFile == "" {
		fatalUsage("gateware bitstream is required")
	}

	boot := mboot.DefaultBootOffsets
	if offsets != "" {
		var err error
		boot, err = parseOffsets(offsets)
		if err != nil {
			fatalUsage("%v", err)
		}
	}

	gateware, err := mboot.ReadImage(gatewareFile, 1)
	if err != nil {
		fatalf("%v", err)
	}
	var firmware []byte
	if firmwareFile != "" {
		firmware, err = mboot.ReadImage(firmwareFile, 1)
		if err != nil {
			fatalf("%v", err)
		}
	}

	if err := composeArtifacts(gateware, firmware, boot, size, outDir, force); err != nil {
		fatalf("%v", err)
	}
}

// composeArtifacts writes the plain and multiboot images into dir.
// Truncation aborts unless force is set, in which case it is only warned
// about.
func composeArtifacts(gateware, firmware []byte, boot []uint32, size int, dir string, force bool) error {
	plain, multi, err := mboot.Compose(gateware, firmware, boot, size)
	if err != nil {
		var trunc *mboot.TruncationError
		if !errors.As(err, &trunc) {
			return err
		}
		if !force {
			return fmt.Errorf("%w (use -force to keep the truncated artifact)", err)
		}
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	plainPath := filepath.Join(dir, "usbc_tester.bin")
	if err := os.WriteFile(plainPath, plain, 0644); err != nil {
		return fmt.Errorf("write %s: %w", plainPath, err)
	}
	multiPath := filepath.Join(dir, "usbc_tester_multiboot.bin")
	if err := os.WriteFile(multiPath, multi, 0644); err != nil {
		return fmt.Errorf("write %s: %w", multiPath, err)
	}

	fmt.Printf("wrote %s (%d bytes)\n", plainPath, len(plain))
	fmt.Printf("wrote %s (%d bytes)\n", multiPath, len(multi))
	return nil
}
