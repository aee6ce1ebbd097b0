package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/betrusted-io/usbc-tester/mboot"
	"github.com/betrusted-io/usbc-tester/toolchain"
)

func buildCommand(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	var (
		dir          string
		top          string
		srcs         string
		seed         int
		placer       string
		firmwareFile string
		outDir       string
		offsets      string
		force        bool
	)
	fs.StringVar(&dir, "dir", "build", "toolchain working directory")
	fs.StringVar(&top, "top", "usbc_tester", "top-level module name")
	fs.StringVar(&srcs, "srcs", "usbc_tester.v", "comma-separated Verilog sources")
	fs.IntVar(&seed, "seed", 0, "placement seed")
	fs.StringVar(&placer, "placer", "heap", "nextpnr placer")
	fs.StringVar(&firmwareFile, "f", "", "firmware binary to merge into the bitstream (optional)")
	fs.StringVar(&outDir, "o", ".", "output directory")
	fs.StringVar(&offsets, "offsets", "", "comma-separated boot offsets (default: board layout)")
	fs.BoolVar(&force, "force", false, "keep truncated artifacts instead of failing")
	fs.Parse(args)

	boot := mboot.DefaultBootOffsets
	if offsets != "" {
		var err error
		boot, err = parseOffsets(offsets)
		if err != nil {
			fatalUsage("%v", err)
		}
	}

	flow := toolchain.NewFlow(dir, top, strings.Split(srcs, ",")...)
	flow.Seed = seed
	flow.Placer = placer

	binPath, err := flow.Build(context.Background())
	if err != nil {
		fatalf("gateware build failed: %v", err)
	}
	fmt.Printf("packed bitstream: %s\n", binPath)

	gateware, err := mboot.ReadImage(binPath, 1)
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

	if err := composeArtifacts(gateware, firmware, boot, mboot.GatewareRegion, outDir, force); err != nil {
		fatalf("%v", err)
	}
}
