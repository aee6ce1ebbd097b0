package main

import (
	"encoding/hex"
	"flag"
	"fmt"

	"github.com/betrusted-io/usbc-tester/mboot"
)

func headerCommand(args []string) {
	fs := flag.NewFlagSet("header", flag.ExitOnError)
	var (
		outFile string
		offsets string
	)
	fs.StringVar(&outFile, "o", "", "output file (default: hexdump to stdout)")
	fs.StringVar(&offsets, "offsets", "", "comma-separated boot offsets (default: board layout)")
	fs.Parse(args)

	boot := mboot.DefaultBootOffsets
	if offsets != "" {
		var err error
		boot, err = parseOffsets(offsets)
		if err != nil {
			fatalUsage("%v", err)
		}
	}

	if outFile != "" {
		if err := mboot.WriteBootHeaders(outFile, boot); err != nil {
			fatalf("write boot headers failed: %v", err)
		}
		return
	}

	header, err := mboot.EncodeBootHeaders(boot)
	if err != nil {
		fatalf("encode boot headers failed: %v", err)
	}
	fmt.Println(hex.Dump(header))
}
