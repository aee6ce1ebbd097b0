// Command usbc-tester builds and deploys the tester's flash image. It
// drives the iCE40 toolchain, composes the multiboot-headed artifacts,
// and talks to the board's SPI flash over an FT2232H adapter.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func fatalUsage(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(2)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
	usbc-tester <command> [arguments]

Commands:
	header	 write a multiboot header file
	image	 compose deployable flash artifacts
	build	 run the gateware toolchain and compose artifacts
	burn	 program an image into the board flash
	read	 read back the board flash
	info	 print FTDI adapter information
`)
	os.Exit(2)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
	}

	switch cmd := flag.Arg(0); cmd {
	case "header":
		headerCommand(flag.Args()[1:])
	case "image":
		imageCommand(flag.Args()[1:])
	case "build":
		buildCommand(flag.Args()[1:])
	case "burn":
		burnCommand(flag.Args()[1:])
	case "read":
		readCommand(flag.Args()[1:])
	case "info":
		infoCommand()
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %q\n", cmd)
		usage()
	}
}

// parseOffsets parses a comma-separated boot offset list; decimal or 0x
// hex values are accepted.
func parseOffsets(s string) ([]uint32, error) {
	if s == "" {
		return nil, nil
	}
	var out []uint32
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("bad boot offset %q: %w", part, err)
		}
		out = append(out, uint32(v))
	}
	return out, nil
}
