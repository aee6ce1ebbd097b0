package toolchain

import (
	"context"
	"fmt"
	"path/filepath"
)

// Flow is one gateware build: yosys synthesis to JSON, nextpnr-ice40
// place and route, icepack bitstream packing. Paths are relative to Dir.
type Flow struct {
	Dir  string // build directory
	Top  string // top-level design name; tool files derive from it
	Srcs []string

	Arch    string // nextpnr architecture, e.g. "up5k"
	Package string // device package, e.g. "sg48"
	Seed    int    // place and route seed
	Placer  string // "heap" or "sa"

	Runner Runner
}

// NewFlow returns a flow with the board's device defaults.
func NewFlow(dir, top string, srcs ...string) *Flow {
	return &Flow{
		Dir:     dir,
		Top:     top,
		Srcs:    srcs,
		Arch:    "up5k",
		Package: "sg48",
		Placer:  "heap",
		Runner:  ExecRunner{},
	}
}

func (f *Flow) json() string    { return f.Top + ".json" }
func (f *Flow) pcf() string     { return f.Top + ".pcf" }
func (f *Flow) asc() string     { return f.Top + ".txt" }
func (f *Flow) bin() string     { return f.Top + ".bin" }
func (f *Flow) prePack() string { return f.Top + "_pre_pack.py" }

// Synthesize runs yosys over the sources, producing the JSON netlist.
// The extra synth passes pack the design tighter into the UP5K.
func (f *Flow) Synthesize(ctx context.Context) error {
	synth := fmt.Sprintf("synth_ice40 -json %s -top %s -relut -abc2 -dffe_min_ce_use 4 -relut", f.json(), f.Top)
	args := []string{"-q", "-l", f.Top + ".rpt"}
	for _, src := range f.Srcs {
		args = append(args, "-p", "read_verilog "+src)
	}
	args = append(args, "-p", synth)

	_, err := f.Runner.Run(ctx, f.Dir, "yosys", args...)
	return err
}

// PlaceAndRoute runs nextpnr-ice40 on the netlist. The pre-pack script
// carries the clock period constraints; loops are allowed for the ring
// oscillator placements.
func (f *Flow) PlaceAndRoute(ctx context.Context) error {
	args := []string{
		"--json", f.json(),
		"--pcf", f.pcf(),
		"--asc", f.asc(),
		"--pre-pack", f.prePack(),
		"--" + f.Arch,
		"--package", f.Package,
		"--seed", fmt.Sprint(f.Seed),
		"--placer", f.Placer,
		"--ignore-loops",
	}
	_, err := f.Runner.Run(ctx, f.Dir, "nextpnr-ice40", args...)
	return err
}

// Pack runs icepack. The -s flag disables the final deep-sleep power
// down so firmware words stay loadable on the softcore's address bus.
func (f *Flow) Pack(ctx context.Context) error {
	_, err := f.Runner.Run(ctx, f.Dir, "icepack", "-s", f.asc(), f.bin())
	return err
}

// Build runs the whole pipeline and returns the path of the packed
// bitstream. The first failing step aborts the flow; nothing downstream
// of a failure runs, so no partial artifact is produced.
func (f *Flow) Build(ctx context.Context) (string, error) {
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"synthesis", f.Synthesize},
		{"place and route", f.PlaceAndRoute},
		{"bitstream packing", f.Pack},
	}
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			return "", fmt.Errorf("%s failed: %w", s.name, err)
		}
	}
	return filepath.Join(f.Dir, f.bin()), nil
}
