// Command clockctl works with RP2350 clock plans and with a board running
// the picoclock firmware.
//
//	clockctl plan [-o text|yaml] FILE    apply a plan to the simulator
//	clockctl init [-xosc FREQ]           print the default plan
//	clockctl query [-device DEV]         list the board's clocks
//	clockctl set [-device DEV] -clock C -source S (-div N | -freq F)
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"picoclock/clocks"
	"picoclock/core"
	"picoclock/host/mcu"
	"picoclock/plan"
	"picoclock/targets/sim"
)

const defaultDevice = "/dev/ttyACM0"

var errUsage = errors.New("usage: clockctl plan|init|query|set [flags]")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "clockctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "plan":
		return runPlan(args[1:], out)
	case "init":
		return runInit(args[1:], out)
	case "query":
		return runQuery(args[1:], out)
	case "set":
		return runSet(args[1:], out)
	}
	return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
}

func runPlan(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	format := fs.String("o", "text", "Output format: text or yaml")
	verbose := fs.Bool("verbose", false, "Log every mux switch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("plan: expected one plan file")
	}

	logger := initLogger("clockctl", *verbose)
	p, err := plan.Load(fs.Arg(0))
	if err != nil {
		return err
	}

	tree, err := applyToSim(p)
	if err != nil {
		return err
	}
	logger.Info().Str("plan", fs.Arg(0)).Int("switches", len(tree.Manager.RecentSwitches())).Msg("plan applied")
	return writeSnapshot(out, *format, tree.Manager.Snapshot())
}

// applyToSim runs p against a simulated chip fitted with the crystal and
// GPIN signals the plan declares.
func applyToSim(p *plan.Plan) (*clocks.Tree, error) {
	cfg := sim.DefaultConfig()
	cfg.XOSC = p.XOSC.Frequency.Hertz()
	cfg.GPIn = [2]clocks.Hertz{p.GPIn.GPIn0.Hertz(), p.GPIn.GPIn1.Hertz()}
	if f := p.ROSC.Frequency.Hertz(); f != 0 {
		cfg.ROSC = f
	}
	return p.Apply(sim.New(cfg), clocks.DefaultConfig())
}

func runInit(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	xosc := fs.String("xosc", "12 MHz", "Crystal frequency")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := plan.ParseFrequency(*xosc)
	if err != nil {
		return err
	}
	return plan.Default(f).Encode(out)
}

func runQuery(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	device := fs.String("device", defaultDevice, "Serial device path")
	format := fs.String("o", "text", "Output format: text or yaml")
	verbose := fs.Bool("verbose", false, "Enable verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := connect(*device, *verbose)
	if err != nil {
		return err
	}
	defer m.Close()

	status, err := m.GetClocks()
	if err != nil {
		return err
	}
	return writeSnapshot(out, *format, status)
}

func runSet(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	device := fs.String("device", defaultDevice, "Serial device path")
	clockName := fs.String("clock", "", "Clock to configure (ref, sys, peri, gpout0, ...)")
	sourceName := fs.String("source", "", "Source to switch to (xosc, pll_sys, clk_sys, ...)")
	div := fs.Uint("div", 0, "Integer divider")
	freq := fs.String("freq", "", "Target frequency, e.g. \"10 MHz\"")
	verbose := fs.Bool("verbose", false, "Enable verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := parseSet(*clockName, *sourceName, *div, *freq)
	if err != nil {
		return err
	}

	m, err := connect(*device, *verbose)
	if err != nil {
		return err
	}
	defer m.Close()

	st, err := m.ConfigureClock(req.clock, req.source, req.divider, req.target)
	if err != nil {
		return err
	}
	return writeSnapshot(out, "text", []clocks.Status{st})
}

type setRequest struct {
	clock   clocks.ClockID
	source  clocks.SourceID
	divider uint32
	target  clocks.Hertz
}

func parseSet(clockName, sourceName string, div uint, freq string) (setRequest, error) {
	var req setRequest
	var ok bool
	if req.clock, ok = clocks.ParseClockID(clockName); !ok {
		return req, fmt.Errorf("set: unknown clock %q", clockName)
	}
	if req.source, ok = clocks.ParseSourceID(sourceName); !ok {
		return req, fmt.Errorf("set: unknown source %q", sourceName)
	}
	if (div == 0) == (freq == "") {
		return req, errors.New("set: give exactly one of -div and -freq")
	}
	if div > uint(^uint32(0)) {
		return req, fmt.Errorf("set: divider %d out of range", div)
	}
	req.divider = uint32(div)
	if freq != "" {
		f, err := plan.ParseFrequency(freq)
		if err != nil {
			return req, err
		}
		req.target = f
	}
	return req, nil
}

func connect(device string, verbose bool) (*mcu.MCU, error) {
	logger := initLogger("clockctl", verbose)
	m := mcu.NewMCU(logger)
	logger.Debug().Str("device", device).Msg("connecting")
	if err := m.Connect(device); err != nil {
		return nil, fmt.Errorf("connect %s: %w", device, err)
	}
	return m, nil
}

// initLogger also routes the clock engine's debug lines into the logger.
func initLogger(app string, verbose bool) zerolog.Logger {
	logger := newLogger(app)
	if verbose {
		logger = logger.Level(zerolog.DebugLevel)
		core.SetDebugWriter(func(msg string) { logger.Debug().Msg(msg) })
		core.SetDebugEnabled(true)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}
	return logger
}
