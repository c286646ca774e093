// trapsim boots the kernel interrupt layer inside a regular process. The
// trap dispatcher, PIC driver, keyboard decoder and console run unmodified
// on top of a simulated CPU and PIC pair.
package main

import (
	"gopherirq/kernel/hal"
	"os"
	"time"

	"github.com/alecthomas/kong"
)

func main() {
	var cli struct {
		Run runCmd `cmd default:"1" help:"Boot the interrupt layer and type into it. Press Ctrl+] to exit."`
	}

	ctx := kong.Parse(&cli,
		kong.Name("trapsim"),
		kong.Description("Simulator for the kernel trap dispatcher and text console."),
	)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}

type runCmd struct {
	Ticks        int           `name:"ticks" help:"Number of timer interrupts to fire. Interactive sessions end after this many ticks (0 means never)."`
	TickInterval time.Duration `name:"tick-interval" default:"250ms" help:"Timer interrupt period in interactive mode."`
	CmdLine      string        `name:"cmdline" help:"Kernel command line, e.g. \"consoleFg=14 kbdCtrl=map\"."`
	Script       string        `name:"script" type:"existingfile" help:"Type the contents of this file instead of reading the terminal and print the final screen."`
	Frames       bool          `name:"frames" help:"In script mode, also print the screen after every typed line."`
	Int3         bool          `name:"int3" help:"Raise a breakpoint exception right after boot."`
}

func (r *runCmd) Run(ctx *kong.Context) error {
	cmdLine := r.CmdLine
	if r.Int3 {
		cmdLine += " " + hal.KeyBreakpoint
	}

	sim, err := newSimulator(cmdLine, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}
	defer sim.summary(os.Stderr)

	if r.Script != "" {
		input, err := os.ReadFile(r.Script)
		if err != nil {
			return err
		}
		return sim.runScript(input, r.Ticks, r.Frames)
	}

	return sim.runInteractive(newStdinHost(int(os.Stdin.Fd())), r.TickInterval, r.Ticks)
}
