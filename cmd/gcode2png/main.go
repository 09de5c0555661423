// seehuhn.de/go/gcode2png - render 3D printer toolpaths to images
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Gcode2png renders the toolpath of a 3D printer G-code file to an image.
//
// Usage:
//
//	gcode2png [flags] <file.gcode> [support=true] [moves=false] [bed=true] [show=false]
//	gcode2png [flags] batch <dir>
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"seehuhn.de/go/gcode2png/config"
	"seehuhn.de/go/gcode2png/job"
	"seehuhn.de/go/gcode2png/output"
	"seehuhn.de/go/gcode2png/viewer"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("gcode2png", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: gcode2png [options] <file.gcode> [key=value ...]\n")
		fmt.Fprintf(stderr, "       gcode2png [options] batch <dir>\n\n")
		fmt.Fprintf(stderr, "gcode2png renders the toolpath of a G-code file to an image next to it.\n\n")
		fmt.Fprintf(stderr, "Keys (only the value \"true\" switches a key on):\n")
		fmt.Fprintf(stderr, "  support   draw support structures (default true)\n")
		fmt.Fprintf(stderr, "  moves     draw travel moves (default false)\n")
		fmt.Fprintf(stderr, "  bed       draw the build surface (default true)\n")
		fmt.Fprintf(stderr, "  show      open a window instead of writing a file (default false)\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		flags.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  gcode2png part.gcode moves=true   # write part.png, with travel moves\n")
		fmt.Fprintf(stderr, "  gcode2png --format pdf part.gcode # write part.pdf\n")
		fmt.Fprintf(stderr, "  gcode2png batch prints/           # render every .gcode file below prints/\n")
	}

	configFlag := flags.StringP("config", "c", "", "Read render settings from this YAML file")
	formatFlag := flags.StringP("format", "f", string(output.PNG), "Output format, png or pdf")
	levelFlag := flags.StringP("log-level", "l", "warn", "Log level: debug, info, warn or error")
	helpFlag := flags.BoolP("help", "h", false, "Show this help message")
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if *helpFlag {
		flags.Usage()
		return 0
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*levelFlag)); err != nil {
		fmt.Fprintf(stderr, "gcode2png: invalid log level %q\n", *levelFlag)
		return 2
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	inv, err := config.Classify(flags.Args())
	if err != nil {
		fmt.Fprintln(stderr, err)
		flags.Usage()
		return 2
	}
	for _, arg := range inv.Ignored {
		logger.Debug("ignoring argument", "arg", arg)
	}

	format, err := output.ParseFormat(*formatFlag)
	if err != nil {
		fmt.Fprintf(stderr, "gcode2png: %v\n", err)
		return 2
	}

	settings := config.DefaultSettings()
	if *configFlag != "" {
		settings, err = config.LoadSettings(*configFlag)
		if err != nil {
			fmt.Fprintf(stderr, "gcode2png: %v\n", err)
			return 1
		}
	}

	runner := &job.Runner{
		Settings: settings,
		Driver: &output.Driver{
			Settings: settings,
			Format:   format,
			Viewer:   &viewer.Window{},
		},
		Stdout: stdout,
		Logger: logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if inv.Batch {
		err = runner.Batch(ctx, inv.Path)
	} else {
		err = runner.Render(ctx, inv.Path, inv.Options)
	}
	if err != nil {
		fmt.Fprintf(stderr, "gcode2png: %v\n", err)
		return 1
	}
	return 0
}
