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

// Package config holds the user options, the render settings and the
// classification of command line arguments.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUsage is returned for malformed invocations.
var ErrUsage = errors.New("wrong usage")

// Options are the per-invocation toggles.
type Options struct {
	Support bool // draw support structures
	Moves   bool // draw travel moves
	Bed     bool // draw the textured build surface
	Show    bool // open a window instead of writing a file
}

// Defaults returns the options used when no key=value token overrides them.
func Defaults() Options {
	return Options{Support: true, Bed: true}
}

// Set assigns the option named key. Only the literal value "true" turns an
// option on.
func (o *Options) Set(key, value string) error {
	on := value == "true"
	switch key {
	case "support":
		o.Support = on
	case "moves":
		o.Moves = on
	case "bed":
		o.Bed = on
	case "show":
		o.Show = on
	default:
		return fmt.Errorf("unknown option %q", key)
	}
	return nil
}

// Invocation is a classified command line.
type Invocation struct {
	// Batch is set for "batch <dir>"; Path then names the directory.
	Batch   bool
	Path    string
	Options Options

	// Ignored lists the tokens after the file name which are not known
	// key=value options.
	Ignored []string
}

// Classify interprets the positional arguments
//
//	<file> [key=value ...]
//	batch <dir>
//
// Tokens after the file name which are not known options are ignored.
// Malformed invocations give ErrUsage.
func Classify(args []string) (*Invocation, error) {
	if len(args) == 0 || isOption(args[0]) {
		return nil, ErrUsage
	}

	if args[0] == "batch" {
		if len(args) != 2 || isOption(args[1]) {
			return nil, ErrUsage
		}
		return &Invocation{Batch: true, Path: args[1], Options: Defaults()}, nil
	}

	inv := &Invocation{Path: args[0], Options: Defaults()}
	for _, arg := range args[1:] {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || inv.Options.Set(key, value) != nil {
			inv.Ignored = append(inv.Ignored, arg)
		}
	}
	return inv, nil
}

func isOption(arg string) bool {
	return strings.Contains(arg, "=")
}
