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

// Package job runs the render lifecycle for single toolpath files and for
// directories of them.
package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"seehuhn.de/go/gcode2png/classify"
	"seehuhn.de/go/gcode2png/config"
	"seehuhn.de/go/gcode2png/gcode"
	"seehuhn.de/go/gcode2png/output"
	"seehuhn.de/go/gcode2png/scene"
)

// Renderer renders one toolpath file.
type Renderer interface {
	Render(ctx context.Context, path string, opt config.Options) error
}

// Runner renders toolpath files with fixed settings.
type Runner struct {
	Settings *config.Settings
	Driver   *output.Driver

	// Stdout receives the names of files processed in batch mode.
	Stdout io.Writer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Render reads, classifies and draws the toolpath in path, then shows or
// exports the result.
//
// The file is parsed before the render session is opened, so that input
// errors never hold the session. The session is closed on all paths.
func (r *Runner) Render(ctx context.Context, path string, opt config.Options) error {
	log := r.logger().With("file", path)

	m, err := gcode.ParseFile(path)
	if err != nil {
		return err
	}
	strategy := classify.StrategyFor(m)
	g := classify.Classify(m, classify.Options{Moves: opt.Moves, Support: opt.Support})
	log.Debug("classified toolpath",
		"strategy", strategy,
		"object", len(g.Object),
		"travel", len(g.Travel),
		"support", len(g.Support))

	sess, err := scene.Open(r.Settings)
	if err != nil {
		return err
	}
	defer sess.Close()

	if opt.Bed {
		if err := sess.PlaceBed(r.Settings.Texture); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := sess.Plot(g); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if opt.Show {
		return r.Driver.Show(sess, filepath.Base(path))
	}
	out, err := r.Driver.Export(sess, path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	log.Info("image written", "output", out)
	return nil
}

// Batch renders every toolpath file below dir with default options.
func (r *Runner) Batch(ctx context.Context, dir string) error {
	return Batch(ctx, dir, r, r.Stdout, r.logger())
}

// Batch renders the files found by Discover one after the other. The
// name of each file is printed to stdout before it is rendered. A failed
// file does not stop the batch; all errors are returned together.
// Cancellation of ctx is checked between files.
func Batch(ctx context.Context, dir string, rend Renderer, stdout io.Writer, log *slog.Logger) error {
	files, err := Discover(dir)
	if err != nil {
		return err
	}
	if stdout == nil {
		stdout = io.Discard
	}

	var errs []error
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		fmt.Fprintln(stdout, name)
		if err := rend.Render(ctx, name, config.Defaults()); err != nil {
			log.Error("render failed", "file", name, "error", err)
			errs = append(errs, err)
		}
	}
	log.Debug("batch done", "files", len(files), "failed", len(errs))
	return errors.Join(errs...)
}

// Discover returns all files below dir whose name contains ".gcode", in
// lexical walk order.
func Discover(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.Contains(d.Name(), ".gcode") {
			files = append(files, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
