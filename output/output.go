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

// Package output delivers a plotted scene, either to an interactive
// viewer or to an image file next to the input.
package output

import (
	"errors"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"

	"seehuhn.de/go/gcode2png/config"
	"seehuhn.de/go/gcode2png/scene"
)

// Format is an export file format.
type Format string

// These are the supported export formats.
const (
	PNG Format = "png"
	PDF Format = "pdf"
)

// ParseFormat checks the name of an export format.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case PNG, PDF:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", name)
	}
}

// Viewer displays a rendered frame. Show blocks until the user closes the
// view.
type Viewer interface {
	Show(title string, img image.Image) error
}

// ErrNoViewer is returned by Driver.Show if no viewer is configured.
var ErrNoViewer = errors.New("no viewer available")

// Driver hands plotted sessions to their destination. The camera of a
// session is fixed when it is opened, so both destinations see the same
// view.
type Driver struct {
	Settings *config.Settings
	Format   Format
	Viewer   Viewer
}

// Show displays the frame of s and waits for the viewer to be closed. The
// session is left open.
func (d *Driver) Show(s *scene.Session, title string) error {
	if d.Viewer == nil {
		return ErrNoViewer
	}
	img, err := s.Frame()
	if err != nil {
		return err
	}
	if err := d.Viewer.Show(title, img); err != nil {
		return err
	}
	return s.Finish(scene.Displayed)
}

// Export writes the frame of s to the file derived from input, closes the
// session and returns the name of the written file.
//
// Raster images are written at the render resolution and then scaled once
// to the final width with a Lanczos filter, keeping the aspect ratio.
func (d *Driver) Export(s *scene.Session, input string) (string, error) {
	format := d.Format
	if format == "" {
		format = PNG
	}
	out := OutputPath(input, format)

	var err error
	switch format {
	case PNG:
		err = d.savePNG(s, out)
	case PDF:
		err = d.savePDF(s, out)
	default:
		err = fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return "", err
	}

	if err := s.Finish(scene.Exported); err != nil {
		return "", err
	}
	if err := s.Close(); err != nil {
		return "", err
	}

	if format == PNG {
		if err := Rescale(out, d.Settings.FinalWidth); err != nil {
			return "", err
		}
	}
	return out, nil
}

func (d *Driver) savePNG(s *scene.Session, out string) error {
	img, err := s.Frame()
	if err != nil {
		return err
	}
	return imgio.Save(out, img, imgio.PNGEncoder())
}

// OutputPath returns the name of the image for the toolpath file input:
// a ".gcode" extension is replaced, any other name gets the format's
// extension appended.
func OutputPath(input string, format Format) string {
	ext := filepath.Ext(input)
	if strings.EqualFold(ext, ".gcode") {
		input = strings.TrimSuffix(input, ext)
	}
	return input + "." + string(format)
}

// FinalSize returns the size of a w×h image scaled to the given width.
func FinalSize(w, h, width int) (int, int) {
	height := int(math.Round(float64(h) * float64(width) / float64(w)))
	return width, max(height, 1)
}

// Rescale replaces the image file name by a copy scaled to the given
// width.
func Rescale(name string, width int) error {
	img, err := imgio.Open(name)
	if err != nil {
		return err
	}
	b := img.Bounds()
	w, h := FinalSize(b.Dx(), b.Dy(), width)
	scaled := transform.Resize(img, w, h, transform.Lanczos)

	var enc imgio.Encoder
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		enc = imgio.JPEGEncoder(95)
	default:
		enc = imgio.PNGEncoder()
	}
	return imgio.Save(name, scaled, enc)
}
