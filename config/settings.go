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

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"seehuhn.de/go/pdf/graphics"
)

// TextureName is the file name of the default bed texture, which is
// looked up next to the executable.
const TextureName = "bed_texture.jpg"

// RGB is a colour with components in [0, 1].
type RGB [3]float64

// Palette gives the colour of each drawn element.
type Palette struct {
	Object     RGB `yaml:"object"`
	Travel     RGB `yaml:"travel"`
	Support    RGB `yaml:"support"`
	Bed        RGB `yaml:"bed"`
	Background RGB `yaml:"background"`
}

// Bed describes the build surface.
type Bed struct {
	Width float64 `yaml:"width"`
	Depth float64 `yaml:"depth"`
	Z     float64 `yaml:"z"`
}

// Camera is the fixed view point. Angles are in degrees.
type Camera struct {
	Azimuth   float64    `yaml:"azimuth"`
	Elevation float64    `yaml:"elevation"`
	Distance  float64    `yaml:"distance"`
	Focal     [3]float64 `yaml:"focal"`
	ViewAngle float64    `yaml:"view_angle"`
}

var lineCaps = map[string]graphics.LineCapStyle{
	"butt":   graphics.LineCapButt,
	"round":  graphics.LineCapRound,
	"square": graphics.LineCapSquare,
}

var lineJoins = map[string]graphics.LineJoinStyle{
	"miter": graphics.LineJoinMiter,
	"round": graphics.LineJoinRound,
	"bevel": graphics.LineJoinBevel,
}

// Lines is the stroke style of object and travel moves.
type Lines struct {
	Cap        string  `yaml:"cap"`
	Join       string  `yaml:"join"`
	MiterLimit float64 `yaml:"miter_limit"`
}

// CapStyle returns the cap style named by l.Cap, or butt caps for an
// unknown name.
func (l Lines) CapStyle() graphics.LineCapStyle {
	return lineCaps[l.Cap]
}

// JoinStyle returns the join style named by l.Join, or round joins for an
// unknown name.
func (l Lines) JoinStyle() graphics.LineJoinStyle {
	if j, ok := lineJoins[l.Join]; ok {
		return j
	}
	return graphics.LineJoinRound
}

// Settings are the constants of a render.
type Settings struct {
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	FinalWidth   int     `yaml:"final_width"`
	LineWidth    float64 `yaml:"line_width"`
	TubeRadius   float64 `yaml:"tube_radius"`
	Multisamples int     `yaml:"multisamples"`
	Texture      string  `yaml:"texture"`

	Lines  Lines   `yaml:"lines"`
	Bed    Bed     `yaml:"bed"`
	Colors Palette `yaml:"colors"`
	Camera Camera  `yaml:"camera"`
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() *Settings {
	return &Settings{
		Width:        800,
		Height:       600,
		FinalWidth:   800,
		LineWidth:    2,
		TubeRadius:   0.5,
		Multisamples: 8,
		Texture:      defaultTexture(),
		Lines:        Lines{Cap: "butt", Join: "round", MiterLimit: 10},
		Bed:          Bed{Width: 210, Depth: 210, Z: 0.1},
		Colors: Palette{
			Object:     RGB{0, 0.498, 0.996},
			Travel:     RGB{1, 0, 0},
			Support:    RGB{0.7529, 0.7529, 0.7529},
			Bed:        RGB{0.7, 0.7, 0.7},
			Background: RGB{1, 1, 1},
		},
		Camera: Camera{
			Azimuth:   320,
			Elevation: 70,
			Distance:  20,
			Focal:     [3]float64{105, 105, 20},
			ViewAngle: 30,
		},
	}
}

func defaultTexture() string {
	exe, err := os.Executable()
	if err != nil {
		return TextureName
	}
	return filepath.Join(filepath.Dir(exe), TextureName)
}

// LoadSettings reads a YAML settings file. Keys missing from the file keep
// their default values.
func LoadSettings(name string) (*Settings, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := ReadSettings(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

// ReadSettings reads YAML settings from r.
func ReadSettings(r io.Reader) (*Settings, error) {
	s := DefaultSettings()
	err := yaml.NewDecoder(r).Decode(s)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that all sizes are positive.
func (s *Settings) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if !(v > 0) {
			errs = append(errs, fmt.Errorf("%s must be positive, got %g", name, v))
		}
	}
	positive("width", float64(s.Width))
	positive("height", float64(s.Height))
	positive("final_width", float64(s.FinalWidth))
	positive("line_width", s.LineWidth)
	positive("tube_radius", s.TubeRadius)
	positive("bed.width", s.Bed.Width)
	positive("bed.depth", s.Bed.Depth)
	positive("camera.distance", s.Camera.Distance)
	if a := s.Camera.ViewAngle; !(a > 0 && a < 180) {
		errs = append(errs, fmt.Errorf("camera.view_angle must be in (0, 180), got %g", a))
	}
	if _, ok := lineCaps[s.Lines.Cap]; !ok {
		errs = append(errs, fmt.Errorf("lines.cap must be butt, round or square, got %q", s.Lines.Cap))
	}
	if _, ok := lineJoins[s.Lines.Join]; !ok {
		errs = append(errs, fmt.Errorf("lines.join must be miter, round or bevel, got %q", s.Lines.Join))
	}
	if !(s.Lines.MiterLimit >= 1) {
		errs = append(errs, fmt.Errorf("lines.miter_limit must be at least 1, got %g", s.Lines.MiterLimit))
	}
	if s.Multisamples < 0 {
		errs = append(errs, fmt.Errorf("multisamples must not be negative, got %d", s.Multisamples))
	}
	return errors.Join(errs...)
}
