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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seehuhn.de/go/pdf/graphics"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want *Invocation
	}{
		{
			name: "defaults",
			args: []string{"part.gcode"},
			want: &Invocation{Path: "part.gcode", Options: Options{Support: true, Bed: true}},
		},
		{
			name: "options",
			args: []string{"part.gcode", "moves=true", "support=false", "bed=no", "show=true"},
			want: &Invocation{Path: "part.gcode", Options: Options{Moves: true, Show: true}},
		},
		{
			name: "unknown tokens",
			args: []string{"part.gcode", "colour=red", "extra", "moves=TRUE"},
			want: &Invocation{
				Path:    "part.gcode",
				Options: Options{Support: true, Bed: true},
				Ignored: []string{"colour=red", "extra"},
			},
		},
		{
			name: "batch",
			args: []string{"batch", "prints"},
			want: &Invocation{Batch: true, Path: "prints", Options: Defaults()},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Classify(tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyUsage(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"moves=true"},
		{"moves=true", "part.gcode"},
		{"batch"},
		{"batch", "show=true"},
		{"batch", "dir", "moves=true"},
	} {
		inv, err := Classify(args)
		assert.ErrorIs(t, err, ErrUsage, "%q", args)
		assert.Nil(t, inv)
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, 800, s.Width)
	assert.Equal(t, 600, s.Height)
	assert.Equal(t, TextureName, filepath.Base(s.Texture))
	assert.Equal(t, [3]float64{105, 105, 20}, s.Camera.Focal)
}

func TestReadSettings(t *testing.T) {
	s, err := ReadSettings(strings.NewReader(`
width: 400
height: 300
bed:
  width: 250
colors:
  travel: [0, 1, 0]
camera:
  distance: 400
`))
	require.NoError(t, err)

	assert.Equal(t, 400, s.Width)
	assert.Equal(t, 300, s.Height)
	assert.Equal(t, 250.0, s.Bed.Width)
	assert.Equal(t, 210.0, s.Bed.Depth, "unset keys keep their defaults")
	assert.Equal(t, RGB{0, 1, 0}, s.Colors.Travel)
	assert.Equal(t, RGB{0, 0.498, 0.996}, s.Colors.Object)
	assert.Equal(t, 400.0, s.Camera.Distance)
	assert.Equal(t, 320.0, s.Camera.Azimuth)

	// an empty file is fine
	s, err = ReadSettings(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestReadSettingsInvalid(t *testing.T) {
	for _, src := range []string{
		"width: 0\n",
		"line_width: -1\n",
		"camera:\n  view_angle: 180\n",
		"multisamples: -2\n",
		"lines:\n  cap: pointy\n",
		"lines:\n  join: mitre\n",
		"lines:\n  miter_limit: 0.5\n",
		"width: [1, 2]\n",
	} {
		_, err := ReadSettings(strings.NewReader(src))
		assert.Error(t, err, "%q", src)
	}
}

func TestLineStyle(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, graphics.LineCapButt, s.Lines.CapStyle())
	assert.Equal(t, graphics.LineJoinRound, s.Lines.JoinStyle())

	s, err := ReadSettings(strings.NewReader(`
lines:
  cap: square
  join: miter
  miter_limit: 4
`))
	require.NoError(t, err)
	assert.Equal(t, graphics.LineCapSquare, s.Lines.CapStyle())
	assert.Equal(t, graphics.LineJoinMiter, s.Lines.JoinStyle())
	assert.Equal(t, 4.0, s.Lines.MiterLimit)

	s.Lines.Join = "bevel"
	assert.Equal(t, graphics.LineJoinBevel, s.Lines.JoinStyle())
}

func TestOptionsSet(t *testing.T) {
	o := Defaults()
	require.NoError(t, o.Set("moves", "true"))
	require.NoError(t, o.Set("bed", "1"))
	assert.True(t, o.Moves)
	assert.False(t, o.Bed, `only "true" turns an option on`)
	assert.Error(t, o.Set("colour", "red"))
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(name, []byte("final_width: 1024\n"), 0o644))

	s, err := LoadSettings(name)
	require.NoError(t, err)
	assert.Equal(t, 1024, s.FinalWidth)

	_, err = LoadSettings(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
