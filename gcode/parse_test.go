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

package gcode

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, src string) *Model {
	t.Helper()
	m, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	return m
}

func TestParseKinds(t *testing.T) {
	m := parseString(t, `
G90
M82
G1 Z0.2 F1200
G1 X10 Y0 E1.5 ; first extrusion
G0 X20 Y0
G1 E0.5 ; retract
G1 E1.5 ; prime
G1 X20 Y10 E2.5
`)
	require.Nil(t, m.Support)
	require.Len(t, m.Object.Layers, 1)

	// the Z move ends at the new height, so it belongs to the layer
	layer := m.Object.Layers[0]
	assert.Equal(t, 0.2, layer.Z)

	var kinds []Kind
	var cmds []Command
	for _, seg := range layer.Segments {
		kinds = append(kinds, seg.Kind)
		cmds = append(cmds, seg.Command)
	}
	assert.Equal(t, []Kind{Travel, Deposit, Travel, Undefined, Undefined, Deposit}, kinds)
	assert.Equal(t, []Command{Linear, Linear, Rapid, Linear, Linear, Linear}, cmds)
	assert.Equal(t, mgl64.Vec3{20, 10, 0.2}, layer.Segments[5].Pos)
	assert.Equal(t, 9, layer.Segments[5].Line)
}

func TestParseLayers(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 3; i++ {
		b.WriteString("G1 Z" + strconv.Itoa(i) + "\n")
		b.WriteString("G1 X10 E1\nG1 Y10 E2\nG0 X0 Y0\nG92 E0\n")
	}
	m := parseString(t, b.String())

	require.Len(t, m.Object.Layers, 3)
	for i, layer := range m.Object.Layers {
		assert.Equal(t, float64(i+1), layer.Z)
		assert.Len(t, layer.Segments, 4)
	}
	assert.Equal(t, 12, m.Object.NumSegments())
}

func TestParseRelative(t *testing.T) {
	m := parseString(t, `
G91
M83
G1 X5 Y5 E1
G1 X5 E0.5
G90
G1 X0 Y0
`)
	segs := m.Object.Layers[0].Segments
	require.Len(t, segs, 3)
	assert.Equal(t, mgl64.Vec3{5, 5, 0}, segs[0].Pos)
	assert.Equal(t, mgl64.Vec3{10, 5, 0}, segs[1].Pos)
	assert.Equal(t, Deposit, segs[1].Kind)
	assert.Equal(t, Travel, segs[2].Kind)
}

func TestParseInches(t *testing.T) {
	m := parseString(t, "G20\nG1 X1 Y2\n")
	seg := m.Object.Layers[0].Segments[0]
	assert.InDelta(t, 25.4, seg.Pos.X(), 1e-9)
	assert.InDelta(t, 50.8, seg.Pos.Y(), 1e-9)
}

func TestParseSupport(t *testing.T) {
	m := parseString(t, `
;LAYER:0
G1 Z0.3
;TYPE:WALL-OUTER
G1 X10 E1
;TYPE:SUPPORT
G1 X20 E2
G0 X30
; FEATURE: Outer wall
G1 Y10 E3
; FEATURE: Support material interface
G1 Y20 E4
`)
	require.NotNil(t, m.Support)
	assert.Equal(t, 3, m.Support.NumSegments())
	assert.Equal(t, 3, m.Object.NumSegments())
}

func TestParseSyntax(t *testing.T) {
	m := parseString(t, `
N10 G1X10Y5E1*71
g1 x20 y5 e2
G1 (inline comment) X30 Y5 E3
M117 Printing X files
EXCLUDE_OBJECT_DEFINE NAME=part POLYGON=[[0,0],[1,1]]
T0
G28 X0
G1 Y10
`)
	segs := m.Object.Layers[0].Segments
	require.Len(t, segs, 4)
	assert.Equal(t, mgl64.Vec3{10, 5, 0}, segs[0].Pos)
	assert.Equal(t, mgl64.Vec3{20, 5, 0}, segs[1].Pos)
	assert.Equal(t, mgl64.Vec3{30, 5, 0}, segs[2].Pos)
	// G28 X0 homed only the X axis
	assert.Equal(t, mgl64.Vec3{0, 10, 0}, segs[3].Pos)
}

func TestParseArc(t *testing.T) {
	// quarter circle of radius 10 around (10, 0), counter-clockwise
	m := parseString(t, "G1 X20 Y0\nG3 X10 Y10 I-10 J0 E1\n")
	segs := m.Object.Layers[0].Segments
	require.Greater(t, len(segs), 10)

	for _, seg := range segs[1:] {
		assert.Equal(t, Linear, seg.Command)
		assert.Equal(t, Deposit, seg.Kind)
		r := math.Hypot(seg.Pos.X()-10, seg.Pos.Y())
		assert.InDelta(t, 10, r, 1e-9)
	}
	assert.Equal(t, mgl64.Vec3{10, 10, 0}, segs[len(segs)-1].Pos)

	// the clockwise arc between the same points goes the long way round
	m = parseString(t, "G1 X20 Y0\nG2 X10 Y10 I-10 J0\n")
	long := m.Object.Layers[0].Segments
	assert.Greater(t, len(long), 2*len(segs))
	assert.Equal(t, Travel, long[1].Kind)
}

func TestParseFullCircle(t *testing.T) {
	m := parseString(t, "G1 X10 Y0 Z0.2\nG2 X10 Y0 I5 J0 E5\n")
	segs := m.Object.Layers[0].Segments
	require.Greater(t, len(segs), 10)

	for _, seg := range segs[1:] {
		assert.Equal(t, Deposit, seg.Kind)
		r := math.Hypot(seg.Pos.X()-15, seg.Pos.Y())
		assert.InDelta(t, 5, r, 1e-9)
	}
	assert.Equal(t, mgl64.Vec3{10, 0, 0.2}, segs[len(segs)-1].Pos)

	// without extrusion the circle is a travel move
	m = parseString(t, "G1 X10 Y0\nG3 X10 Y0 I5 J0\n")
	for _, seg := range m.Object.Layers[0].Segments[1:] {
		assert.Equal(t, Travel, seg.Kind)
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"G1 X1.2.3\n",
		"G1 X10\nG1 Y\n",
		"G0 X10 #\n",
	} {
		_, err := Parse(strings.NewReader(src))
		var perr *ParseError
		if assert.ErrorAs(t, err, &perr, "input %q", src) {
			assert.Greater(t, perr.Line, 0)
		}
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "part.gcode")
	require.NoError(t, os.WriteFile(name, []byte("G1 X1 E1\n"), 0o644))

	m, err := ParseFile(name)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Object.NumSegments())

	_, err = ParseFile(filepath.Join(dir, "missing.gcode"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	bad := filepath.Join(dir, "bad.gcode")
	require.NoError(t, os.WriteFile(bad, []byte("G1 X1\nG1 Xoops\n"), 0o644))
	_, err = ParseFile(bad)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
	assert.Contains(t, err.Error(), bad)
}

func TestEmpty(t *testing.T) {
	m := parseString(t, "; nothing but comments\nM104 S200\n")
	assert.Empty(t, m.Object.Layers)
	assert.Nil(t, m.Support)
	assert.Equal(t, 0, m.Support.NumSegments())
}
