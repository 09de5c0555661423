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

package output

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdfcolor "seehuhn.de/go/pdf/graphics/color"

	"seehuhn.de/go/gcode2png/classify"
	"seehuhn.de/go/gcode2png/config"
	"seehuhn.de/go/gcode2png/scene"
)

type recordingViewer struct {
	titles []string
	sizes  []image.Point
	err    error
}

func (v *recordingViewer) Show(title string, img image.Image) error {
	v.titles = append(v.titles, title)
	v.sizes = append(v.sizes, img.Bounds().Size())
	return v.err
}

func writeImage(t *testing.T, name string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	require.NoError(t, imgio.Save(name, img, imgio.PNGEncoder()))
}

func imageSize(t *testing.T, name string) image.Point {
	t.Helper()
	img, err := imgio.Open(name)
	require.NoError(t, err)
	return img.Bounds().Size()
}

// plotted returns a session with a small model plotted on the bed.
func plotted(t *testing.T, s *config.Settings) *scene.Session {
	t.Helper()
	tex := filepath.Join(t.TempDir(), "bed.png")
	writeImage(t, tex, 16, 16)

	sess, err := scene.Open(s)
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })

	require.NoError(t, sess.PlaceBed(tex))
	require.NoError(t, sess.Plot(&classify.Geometry{
		Object: []mgl64.Vec3{{100, 100, 19}, {110, 100, 19}, {110, 110, 20}},
		Travel: []mgl64.Vec3{{110, 110, 20}, {100, 100, 21}},
	}))
	return sess
}

func TestOutputPath(t *testing.T) {
	cases := []struct {
		in     string
		format Format
		want   string
	}{
		{"part.gcode", PNG, "part.png"},
		{"dir/part.GCODE", PNG, "dir/part.png"},
		{"dir.gcode/part.gcode", PDF, "dir.gcode/part.pdf"},
		{"part.gcode.bak", PNG, "part.gcode.bak.png"},
		{"part", PNG, "part.png"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, OutputPath(tc.in, tc.format), tc.in)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, PDF, f)

	_, err = ParseFormat("svg")
	assert.Error(t, err)
}

func TestFinalSize(t *testing.T) {
	cases := []struct {
		w, h, width  int
		wantW, wantH int
	}{
		{800, 600, 800, 800, 600},
		{400, 300, 800, 800, 600},
		{1000, 333, 800, 800, 266},
		{3, 2, 800, 800, 533},
		{1000, 1, 10, 10, 1},
	}
	for _, tc := range cases {
		w, h := FinalSize(tc.w, tc.h, tc.width)
		assert.Equal(t, tc.wantW, w)
		assert.Equal(t, tc.wantH, h, "%dx%d", tc.w, tc.h)
	}
}

func TestRescale(t *testing.T) {
	name := filepath.Join(t.TempDir(), "small.png")
	writeImage(t, name, 40, 30)

	require.NoError(t, Rescale(name, 80))
	assert.Equal(t, image.Pt(80, 60), imageSize(t, name))

	assert.Error(t, Rescale(filepath.Join(t.TempDir(), "missing.png"), 80))
}

func TestExportPNG(t *testing.T) {
	s := config.DefaultSettings()
	sess := plotted(t, s)

	input := filepath.Join(t.TempDir(), "model.gcode")
	d := &Driver{Settings: s}
	out, err := d.Export(sess, input)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(input), "model.png"), out)
	assert.Equal(t, image.Pt(800, 600), imageSize(t, out))
	assert.Equal(t, scene.Closed, sess.State())

	// the export released the session
	again, err := scene.Open(s)
	require.NoError(t, err)
	again.Close()
}

func TestExportScales(t *testing.T) {
	s := config.DefaultSettings()
	s.Width, s.Height = 200, 150
	sess := plotted(t, s)

	d := &Driver{Settings: s, Format: PNG}
	out, err := d.Export(sess, filepath.Join(t.TempDir(), "model.gcode"))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(800, 600), imageSize(t, out))
}

func TestExportPDF(t *testing.T) {
	s := config.DefaultSettings()
	s.Width, s.Height = 200, 150
	s.Lines = config.Lines{Cap: "square", Join: "miter", MiterLimit: 4}
	sess := plotted(t, s)

	d := &Driver{Settings: s, Format: PDF}
	out, err := d.Export(sess, filepath.Join(t.TempDir(), "model.gcode"))
	require.NoError(t, err)
	assert.Equal(t, ".pdf", filepath.Ext(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestPDFColor(t *testing.T) {
	got := pdfColor(config.RGB{0.1, 0.2, 0.3})
	assert.Equal(t, pdfcolor.DeviceRGB{0.1, 0.2, 0.3}, got)
}

func TestExportBeforePlot(t *testing.T) {
	s := config.DefaultSettings()
	sess, err := scene.Open(s)
	require.NoError(t, err)
	defer sess.Close()

	input := filepath.Join(t.TempDir(), "model.gcode")
	_, err = (&Driver{Settings: s}).Export(sess, input)
	assert.ErrorIs(t, err, scene.ErrState)
	assert.NoFileExists(t, OutputPath(input, PNG))
}

func TestShow(t *testing.T) {
	s := config.DefaultSettings()
	s.Width, s.Height = 200, 150
	sess := plotted(t, s)

	v := &recordingViewer{}
	d := &Driver{Settings: s, Viewer: v}
	require.NoError(t, d.Show(sess, "model.gcode"))
	assert.Equal(t, []string{"model.gcode"}, v.titles)
	assert.Equal(t, []image.Point{{200, 150}}, v.sizes)
	assert.Equal(t, scene.Displayed, sess.State())
}

func TestShowErrors(t *testing.T) {
	s := config.DefaultSettings()
	s.Width, s.Height = 200, 150
	sess := plotted(t, s)

	assert.ErrorIs(t, (&Driver{Settings: s}).Show(sess, "x"), ErrNoViewer)

	failed := errors.New("no display")
	d := &Driver{Settings: s, Viewer: &recordingViewer{err: failed}}
	assert.ErrorIs(t, d.Show(sess, "x"), failed)
	assert.Equal(t, scene.Plotted, sess.State())
}
