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

package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"testing"

	"golang.org/x/image/vector"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// spiral returns the points of an infill-like spiral filling a square
// of the given size.
func spiral(size float64, turns int) []vec.Vec2 {
	var pts []vec.Vec2
	n := turns * 64
	for i := range n {
		t := float64(i) / float64(n)
		a := 2 * math.Pi * float64(turns) * t
		r := size * 0.45 * t
		pts = append(pts, vec.Vec2{X: size/2 + r*math.Cos(a), Y: size/2 + r*math.Sin(a)})
	}
	return pts
}

// BenchmarkStrokeSpiral measures stroking a long toolpath-like polyline.
func BenchmarkStrokeSpiral(b *testing.B) {
	for _, size := range []int{200, 800} {
		b.Run(fmt.Sprintf("%dx%d", size, size), func(b *testing.B) {
			clip := rect.Rect{URx: float64(size), URy: float64(size)}
			r := New(clip)
			dst := image.NewAlpha(image.Rect(0, 0, size, size))

			pts := spiral(float64(size), 40)
			o := (&Outline{}).MoveTo(pts[0])
			for _, pt := range pts[1:] {
				o.LineTo(pt)
			}
			p := o.Path()

			b.ReportAllocs()
			for b.Loop() {
				r.Reset(clip)
				r.Width = 2
				r.Stroke(p, func(y, xMin int, coverage []float32) {
					row := dst.Pix[y*dst.Stride+xMin:]
					for i, c := range coverage {
						row[i] = uint8(c * 255)
					}
				})
			}
		})
	}
}

// BenchmarkVectorQuad fills a projected bed quad with x/image/vector, for
// comparison with BenchmarkFillQuad.
func BenchmarkVectorQuad(b *testing.B) {
	const w, h = 800, 600
	r := vector.NewRasterizer(w, h)
	dst := image.NewAlpha(image.Rect(0, 0, w, h))
	src := image.NewUniform(color.Alpha{255})

	for b.Loop() {
		r.Reset(w, h)
		r.MoveTo(120, 80)
		r.LineTo(700, 140)
		r.LineTo(620, 560)
		r.LineTo(60, 430)
		r.ClosePath()
		r.Draw(dst, dst.Bounds(), src, image.Point{})
	}
}

// BenchmarkFillQuad fills the same quad as BenchmarkVectorQuad.
func BenchmarkFillQuad(b *testing.B) {
	const w, h = 800, 600
	clip := rect.Rect{URx: w, URy: h}
	r := New(clip)
	dst := image.NewAlpha(image.Rect(0, 0, w, h))
	quad := (&Outline{}).
		MoveTo(vec.Vec2{X: 120, Y: 80}).
		LineTo(vec.Vec2{X: 700, Y: 140}).
		LineTo(vec.Vec2{X: 620, Y: 560}).
		LineTo(vec.Vec2{X: 60, Y: 430}).
		Close().
		Path()

	b.ReportAllocs()
	for b.Loop() {
		r.Reset(clip)
		r.FillNonZero(quad, func(y, xMin int, coverage []float32) {
			row := dst.Pix[y*dst.Stride+xMin:]
			for i, c := range coverage {
				row[i] = uint8(c * 255)
			}
		})
	}
}
