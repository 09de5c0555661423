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

package scene

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/clone"
	"github.com/go-gl/mathgl/mgl64"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/pdf/graphics"

	"seehuhn.de/go/gcode2png/config"
	"seehuhn.de/go/gcode2png/raster"
)

// Primitive is one drawing operation of a frame, in screen coordinates.
type Primitive struct {
	Path  path.Path
	Color config.RGB

	// Fill selects filling with the nonzero rule. Otherwise the path is
	// stroked using Width, Cap, Join and MiterLimit.
	Fill       bool
	Width      float64
	Cap        graphics.LineCapStyle
	Join       graphics.LineJoinStyle
	MiterLimit float64
}

const (
	// tubeShade darkens the body of a support tube, the highlight along
	// its axis uses the full colour.
	tubeShade     = 0.7
	tubeHighlight = 0.45

	minTubeWidth = 1.0
)

func (s *Session) clear(bg config.RGB) {
	r, g, b := to8(bg[0]), to8(bg[1]), to8(bg[2])
	pix := s.frame.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, 0xff
	}
}

func to8(v float64) uint8 {
	return uint8(math.Round(255 * max(0, min(1, v))))
}

// blend paints colour c over pixel (x, y) with opacity a.
func (s *Session) blend(x, y int, c config.RGB, a float32) {
	if s.settings.Multisamples <= 1 {
		// without anti-aliasing a pixel is either in or out
		if a < 0.5 {
			return
		}
		a = 1
	}
	if a <= 0 {
		return
	}
	alpha := float64(min(a, 1))
	i := s.frame.PixOffset(x, y)
	pix := s.frame.Pix[i : i+3 : i+3]
	for k := range pix {
		old := float64(pix[k]) / 255
		pix[k] = to8(old*(1-alpha) + c[k]*alpha)
	}
}

func (s *Session) resetRaster() {
	b := s.frame.Bounds()
	s.raster.Reset(rect.Rect{URx: float64(b.Dx()), URy: float64(b.Dy())})
}

// paint rasterises prim onto the frame with a uniform colour, and adds it
// to the display list.
func (s *Session) paint(prim Primitive) {
	s.prims = append(s.prims, prim)

	s.resetRaster()
	emit := func(y, xMin int, coverage []float32) {
		for i, a := range coverage {
			s.blend(xMin+i, y, prim.Color, a)
		}
	}
	if prim.Fill {
		s.raster.FillNonZero(prim.Path, emit)
		return
	}
	s.raster.Width = prim.Width
	s.raster.Cap = prim.Cap
	s.raster.Join = prim.Join
	if prim.MiterLimit >= 1 {
		s.raster.MiterLimit = prim.MiterLimit
	}
	s.raster.Stroke(prim.Path, emit)
}

// polyline projects a connected sequence of world points. Parts behind
// the near plane are cut away. The second result is the mean depth of the
// visible points, or zero if nothing is visible.
func (s *Session) polyline(pts []mgl64.Vec3) (*raster.Outline, float64) {
	cam := s.camera
	p := &raster.Outline{}

	var depth float64
	var n int
	views := make([]mgl64.Vec3, len(pts))
	for i, pt := range pts {
		v := cam.ToView(pt)
		views[i] = v
		if cam.Visible(v) {
			depth -= v.Z()
			n++
		}
	}
	if n == 0 {
		return p, 0
	}

	if len(views) == 1 {
		q := cam.ProjectView(views[0])
		return p.MoveTo(q).LineTo(q), depth
	}

	penDown := false
	for i := 1; i < len(views); i++ {
		a, b, ok := cam.clipNear(views[i-1], views[i])
		if !ok {
			penDown = false
			continue
		}
		if !penDown || a != views[i-1] {
			p.MoveTo(cam.ProjectView(a))
		}
		p.LineTo(cam.ProjectView(b))
		penDown = b == views[i]
	}
	return p, depth / float64(n)
}

// drawLine draws pts as one thin connected line.
func (s *Session) drawLine(pts []mgl64.Vec3, c config.RGB) {
	if len(pts) == 0 {
		return
	}
	p, _ := s.polyline(pts)
	if p.Len() == 0 {
		return
	}
	lines := s.settings.Lines
	s.paint(Primitive{
		Path:       p.Path(),
		Color:      c,
		Width:      s.settings.LineWidth,
		Cap:        lines.CapStyle(),
		Join:       lines.JoinStyle(),
		MiterLimit: lines.MiterLimit,
	})
}

// drawTube draws pts as a shaded tube of the configured radius. The
// screen width of the tube is taken at the mean depth of its points.
func (s *Session) drawTube(pts []mgl64.Vec3, c config.RGB) {
	p, depth := s.polyline(pts)
	if p.Len() == 0 {
		return
	}
	width := max(2*s.settings.TubeRadius*s.camera.PixelsPerUnit(depth), minTubeWidth)

	body := Primitive{
		Path:  p.Path(),
		Color: config.RGB{c[0] * tubeShade, c[1] * tubeShade, c[2] * tubeShade},
		Width: width,
		Cap:   graphics.LineCapRound,
		Join:  graphics.LineJoinRound,
	}
	s.paint(body)

	highlight := body
	highlight.Color = c
	highlight.Width = width * tubeHighlight
	s.paint(highlight)
}

// bedCorners returns the build surface outline in world coordinates.
func (s *Session) bedCorners() []mgl64.Vec3 {
	b := s.settings.Bed
	return []mgl64.Vec3{
		{0, 0, b.Z},
		{b.Width, 0, b.Z},
		{b.Width, b.Depth, b.Z},
		{0, b.Depth, b.Z},
	}
}

// drawBed fills the visible part of the build surface. Each pixel shows
// the texture point hit by the ray through its centre, tinted with the
// bed colour.
func (s *Session) drawBed(texture image.Image) {
	cam := s.camera
	var views []mgl64.Vec3
	for _, pt := range s.bedCorners() {
		views = append(views, cam.ToView(pt))
	}
	views = cam.clipPolygon(views)
	if len(views) < 3 {
		return
	}

	p := (&raster.Outline{}).MoveTo(cam.ProjectView(views[0]))
	for _, v := range views[1:] {
		p.LineTo(cam.ProjectView(v))
	}
	outline := p.Close().Path()

	bedColor := s.settings.Colors.Bed
	s.prims = append(s.prims, Primitive{Path: outline, Color: bedColor, Fill: true})

	tex := clone.AsShallowRGBA(texture)
	s.resetRaster()
	s.raster.FillNonZero(outline, func(y, xMin int, coverage []float32) {
		for i, a := range coverage {
			x := xMin + i
			s.blend(x, y, s.bedColorAt(tex, x, y, bedColor), a)
		}
	})
}

// bedColorAt returns the colour of the build surface seen at pixel (x, y).
func (s *Session) bedColorAt(tex *image.RGBA, x, y int, tint config.RGB) config.RGB {
	origin, dir := s.camera.Ray(float64(x)+0.5, float64(y)+0.5)
	b := s.settings.Bed
	if dir.Z() == 0 {
		return tint
	}
	t := (b.Z - origin.Z()) / dir.Z()
	hit := origin.Add(dir.Mul(t))

	u := max(0, min(1, hit.X()/b.Width))
	v := max(0, min(1, hit.Y()/b.Depth))

	// image rows run from the back of the bed to the front
	bounds := tex.Bounds()
	if bounds.Empty() {
		return tint
	}
	tx := bounds.Min.X + int(math.Round(u*float64(bounds.Dx()-1)))
	ty := bounds.Min.Y + int(math.Round((1-v)*float64(bounds.Dy()-1)))
	i := tex.PixOffset(tx, ty)
	px := tex.Pix[i : i+3 : i+3]
	return config.RGB{
		tint[0] * float64(px[0]) / 255,
		tint[1] * float64(px[1]) / 255,
		tint[2] * float64(px[2]) / 255,
	}
}

// clipPolygon cuts a convex camera space polygon at the near plane.
func (c *Camera) clipPolygon(vs []mgl64.Vec3) []mgl64.Vec3 {
	var out []mgl64.Vec3
	for i, cur := range vs {
		prev := vs[(i+len(vs)-1)%len(vs)]
		a, b, ok := c.clipNear(prev, cur)
		if !ok {
			continue
		}
		if !c.Visible(prev) {
			out = append(out, a)
		}
		out = append(out, b)
	}
	return out
}
