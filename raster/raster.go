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

// Package raster converts projected toolpath outlines into per-pixel
// coverage values.
//
// Paths are polylines in device pixels: the scene package projects the 3D
// toolpath through its camera before handing the outlines to the
// rasteriser, so curve segments never occur. If a path does contain
// quadratic or cubic segments, they are replaced by their chord.
package raster

import (
	"cmp"
	"math"
	"slices"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// EmitFunc receives the coverage of one pixel row. The coverage slice
// starts at pixel xMin and is only valid during the call.
type EmitFunc func(y, xMin int, coverage []float32)

// edge is a line segment in device coordinates.
type edge struct {
	x0, y0 float64
	x1, y1 float64
	dxdy   float64 // (x1-x0)/(y1-y0)
}

// Rasteriser computes the exact area coverage of filled and stroked paths.
// One instance is reused for all primitives of a frame; internal buffers
// grow as needed but never shrink.
//
// A Rasteriser is not safe for concurrent use.
type Rasteriser struct {
	// Clip bounds the output. Coordinates must be integer-aligned.
	Clip rect.Rect

	// Width is the stroke width in pixels.
	Width float64

	// Cap is the style used at the open ends of a stroked polyline.
	Cap graphics.LineCapStyle

	// Join is the style used where two stroke segments meet.
	Join graphics.LineJoinStyle

	// MiterLimit converts miter joins to bevels above this ratio.
	// Must be at least 1.
	MiterLimit float64

	// Flatness is the maximal chord error, in device pixels, when round
	// caps and joins are approximated by polygons.
	Flatness float64

	// smallPathThreshold is the largest bounding box area (in pixels)
	// rasterised with full 2D buffers; larger areas use an active edge
	// list.
	smallPathThreshold int

	cover         []float32
	area          []float32
	edges         []edge
	activeIdx     []int
	rowHasEdges   []bool
	stroke        []vec.Vec2 // stroke outline vertices, all polygons contiguous
	strokeOffsets []int      // start of each polygon in stroke

	segs             []strokeSegment
	segsOffsets      []int
	subpathClosed    []bool
	degeneratePoints []vec.Vec2

	edgeBBoxFirst bool
	edgeDevXMin   float64
	edgeDevXMax   float64
	edgeDevYMin   float64
	edgeDevYMax   float64
}

// New returns a Rasteriser for the given clip rectangle, with one pixel
// wide butt-capped strokes and miter joins.
func New(clip rect.Rect) *Rasteriser {
	r := &Rasteriser{}
	r.Reset(clip)
	return r
}

// Reset restores the default drawing parameters and sets a new clip
// rectangle. Buffer capacity is kept.
func (r *Rasteriser) Reset(clip rect.Rect) {
	r.Clip = clip
	r.Width = 1.0
	r.Cap = graphics.LineCapButt
	r.Join = graphics.LineJoinMiter
	r.MiterLimit = defaultMiterLimit
	r.Flatness = defaultFlatness
	r.smallPathThreshold = smallPathThreshold

	r.cover = r.cover[:0]
	r.area = r.area[:0]
	r.edges = r.edges[:0]
	r.activeIdx = r.activeIdx[:0]
	r.rowHasEdges = r.rowHasEdges[:0]
	r.stroke = r.stroke[:0]
	r.strokeOffsets = r.strokeOffsets[:0]
	r.segs = r.segs[:0]
	r.segsOffsets = r.segsOffsets[:0]
	r.subpathClosed = r.subpathClosed[:0]
	r.degeneratePoints = r.degeneratePoints[:0]
}

// FillNonZero fills p using the nonzero winding rule. Open subpaths are
// closed implicitly.
func (r *Rasteriser) FillNonZero(p path.Path, emit EmitFunc) {
	xMin, xMax, yMin, yMax, ok := r.collectPathEdges(p)
	if !ok {
		return
	}
	r.scan(xMin, xMax, yMin, yMax, emit)
}

// scan picks the buffer strategy from the bounding box size.
func (r *Rasteriser) scan(xMin, xMax, yMin, yMax int, emit EmitFunc) {
	if (xMax-xMin)*(yMax-yMin) < r.smallPathThreshold {
		r.fillSmallPath(xMin, xMax, yMin, yMax, emit)
	} else {
		r.fillLargePath(xMin, xMax, yMin, yMax, emit)
	}
}

// collectPathEdges builds the edge list of p and returns its bounding box
// clamped to the clip rectangle.
func (r *Rasteriser) collectPathEdges(p path.Path) (xMin, xMax, yMin, yMax int, ok bool) {
	r.edges = r.edges[:0]
	r.edgeBBoxFirst = true

	var current, subpath vec.Vec2
	closeSubpath := func() {
		if current != subpath {
			r.addEdge(current, subpath)
		}
		current = subpath
	}
	for cmd, pts := range p {
		switch cmd {
		case path.CmdMoveTo:
			closeSubpath()
			current = pts[0]
			subpath = current

		case path.CmdLineTo, path.CmdQuadTo, path.CmdCubeTo:
			to := pts[len(pts)-1]
			r.addEdge(current, to)
			current = to

		case path.CmdClose:
			closeSubpath()
		}
	}
	closeSubpath()

	return r.edgeBounds()
}

// edgeBounds converts the accumulated edge bounding box to integer pixel
// bounds inside the clip rectangle.
func (r *Rasteriser) edgeBounds() (xMin, xMax, yMin, yMax int, ok bool) {
	if len(r.edges) == 0 {
		return 0, 0, 0, 0, false
	}

	xMin = max(int(math.Floor(r.edgeDevXMin)), int(r.Clip.LLx))
	xMax = min(int(math.Floor(r.edgeDevXMax))+1, int(r.Clip.URx))
	yMin = max(int(math.Floor(r.edgeDevYMin)), int(r.Clip.LLy))
	yMax = min(int(math.Floor(r.edgeDevYMax))+1, int(r.Clip.URy))

	if xMin >= xMax || yMin >= yMax {
		return 0, 0, 0, 0, false
	}
	return xMin, xMax, yMin, yMax, true
}

// addEdge appends p0→p1 to the edge list.
func (r *Rasteriser) addEdge(p0, p1 vec.Vec2) {
	dx0, dy0 := p0.X, p0.Y
	dx1, dy1 := p1.X, p1.Y

	// horizontal edges carry no coverage
	dy := dy1 - dy0
	if dy > -horizontalEdgeThreshold && dy < horizontalEdgeThreshold {
		return
	}

	r.edges = append(r.edges, edge{
		x0: dx0, y0: dy0,
		x1: dx1, y1: dy1,
		dxdy: (dx1 - dx0) / dy,
	})

	if r.edgeBBoxFirst {
		r.edgeDevXMin = min(dx0, dx1)
		r.edgeDevXMax = max(dx0, dx1)
		r.edgeDevYMin = min(dy0, dy1)
		r.edgeDevYMax = max(dy0, dy1)
		r.edgeBBoxFirst = false
	} else {
		r.edgeDevXMin = min(r.edgeDevXMin, dx0, dx1)
		r.edgeDevXMax = max(r.edgeDevXMax, dx0, dx1)
		r.edgeDevYMin = min(r.edgeDevYMin, dy0, dy1)
		r.edgeDevYMax = max(r.edgeDevYMax, dy0, dy1)
	}
}

// Coverage accumulation:
//
// For each pixel two values are tracked. cover is the signed vertical
// extent of the edges crossing the pixel column, area weights that extent
// by how far right inside the pixel the crossing happens:
//
//	cover = sign * dy
//	area  = cover * (1 - xFrac)
//
// Integrating a scanline from the left gives
//
//	coverage[i] = sum(cover[:i]) + area[i]
//
// which is the signed area of the path inside pixel i.

// accumulateEdge adds the contribution of e within scanline y. The buffers
// are indexed by x - bboxXMin.
func (r *Rasteriser) accumulateEdge(e *edge, y int, cover, area []float32, bboxXMin, bboxXMax int) {
	yTop := max(float64(y), min(e.y0, e.y1))
	yBot := min(float64(y+1), max(e.y0, e.y1))
	if yBot <= yTop {
		return
	}

	sign := float32(1)
	if e.y1 < e.y0 {
		sign = -1
	}

	xLeft := e.x0 + e.dxdy*(yTop-e.y0)
	xRight := e.x0 + e.dxdy*(yBot-e.y0)
	if xLeft > xRight {
		xLeft, xRight = xRight, xLeft
	}
	pixLeft := int(math.Floor(xLeft))
	pixRight := int(math.Floor(xRight))

	if pixRight < bboxXMin {
		coverVal := sign * float32(yBot-yTop)
		cover[0] += coverVal
		area[0] += coverVal
		return
	}
	if pixLeft >= bboxXMax {
		return
	}

	if pixLeft == pixRight {
		r.accumulateEdgeInColumn(e, yTop, yBot, sign, pixLeft, cover, area, bboxXMin, bboxXMax)
		return
	}

	// the edge crosses several pixel columns
	dydx := 1 / e.dxdy
	if pixLeft < bboxXMin {
		// everything left of the bounding box adds to the first pixel
		yCut := e.y0 + dydx*(float64(bboxXMin)-e.x0)
		yCut = max(yTop, min(yBot, yCut))
		var dy float64
		if e.x0+e.dxdy*(yTop-e.y0) < float64(bboxXMin) {
			dy = yCut - yTop
		} else {
			dy = yBot - yCut
		}
		coverVal := sign * float32(dy)
		cover[0] += coverVal
		area[0] += coverVal
		pixLeft = bboxXMin
	}
	pixRight = min(pixRight, bboxXMax-1)
	for pix := pixLeft; pix <= pixRight; pix++ {
		yAtPixLeft := e.y0 + dydx*(float64(pix)-e.x0)
		yAtPixRight := e.y0 + dydx*(float64(pix+1)-e.x0)

		segYMin := max(min(yAtPixLeft, yAtPixRight), yTop)
		segYMax := min(max(yAtPixLeft, yAtPixRight), yBot)
		segDy := segYMax - segYMin
		if segDy <= 0 {
			continue
		}

		coverVal := sign * float32(segDy)
		yMid := (segYMin + segYMax) / 2
		xFrac := e.x0 + e.dxdy*(yMid-e.y0) - float64(pix)
		areaVal := coverVal * float32(1-xFrac)

		idx := pix - bboxXMin
		cover[idx] += coverVal
		area[idx] += areaVal
	}
}

// accumulateEdgeInColumn handles an edge piece inside a single pixel column.
func (r *Rasteriser) accumulateEdgeInColumn(e *edge, yTop, yBot float64, sign float32, pix int, cover, area []float32, bboxXMin, bboxXMax int) {
	coverVal := sign * float32(yBot-yTop)

	if pix < bboxXMin {
		cover[0] += coverVal
		area[0] += coverVal
		return
	}
	if pix >= bboxXMax {
		return
	}

	yMid := (yTop + yBot) / 2
	xFrac := e.x0 + e.dxdy*(yMid-e.y0) - float64(pix)

	idx := pix - bboxXMin
	cover[idx] += coverVal
	area[idx] += coverVal * float32(1-xFrac)
}

// integrateScanline turns accumulated cover/area values into nonzero
// coverage, in place.
func integrateScanline(cover, area []float32) {
	var accum float32
	for i := range cover {
		raw := accum + area[i]
		accum += cover[i]
		if raw < 0 {
			raw = -raw
		}
		cover[i] = min(raw, 1)
	}
}

// trimZeros returns the non-zero part of coverage and its offset, or nil
// if all values are zero.
func trimZeros(coverage []float32) (trimmed []float32, offset int) {
	n := len(coverage)
	lo := 0
	for lo < n && coverage[lo] == 0 {
		lo++
	}
	if lo == n {
		return nil, 0
	}
	hi := n - 1
	for hi > lo && coverage[hi] == 0 {
		hi--
	}
	return coverage[lo : hi+1], lo
}

// fillSmallPath rasterises with one cover/area buffer covering the whole
// bounding box.
func (r *Rasteriser) fillSmallPath(xMin, xMax, yMin, yMax int, emit EmitFunc) {
	width := xMax - xMin
	height := yMax - yMin

	size := width * height
	r.cover = slices.Grow(r.cover[:0], size)[:size]
	r.area = slices.Grow(r.area[:0], size)[:size]
	clear(r.cover)
	clear(r.area)

	r.rowHasEdges = slices.Grow(r.rowHasEdges[:0], height)[:height]
	clear(r.rowHasEdges)

	for i := range r.edges {
		e := &r.edges[i]

		lo := int(math.Floor(min(e.y0, e.y1)))
		hi := int(math.Floor(max(e.y0, e.y1))) + 1
		lo = max(lo, yMin)
		hi = min(hi, yMax)

		for y := lo; y < hi; y++ {
			row := y - yMin
			off := row * width
			r.accumulateEdge(e, y, r.cover[off:off+width], r.area[off:off+width], xMin, xMax)
			r.rowHasEdges[row] = true
		}
	}

	for row := range height {
		if !r.rowHasEdges[row] {
			continue
		}
		off := row * width
		coverage := r.cover[off : off+width]
		integrateScanline(coverage, r.area[off:off+width])
		if trimmed, offset := trimZeros(coverage); trimmed != nil {
			emit(yMin+row, xMin+offset, trimmed)
		}
	}
}

// fillLargePath rasterises one scanline at a time, using an active edge
// list sorted by the upper end of each edge.
func (r *Rasteriser) fillLargePath(xMin, xMax, yMin, yMax int, emit EmitFunc) {
	width := xMax - xMin
	r.cover = slices.Grow(r.cover[:0], width)[:width]
	r.area = slices.Grow(r.area[:0], width)[:width]

	slices.SortFunc(r.edges, func(a, b edge) int {
		return cmp.Compare(min(a.y0, a.y1), min(b.y0, b.y1))
	})

	r.activeIdx = r.activeIdx[:0]
	nextEdge := 0

	for y := yMin; y < yMax; y++ {
		yf := float64(y)
		yfNext := float64(y + 1)

		for nextEdge < len(r.edges) {
			e := &r.edges[nextEdge]
			if min(e.y0, e.y1) >= yfNext {
				break
			}
			r.activeIdx = append(r.activeIdx, nextEdge)
			nextEdge++
		}
		if len(r.activeIdx) == 0 {
			continue
		}

		clear(r.cover)
		clear(r.area)

		touched := false
		for i := 0; i < len(r.activeIdx); {
			e := &r.edges[r.activeIdx[i]]
			if max(e.y0, e.y1) <= yf {
				// swap-remove finished edges
				r.activeIdx[i] = r.activeIdx[len(r.activeIdx)-1]
				r.activeIdx = r.activeIdx[:len(r.activeIdx)-1]
				continue
			}
			r.accumulateEdge(e, y, r.cover, r.area, xMin, xMax)
			touched = true
			i++
		}
		if !touched {
			continue
		}

		integrateScanline(r.cover, r.area)
		if trimmed, offset := trimZeros(r.cover); trimmed != nil {
			emit(y, xMin+offset, trimmed)
		}
	}
}

const (
	// defaultFlatness is the chord tolerance for round caps and joins, in
	// device pixels.
	defaultFlatness = 0.25

	// defaultMiterLimit matches PDF/PostScript: joins sharper than about
	// 11.5 degrees are bevelled.
	defaultMiterLimit = 10.0
)

const (
	horizontalEdgeThreshold = 1e-10

	// smallPathThreshold is the bounding box area, in pixels, up to which
	// fillSmallPath is used.
	smallPathThreshold = 65536

	zeroLengthThreshold = 1e-10

	collinearityThreshold = 1e-6

	// cuspCosineThreshold detects a polyline doubling back on itself,
	// cos(179.43°) ≈ -0.9999.
	cuspCosineThreshold = -0.9999
)
