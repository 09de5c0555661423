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
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// strokeSegment is a polyline segment in path coordinates.
type strokeSegment struct {
	A, B vec.Vec2 // endpoints
	T    vec.Vec2 // unit tangent A→B
	N    vec.Vec2 // unit normal, 90° CCW from T
}

// reversed returns the segment traversed from B to A.
func (s strokeSegment) reversed() strokeSegment {
	return strokeSegment{A: s.B, B: s.A, T: s.T.Mul(-1), N: s.N.Mul(-1)}
}

// Stroke paints the outline of p using Width, Cap, Join and MiterLimit.
//
// Every subpath becomes one polygon, built from the offset curve on the
// +N side followed by the offset curve of the reversed subpath. All
// polygons are filled together with the nonzero rule, so places where a
// toolpath crosses itself are painted once.
func (r *Rasteriser) Stroke(p path.Path, emit EmitFunc) {
	r.flattenPath(p)
	if len(r.segsOffsets) == 0 && len(r.degeneratePoints) == 0 {
		return
	}

	r.stroke = r.stroke[:0]
	r.strokeOffsets = r.strokeOffsets[:0]

	// isolated points only show up with round caps
	if r.Cap == graphics.LineCapRound {
		for _, pt := range r.degeneratePoints {
			start := len(r.stroke)
			r.addArc(pt, r.Width/2, vec.Vec2{X: 1, Y: 0}, 2*math.Pi, true)
			r.strokeOffsets = append(r.strokeOffsets, start)
		}
	}

	for i := range r.segsOffsets {
		segs := r.subpathSegments(i)
		if r.subpathClosed[i] {
			r.strokeRing(segs)
		} else {
			r.strokeOpen(segs)
		}
	}

	r.fillStrokeOutlines(emit)
}

// subpathSegments returns the segments of subpath i.
func (r *Rasteriser) subpathSegments(i int) []strokeSegment {
	end := len(r.segs)
	if i+1 < len(r.segsOffsets) {
		end = r.segsOffsets[i+1]
	}
	return r.segs[r.segsOffsets[i]:end]
}

// flattenPath splits p into subpaths of precomputed segments.
// Zero-length subpaths are collected in r.degeneratePoints.
func (r *Rasteriser) flattenPath(p path.Path) {
	r.segs = r.segs[:0]
	r.segsOffsets = r.segsOffsets[:0]
	r.subpathClosed = r.subpathClosed[:0]
	r.degeneratePoints = r.degeneratePoints[:0]

	var current, start vec.Vec2
	startIdx := 0
	inSubpath := false
	sawDrawing := false

	endSubpath := func(closed bool) {
		if len(r.segs) == startIdx {
			r.degeneratePoints = append(r.degeneratePoints, start)
		} else {
			r.segsOffsets = append(r.segsOffsets, startIdx)
			r.subpathClosed = append(r.subpathClosed, closed)
		}
	}

	for cmd, pts := range p {
		var to vec.Vec2
		switch cmd {
		case path.CmdMoveTo:
			if inSubpath && (len(r.segs) > startIdx || sawDrawing) {
				endSubpath(false)
			}
			current = pts[0]
			start = current
			startIdx = len(r.segs)
			inSubpath = true
			sawDrawing = false
			continue

		case path.CmdLineTo, path.CmdQuadTo, path.CmdCubeTo:
			to = pts[len(pts)-1]

		case path.CmdClose:
			if !inSubpath {
				continue
			}
			if current != start {
				r.addStrokeSegment(current, start)
			}
			endSubpath(true)
			current = start
			startIdx = len(r.segs)
			inSubpath = false
			sawDrawing = false
			continue
		}

		if !inSubpath {
			continue
		}
		sawDrawing = true
		r.addStrokeSegment(current, to)
		current = to
	}

	if inSubpath && (len(r.segs) > startIdx || sawDrawing) {
		endSubpath(false)
	}
}

// addStrokeSegment appends a→b unless it has zero length.
func (r *Rasteriser) addStrokeSegment(a, b vec.Vec2) {
	d := b.Sub(a)
	length := d.Length()
	if length < zeroLengthThreshold {
		return
	}
	t := d.Mul(1 / length)
	r.segs = append(r.segs, strokeSegment{A: a, B: b, T: t, N: vec.Vec2{X: -t.Y, Y: t.X}})
}

// strokeOpen adds the outline of an open polyline: start cap, +N side,
// end cap, -N side.
func (r *Rasteriser) strokeOpen(segs []strokeSegment) {
	d := r.Width / 2
	first := &segs[0]
	last := &segs[len(segs)-1]
	start := len(r.stroke)

	r.addCap(first.A, first.T.Mul(-1), d)
	r.addOffsetSide(segs, d)
	r.addCap(last.B, last.T, d)
	r.addOffsetSide(reverseSegments(segs), d)

	r.closePolygon(start)
}

// strokeRing adds the outline of a closed polyline as two rings of
// opposite orientation.
func (r *Rasteriser) strokeRing(segs []strokeSegment) {
	d := r.Width / 2
	for _, side := range [][]strokeSegment{segs, reverseSegments(segs)} {
		start := len(r.stroke)
		n := len(side)
		for i := range n {
			r.addCorner(&side[i], &side[(i+1)%n], d)
		}
		r.closePolygon(start)
	}
}

// closePolygon records the polygon starting at r.stroke[start], or drops
// it if it has fewer than three vertices.
func (r *Rasteriser) closePolygon(start int) {
	if len(r.stroke)-start >= 3 {
		r.strokeOffsets = append(r.strokeOffsets, start)
	} else {
		r.stroke = r.stroke[:start]
	}
}

// reverseSegments returns segs traversed backwards. The -N side of a
// polyline is the +N side of its reversal.
func reverseSegments(segs []strokeSegment) []strokeSegment {
	n := len(segs)
	rev := make([]strokeSegment, n)
	for i := range segs {
		rev[n-1-i] = segs[i].reversed()
	}
	return rev
}

// addOffsetSide adds the +N offset of an open polyline, from the first
// start point to the last end point.
func (r *Rasteriser) addOffsetSide(segs []strokeSegment, d float64) {
	r.stroke = append(r.stroke, segs[0].A.Add(segs[0].N.Mul(d)))
	for i := range len(segs) - 1 {
		r.addCorner(&segs[i], &segs[i+1], d)
	}
	last := &segs[len(segs)-1]
	r.stroke = append(r.stroke, last.B.Add(last.N.Mul(d)))
}

// addCorner adds the +N side geometry where seg meets next, ending with
// the offset start point of next.
func (r *Rasteriser) addCorner(seg, next *strokeSegment, d float64) {
	sinTheta := seg.T.X*next.T.Y - seg.T.Y*next.T.X
	switch {
	case math.Abs(sinTheta) < collinearityThreshold:
		r.stroke = append(r.stroke, seg.B.Add(seg.N.Mul(d)), next.A.Add(next.N.Mul(d)))
	case sinTheta > 0:
		// +N is the inner side
		r.addInnerPoint(seg.B, seg, next, d)
	default:
		r.stroke = append(r.stroke, seg.B.Add(seg.N.Mul(d)))
		r.addJoin(seg.B, seg.T, next.T, d)
		r.stroke = append(r.stroke, next.A.Add(next.N.Mul(d)))
	}
}

// addInnerPoint adds the intersection of the two inner offset lines at P,
// or both offset points if they are too close to parallel.
func (r *Rasteriser) addInnerPoint(P vec.Vec2, seg, next *strokeSegment, d float64) {
	cosTheta := seg.T.Dot(next.T)
	halfAngle := math.Sqrt((1 + cosTheta) / 2) // cos(θ/2)
	bisector := seg.N.Add(next.N)
	bisectorLen := bisector.Length()

	if cosTheta > 1-1e-9 || halfAngle < 1e-9 || bisectorLen < 1e-9 {
		r.stroke = append(r.stroke, P.Add(seg.N.Mul(d)), P.Add(next.N.Mul(d)))
		return
	}
	r.stroke = append(r.stroke, P.Add(bisector.Mul(d/(halfAngle*bisectorLen))))
}

// addCap adds a line cap at P. T points away from the line.
func (r *Rasteriser) addCap(P, T vec.Vec2, d float64) {
	N := vec.Vec2{X: -T.Y, Y: T.X}

	switch r.Cap {
	case graphics.LineCapSquare:
		ext := P.Add(T.Mul(d))
		r.stroke = append(r.stroke, ext.Add(N.Mul(d)), ext.Sub(N.Mul(d)))

	case graphics.LineCapRound:
		// half circle from +N through T to -N
		r.addArc(P, d, N, -math.Pi, true)
	}
}

// addJoin adds the outer join geometry at P, where the tangent turns from
// T1 to T2 towards the -N side.
func (r *Rasteriser) addJoin(P, T1, T2 vec.Vec2, d float64) {
	cosTheta := T1.Dot(T2)
	sinTheta := T1.X*T2.Y - T1.Y*T2.X
	if sinTheta > -collinearityThreshold && sinTheta < collinearityThreshold {
		return
	}

	// the path doubles back: two caps instead of a join
	if cosTheta < cuspCosineThreshold {
		r.addCap(P, T1, d)
		r.addCap(P, T2.Mul(-1), d)
		return
	}

	N1 := vec.Vec2{X: -T1.Y, Y: T1.X}
	N2 := vec.Vec2{X: -T2.Y, Y: T2.X}

	switch r.Join {
	case graphics.LineJoinMiter:
		// miter length ratio is 1/cos(θ/2)
		sinHalf := math.Sqrt((1 + cosTheta) / 2)
		const miterEpsilon = 1e-10
		if sinHalf > 0 && 1/sinHalf <= r.MiterLimit+miterEpsilon {
			bisector := N1.Add(N2)
			if l := bisector.Length(); l > zeroLengthThreshold {
				r.stroke = append(r.stroke, P.Add(bisector.Mul(d/(sinHalf*l))))
			}
		}
		// otherwise bevel

	case graphics.LineJoinRound:
		angle := math.Acos(max(-1, min(1, cosTheta)))
		if sinTheta > 0 {
			r.addArc(P, d, N1, angle, false)
		} else {
			r.addArc(P, d, N1, -angle, false)
		}
	}
}

// addArc adds the vertices of a circular arc around center. startDir is
// the unit vector towards the first point, sweep is the angle in radians
// (positive is CCW). If includeStart is false, the first point is assumed
// to be present already.
func (r *Rasteriser) addArc(center vec.Vec2, radius float64, startDir vec.Vec2, sweep float64, includeStart bool) {
	n := 1
	if radius >= r.Flatness {
		// chord of angle θ deviates from the circle by radius*(1-cos(θ/2))
		step := 2 * math.Acos(1-r.Flatness/radius)
		if step <= 0 || math.IsNaN(step) {
			step = math.Pi / 4
		}
		n = max(int(math.Ceil(math.Abs(sweep)/step)), 1)
	}

	dt := sweep / float64(n)
	i0 := 0
	if !includeStart {
		i0 = 1
	}
	for i := i0; i <= n; i++ {
		sin, cos := math.Sincos(float64(i) * dt)
		dir := vec.Vec2{
			X: startDir.X*cos - startDir.Y*sin,
			Y: startDir.X*sin + startDir.Y*cos,
		}
		r.stroke = append(r.stroke, center.Add(dir.Mul(radius)))
	}
}

// fillStrokeOutlines fills all collected stroke polygons with the nonzero
// rule.
func (r *Rasteriser) fillStrokeOutlines(emit EmitFunc) {
	if len(r.strokeOffsets) == 0 {
		return
	}

	r.edges = r.edges[:0]
	r.edgeBBoxFirst = true
	for i, start := range r.strokeOffsets {
		end := len(r.stroke)
		if i+1 < len(r.strokeOffsets) {
			end = r.strokeOffsets[i+1]
		}
		poly := r.stroke[start:end]
		if len(poly) < 2 {
			continue
		}
		for j := 1; j < len(poly); j++ {
			r.addEdge(poly[j-1], poly[j])
		}
		r.addEdge(poly[len(poly)-1], poly[0])
	}

	xMin, xMax, yMin, yMax, ok := r.edgeBounds()
	if !ok {
		return
	}
	r.scan(xMin, xMax, yMin, yMax, emit)
}
