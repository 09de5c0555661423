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
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/gcode2png/config"
)

// Camera is a perspective view onto the scene. Screen coordinates are in
// pixels, with the origin in the top left corner and y pointing down.
type Camera struct {
	Eye   mgl64.Vec3
	Focal mgl64.Vec3

	view mgl64.Mat4
	proj mgl64.Mat4
	inv  mgl64.Mat4 // inverse of proj*view

	width, height float64
	near          float64
	focalPx       float64 // pixels per unit at depth one
}

// NewCamera places a camera as described by c, for an image of the given
// size. The azimuth is measured in the xy-plane from the x-axis, the
// elevation from the z-axis.
func NewCamera(c config.Camera, width, height int) *Camera {
	focal := mgl64.Vec3(c.Focal)
	theta := mgl64.DegToRad(c.Elevation)
	phi := mgl64.DegToRad(c.Azimuth)
	eye := focal.Add(mgl64.SphericalToCartesian(c.Distance, theta, phi))

	up := mgl64.Vec3{0, 0, 1}
	if math.Abs(math.Sin(theta)) < 1e-6 {
		// looking along the z-axis
		up = mgl64.Vec3{-math.Cos(phi), -math.Sin(phi), 0}
	}

	fovy := mgl64.DegToRad(c.ViewAngle)
	near := c.Distance * nearFraction
	w, h := float64(width), float64(height)

	cam := &Camera{
		Eye:     eye,
		Focal:   focal,
		view:    mgl64.LookAtV(eye, focal, up),
		proj:    mgl64.Perspective(fovy, w/h, near, c.Distance*farFactor),
		width:   w,
		height:  h,
		near:    near,
		focalPx: h / 2 / math.Tan(fovy/2),
	}
	cam.inv = cam.proj.Mul4(cam.view).Inv()
	return cam
}

const (
	// nearFraction places the near clipping plane relative to the camera
	// distance.
	nearFraction = 1e-3

	farFactor = 1e3
)

// ToView transforms p from world coordinates into camera coordinates. The
// camera looks along the negative z-axis.
func (c *Camera) ToView(p mgl64.Vec3) mgl64.Vec3 {
	return c.view.Mul4x1(p.Vec4(1)).Vec3()
}

// Visible reports whether the camera space point v lies in front of the
// near plane.
func (c *Camera) Visible(v mgl64.Vec3) bool {
	return -v.Z() >= c.near
}

// ProjectView maps a visible camera space point to the screen.
func (c *Camera) ProjectView(v mgl64.Vec3) vec.Vec2 {
	clip := c.proj.Mul4x1(v.Vec4(1))
	x := clip.X() / clip.W()
	y := clip.Y() / clip.W()
	return vec.Vec2{
		X: (x + 1) / 2 * c.width,
		Y: (1 - y) / 2 * c.height,
	}
}

// Project maps a world point to the screen. The result is false if the
// point is behind the near plane.
func (c *Camera) Project(p mgl64.Vec3) (vec.Vec2, bool) {
	v := c.ToView(p)
	if !c.Visible(v) {
		return vec.Vec2{}, false
	}
	return c.ProjectView(v), true
}

// Ray returns the world space ray through the screen point (x, y). The
// direction is not normalised.
func (c *Camera) Ray(x, y float64) (origin, dir mgl64.Vec3) {
	nx := 2*x/c.width - 1
	ny := 1 - 2*y/c.height
	p0 := c.inv.Mul4x1(mgl64.Vec4{nx, ny, -1, 1})
	p1 := c.inv.Mul4x1(mgl64.Vec4{nx, ny, 1, 1})
	origin = p0.Vec3().Mul(1 / p0.W())
	far := p1.Vec3().Mul(1 / p1.W())
	return origin, far.Sub(origin)
}

// PixelsPerUnit returns the screen size of a unit length at the given
// depth in front of the camera.
func (c *Camera) PixelsPerUnit(depth float64) float64 {
	return c.focalPx / depth
}

// clipNear clips the camera space segment a-b against the near plane.
func (c *Camera) clipNear(a, b mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, bool) {
	va, vb := c.Visible(a), c.Visible(b)
	switch {
	case va && vb:
		return a, b, true
	case !va && !vb:
		return a, b, false
	}
	t := (-c.near - a.Z()) / (b.Z() - a.Z())
	cut := a.Add(b.Sub(a).Mul(t))
	cut[2] = -c.near
	if va {
		return a, cut, true
	}
	return cut, b, true
}
