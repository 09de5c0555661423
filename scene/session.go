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

// Package scene renders classified toolpath geometry into an image, as
// seen through a fixed perspective camera.
//
// A render goes through the states of a [Session]:
//
//	Open -> [PlaceBed] -> Plot -> Finish(Displayed | Exported) -> Close
//
// Only one session can be open at a time.
package scene

import (
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/anthonynsimon/bild/imgio"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/gcode2png/classify"
	"seehuhn.de/go/gcode2png/config"
	"seehuhn.de/go/gcode2png/raster"
)

var (
	// ErrBusy is returned by Open while another session is open.
	ErrBusy = errors.New("scene: a session is already open")

	// ErrState is returned when a session operation is called out of
	// order.
	ErrState = errors.New("scene: operation not allowed")
)

// busy is set while a session is open.
var busy atomic.Bool

// State is the lifecycle stage of a session.
type State int

// These are the session states, in lifecycle order.
const (
	Uninitialized State = iota
	SceneReady
	BedPlaced
	ModelLoaded
	Plotted
	Displayed
	Exported
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case SceneReady:
		return "scene ready"
	case BedPlaced:
		return "bed placed"
	case ModelLoaded:
		return "model loaded"
	case Plotted:
		return "plotted"
	case Displayed:
		return "displayed"
	case Exported:
		return "exported"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is a single-use render of one toolpath.
type Session struct {
	settings *config.Settings
	camera   *Camera
	state    State
	owned    bool // holds the busy flag

	frame  *image.RGBA
	raster *raster.Rasteriser
	prims  []Primitive
}

// Open starts a new session with a blank frame of the configured size.
// The session must be closed after use.
func Open(settings *config.Settings) (*Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if !busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}

	w, h := settings.Width, settings.Height
	s := &Session{
		settings: settings,
		camera:   NewCamera(settings.Camera, w, h),
		frame:    image.NewRGBA(image.Rect(0, 0, w, h)),
		raster:   raster.New(rect.Rect{URx: float64(w), URy: float64(h)}),
		owned:    true,
	}
	s.clear(settings.Colors.Background)
	s.state = SceneReady
	return s, nil
}

// State returns the current lifecycle stage.
func (s *Session) State() State {
	return s.state
}

// Settings returns the settings the session was opened with.
func (s *Session) Settings() *config.Settings {
	return s.settings
}

// Camera returns the camera of the session.
func (s *Session) Camera() *Camera {
	return s.camera
}

func (s *Session) expect(op string, allowed ...State) error {
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in state %q", ErrState, op, s.state)
}

// PlaceBed draws the build surface, textured with the image file at
// texture. This must be done at most once, before the geometry is
// plotted. If the texture cannot be read, the session state is unchanged.
func (s *Session) PlaceBed(texture string) error {
	if err := s.expect("PlaceBed", SceneReady); err != nil {
		return err
	}
	img, err := imgio.Open(texture)
	if err != nil {
		return fmt.Errorf("bed texture: %w", err)
	}
	s.drawBed(img)
	s.state = BedPlaced
	return nil
}

// Plot draws the geometry on top of the bed: object lines first, then
// travel lines and finally support tubes. Empty travel and support
// streams are skipped.
func (s *Session) Plot(g *classify.Geometry) error {
	if err := s.expect("Plot", SceneReady, BedPlaced); err != nil {
		return err
	}
	if g == nil {
		g = &classify.Geometry{}
	}
	s.state = ModelLoaded

	c := s.settings.Colors
	s.drawLine(g.Object, c.Object)
	if len(g.Travel) > 0 {
		s.drawLine(g.Travel, c.Travel)
	}
	if len(g.Support) > 0 {
		s.drawTube(g.Support, c.Support)
	}
	s.state = Plotted
	return nil
}

// Frame returns the rendered image. The image is owned by the session
// and must not be modified.
func (s *Session) Frame() (*image.RGBA, error) {
	if err := s.expect("Frame", Plotted, Displayed, Exported); err != nil {
		return nil, err
	}
	return s.frame, nil
}

// Primitives returns the drawing operations of the frame in painting
// order, in screen coordinates.
func (s *Session) Primitives() ([]Primitive, error) {
	if err := s.expect("Primitives", Plotted, Displayed, Exported); err != nil {
		return nil, err
	}
	return s.prims, nil
}

// Finish records how the plotted frame was delivered. The final state
// must be Displayed or Exported.
func (s *Session) Finish(final State) error {
	if final != Displayed && final != Exported {
		return fmt.Errorf("%w: cannot finish as %q", ErrState, final)
	}
	if err := s.expect("Finish", Plotted); err != nil {
		return err
	}
	s.state = final
	return nil
}

// Close releases the session. Calling Close more than once is harmless.
func (s *Session) Close() error {
	if s.state == Closed {
		return nil
	}
	s.state = Closed
	s.frame = nil
	s.prims = nil
	if s.owned {
		s.owned = false
		busy.Store(false)
	}
	return nil
}
