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

// Package viewer shows rendered frames in a desktop window.
package viewer

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// Window is an output.Viewer backed by an ebiten window.
//
// ebiten allows only one game loop per process, so a Window can show a
// single frame during the lifetime of the program.
type Window struct {
	// Scale enlarges or shrinks the initial window size.
	Scale float64
}

// Show opens a window displaying img and blocks until the window is
// closed or Escape is pressed.
func (w *Window) Show(title string, img image.Image) error {
	scale := w.Scale
	if scale <= 0 {
		scale = 1
	}
	b := img.Bounds()

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(int(float64(b.Dx())*scale), int(float64(b.Dy())*scale))
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(30)
	return ebiten.RunGame(&frameGame{src: img})
}

// frameGame draws a still image.
type frameGame struct {
	src   image.Image
	frame *ebiten.Image
}

func (g *frameGame) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	return nil
}

func (g *frameGame) Draw(screen *ebiten.Image) {
	if g.frame == nil {
		g.frame = ebiten.NewImageFromImage(g.src)
	}
	screen.DrawImage(g.frame, nil)
}

func (g *frameGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	b := g.src.Bounds()
	return b.Dx(), b.Dy()
}
