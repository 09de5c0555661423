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
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// ParseError reports a malformed command.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	errMissingValue = errors.New("missing parameter value")
	errBadWord      = errors.New("malformed word")
)

// maxLineLength bounds a single input line. Slicers embed base64
// thumbnails as comments, which stay well below this.
const maxLineLength = 1 << 20

// arcChord is the maximal chord length, in millimetres, used when
// flattening G2/G3 arcs.
const arcChord = 1.0

// ParseFile reads the G-code file at name.
func ParseFile(name string) (*Model, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

// Parse reads G-code from r.
//
// Only the motion subset of G-code is interpreted: G0/G1 moves, G2/G3 arcs
// in centre format, G20/G21 units, G28 homing, G90/G91 positioning, G92
// and M82/M83 extruder modes. Everything else is skipped.
//
// Moves following a slicer feature comment whose label mentions
// "support" (";TYPE:SUPPORT", "; FEATURE: Support material", ...) go to
// the support sub-model, all other moves to the object sub-model.
func Parse(r io.Reader) (*Model, error) {
	p := &parser{
		object:  &SubModel{},
		support: &SubModel{},
		scale:   1,
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		p.line++
		if err := p.parseLine(scanner.Text()); err != nil {
			return nil, &ParseError{Line: p.line, Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	m := &Model{Object: p.object}
	if len(p.support.Layers) > 0 {
		m.Support = p.support
	}
	return m, nil
}

type parser struct {
	object  *SubModel
	support *SubModel

	line int

	pos       mgl64.Vec3
	e         float64
	relative  bool // G91
	relativeE bool // M83
	scale     float64
	inSupport bool
}

// word is one letter/number pair of a command line.
type word struct {
	letter byte
	value  float64
}

func (p *parser) parseLine(line string) error {
	code, comment, _ := strings.Cut(line, ";")
	if comment != "" {
		p.parseComment(comment)
	}
	code = stripParens(code)

	words, err := splitWords(code)
	if err != nil {
		return err
	}
	if len(words) > 0 && words[0].letter == 'N' {
		words = words[1:]
	}
	if len(words) == 0 {
		return nil
	}

	cmd, args := words[0], words[1:]
	switch cmd.letter {
	case 'G':
		switch cmd.value {
		case 0:
			p.move(Rapid, args)
		case 1:
			p.move(Linear, args)
		case 2:
			p.arc(true, args)
		case 3:
			p.arc(false, args)
		case 20:
			p.scale = 25.4
		case 21:
			p.scale = 1
		case 28:
			p.home(args)
		case 90:
			p.relative, p.relativeE = false, false
		case 91:
			p.relative, p.relativeE = true, true
		case 92:
			p.setPosition(args)
		}
	case 'M':
		switch cmd.value {
		case 82:
			p.relativeE = false
		case 83:
			p.relativeE = true
		}
	}
	return nil
}

// parseComment tracks slicer feature labels.
func (p *parser) parseComment(comment string) {
	comment = strings.TrimSpace(comment)
	var label string
	var ok bool
	for _, prefix := range []string{"TYPE:", "FEATURE:"} {
		if label, ok = strings.CutPrefix(comment, prefix); ok {
			break
		}
	}
	if !ok {
		return
	}
	p.inSupport = strings.Contains(strings.ToLower(label), "support")
}

// stripParens removes "( ... )" comments.
func stripParens(s string) string {
	for {
		open := strings.IndexByte(s, '(')
		if open < 0 {
			return s
		}
		end := strings.IndexByte(s[open:], ')')
		if end < 0 {
			return s[:open]
		}
		s = s[:open] + " " + s[open+end+1:]
	}
}

// splitWords splits a command line into words. Whitespace between words
// is optional, so "G1X10Y5" and "G1 X10 Y5" are equivalent. A trailing
// checksum ("*71") is dropped.
//
// Commands which take free text (M117 etc.) are cut after the command
// word, so the text is never parsed. Lines which do not start with a
// command word, such as firmware macros, yield no words. Malformed
// parameters of G commands are errors.
func splitWords(s string) ([]word, error) {
	if i := strings.IndexByte(s, '*'); i >= 0 {
		s = s[:i]
	}

	var words []word
	haveCmd := false
	i := 0
	for i < len(s) {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\r' {
			i++
			continue
		}
		if !isLetter(c) {
			if !haveCmd {
				return nil, nil
			}
			return nil, fmt.Errorf("%w %q", errBadWord, s[i:])
		}
		letter := upper(c)
		i++
		j := i
		for j < len(s) && isNumberChar(s[j]) {
			j++
		}
		v, err := strconv.ParseFloat(s[i:j], 64)
		if err != nil && !haveCmd {
			return nil, nil
		} else if j == i {
			return nil, fmt.Errorf("%w for %c", errMissingValue, letter)
		} else if err != nil {
			return nil, fmt.Errorf("%w %q", errBadWord, s[i-1:j])
		}
		words = append(words, word{letter: letter, value: v})
		i = j

		// only G commands have parameters we interpret
		if !haveCmd && letter != 'N' {
			haveCmd = true
			if letter != 'G' {
				break
			}
		}
	}
	return words, nil
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

func isNumberChar(c byte) bool {
	return c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+'
}

// target returns the end position and extruder value of a move.
func (p *parser) target(args []word) (mgl64.Vec3, float64) {
	pos, e := p.pos, p.e
	for _, w := range args {
		switch w.letter {
		case 'X', 'Y', 'Z':
			axis := int(w.letter - 'X')
			v := w.value * p.scale
			if p.relative {
				pos[axis] += v
			} else {
				pos[axis] = v
			}
		case 'E':
			v := w.value * p.scale
			if p.relativeE {
				e += v
			} else {
				e = v
			}
		}
	}
	return pos, e
}

// kind classifies a move from start to end with the given extrusion.
func kind(start, end mgl64.Vec3, dE float64) Kind {
	moved := start != end
	switch {
	case moved && dE > 0:
		return Deposit
	case moved:
		return Travel
	default:
		return Undefined
	}
}

func (p *parser) emit(cmd Command, k Kind, pos mgl64.Vec3) {
	seg := Segment{Command: cmd, Kind: k, Pos: pos, Line: p.line}
	if p.inSupport {
		p.support.add(seg)
	} else {
		p.object.add(seg)
	}
}

func (p *parser) move(cmd Command, args []word) {
	pos, e := p.target(args)
	p.emit(cmd, kind(p.pos, pos, e-p.e), pos)
	p.pos, p.e = pos, e
}

// arc flattens a G2 (clockwise) or G3 arc into chords. Arcs without an
// I/J centre are drawn as straight moves.
func (p *parser) arc(clockwise bool, args []word) {
	end, e := p.target(args)

	var offset mgl64.Vec2
	hasCentre := false
	for _, w := range args {
		switch w.letter {
		case 'I':
			offset[0] = w.value * p.scale
			hasCentre = true
		case 'J':
			offset[1] = w.value * p.scale
			hasCentre = true
		}
	}
	if !hasCentre {
		p.emit(Linear, kind(p.pos, end, e-p.e), end)
		p.pos, p.e = end, e
		return
	}

	start := p.pos
	centre := mgl64.Vec2{start.X() + offset.X(), start.Y() + offset.Y()}
	radius := offset.Len()
	a0 := math.Atan2(start.Y()-centre.Y(), start.X()-centre.X())
	a1 := math.Atan2(end.Y()-centre.Y(), end.X()-centre.X())
	sweep := a1 - a0
	if clockwise {
		if sweep >= 0 {
			sweep -= 2 * math.Pi
		}
	} else if sweep <= 0 {
		sweep += 2 * math.Pi
	}

	// a full circle ends where it starts, so each chord is classified
	// on its own
	n := max(int(math.Ceil(math.Abs(sweep)*radius/arcChord)), 1)
	prev := start
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		var pt mgl64.Vec3
		if i == n {
			pt = end
		} else {
			sin, cos := math.Sincos(a0 + t*sweep)
			pt = mgl64.Vec3{
				centre.X() + radius*cos,
				centre.Y() + radius*sin,
				start.Z() + t*(end.Z()-start.Z()),
			}
		}
		p.emit(Linear, kind(prev, pt, e-p.e), pt)
		prev = pt
	}
	p.pos, p.e = end, e
}

// home moves the named axes, or all axes, to zero without recording a
// segment.
func (p *parser) home(args []word) {
	named := false
	for _, w := range args {
		if w.letter >= 'X' && w.letter <= 'Z' {
			p.pos[w.letter-'X'] = 0
			named = true
		}
	}
	if !named {
		p.pos = mgl64.Vec3{}
	}
}

// setPosition implements G92.
func (p *parser) setPosition(args []word) {
	if len(args) == 0 {
		p.pos, p.e = mgl64.Vec3{}, 0
		return
	}
	for _, w := range args {
		switch w.letter {
		case 'X', 'Y', 'Z':
			p.pos[w.letter-'X'] = w.value * p.scale
		case 'E':
			p.e = w.value * p.scale
		}
	}
}
