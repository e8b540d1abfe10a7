package diagnostic

import (
	"cmp"
	"encoding/json"
	"fmt"
)

// Position is a 1-based line/column location inside a source unit.
type Position struct {
	Line   int
	Column int
}

// Compare returns -1, 0 or +1 ordering by line, then column.
func (p Position) Compare(other Position) int {
	if c := cmp.Compare(p.Line, other.Line); c != 0 {
		return c
	}
	return cmp.Compare(p.Column, other.Column)
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is an immutable range [Start, End] inside the source unit Unit.
// Construct it with NewSpan so that Start <= End holds.
type Span struct {
	Unit  string
	Start Position
	End   Position
}

// NewSpan validates and builds a span. It fails with ErrInvalidRange when start is
// after end.
func NewSpan(unit string, start, end Position) (Span, error) {
	if start.Compare(end) > 0 {
		return Span{}, fmt.Errorf("%w: %s starts at %s after end %s", ErrInvalidRange, unit, start, end)
	}
	return Span{Unit: unit, Start: start, End: end}, nil
}

// MustSpan is like NewSpan but panics on an invalid range. Intended for tests and
// literals known to be valid.
func MustSpan(unit string, startLine, startCol, endLine, endCol int) Span {
	s, err := NewSpan(unit, Position{startLine, startCol}, Position{endLine, endCol})
	if err != nil {
		panic(err)
	}
	return s
}

// LineSpan covers a whole line when the column is unknown.
func LineSpan(unit string, line int) Span {
	return Span{Unit: unit, Start: Position{line, 1}, End: Position{line, 1}}
}

// Compare orders spans by start, then end. Spans at identical positions in
// different units are ordered by unit name so the order stays total.
func (s Span) Compare(other Span) int {
	if c := s.Start.Compare(other.Start); c != 0 {
		return c
	}
	if c := s.End.Compare(other.End); c != 0 {
		return c
	}
	return cmp.Compare(s.Unit, other.Unit)
}

// Less reports whether s sorts before other.
func (s Span) Less(other Span) bool {
	return s.Compare(other) < 0
}

// IsZero reports whether the span carries no location.
func (s Span) IsZero() bool {
	return s == Span{}
}

// String renders "unit:line:col-line:col"; the unit prefix is omitted when empty.
func (s Span) String() string {
	r := fmt.Sprintf("%s-%s", s.Start, s.End)
	if s.Unit == "" {
		return r
	}
	return s.Unit + ":" + r
}

type spanWire struct {
	Unit      string `json:"unit"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// MarshalJSON encodes the span using the diagnostics feed keys.
func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal(spanWire{
		Unit:      s.Unit,
		StartLine: s.Start.Line,
		StartCol:  s.Start.Column,
		EndLine:   s.End.Line,
		EndCol:    s.End.Column,
	})
}

// UnmarshalJSON decodes a span from the diagnostics feed, rejecting inverted ranges.
func (s *Span) UnmarshalJSON(data []byte) error {
	var w spanWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := NewSpan(w.Unit, Position{w.StartLine, w.StartCol}, Position{w.EndLine, w.EndCol})
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}
