package medialib

import "sort"

// Point is a position in the listing's coordinate space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// RectFrom normalises two corners into a Rect
func RectFrom(a, b Point) Rect {
	r := Rect{Min: a, Max: b}
	if r.Min.X > r.Max.X {
		r.Min.X, r.Max.X = r.Max.X, r.Min.X
	}
	if r.Min.Y > r.Max.Y {
		r.Min.Y, r.Max.Y = r.Max.Y, r.Min.Y
	}
	return r
}

// Intersects reports whether r and o overlap
func (r Rect) Intersects(o Rect) bool {
	return r.Min.X <= o.Max.X && o.Min.X <= r.Max.X &&
		r.Min.Y <= o.Max.Y && o.Min.Y <= r.Max.Y
}

// ItemBounds is where a listing item is drawn
type ItemBounds struct {
	Name   string `json:"name"`
	Bounds Rect   `json:"bounds"`
}

type dragState struct {
	origin Point
	base   map[string]struct{}
}

// SelectionMode reports whether clicks select instead of open. It holds
// while at least one item is selected.
func (s *Session) SelectionMode() bool {
	return len(s.selected) > 0
}

// Click handles a plain click on name. In selection mode it toggles the
// item and returns true; otherwise it does nothing and returns false so
// the caller opens the item.
func (s *Session) Click(name string) bool {
	if !s.SelectionMode() {
		return false
	}
	s.Toggle(name)
	return true
}

// Toggle flips name in or out of the selection
func (s *Session) Toggle(name string) {
	if _, ok := s.selected[name]; ok {
		delete(s.selected, name)
		return
	}
	s.selected[name] = struct{}{}
}

// SelectAll selects every name
func (s *Session) SelectAll(names []string) {
	for _, n := range names {
		s.selected[n] = struct{}{}
	}
}

// Clear empties the selection
func (s *Session) Clear() {
	s.selected = make(map[string]struct{})
}

// IsSelected reports whether name is selected
func (s *Session) IsSelected(name string) bool {
	_, ok := s.selected[name]
	return ok
}

// Selected returns the selected names, sorted
func (s *Session) Selected() []string {
	out := make([]string, 0, len(s.selected))
	for n := range s.selected {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// BeginDrag starts a rubber-band selection at p. Whatever is selected now
// stays selected for the whole drag.
func (s *Session) BeginDrag(p Point) {
	base := make(map[string]struct{}, len(s.selected))
	for n := range s.selected {
		base[n] = struct{}{}
	}
	s.drag = &dragState{origin: p, base: base}
}

// Dragging reports whether a drag is in progress
func (s *Session) Dragging() bool {
	return s.drag != nil
}

// UpdateDrag sets the selection to the drag's starting selection plus every
// item the rectangle from the origin to p touches
func (s *Session) UpdateDrag(p Point, items []ItemBounds) {
	if s.drag == nil {
		return
	}

	rect := RectFrom(s.drag.origin, p)
	selected := make(map[string]struct{}, len(s.drag.base)+len(items))
	for n := range s.drag.base {
		selected[n] = struct{}{}
	}
	for _, item := range items {
		if rect.Intersects(item.Bounds) {
			selected[item.Name] = struct{}{}
		}
	}
	s.selected = selected
}

// EndDrag finishes the drag, keeping the selection it produced
func (s *Session) EndDrag() {
	s.drag = nil
}
