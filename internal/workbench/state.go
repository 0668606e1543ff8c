package workbench

import (
	"github.com/rcliao/tripplan/internal/model"
)

// State is one of Listing, *Drafting, Viewing or SignedOut.
type State interface {
	Name() string
	clone() State
}

// Listing shows the cached itinerary list.
type Listing struct{}

// Busy is the in-flight action of a draft. Generating and saving exclude
// each other.
type Busy int

const (
	BusyNone Busy = iota
	BusyGenerating
	BusySaving
)

func (b Busy) String() string {
	switch b {
	case BusyGenerating:
		return "generating"
	case BusySaving:
		return "saving"
	default:
		return "none"
	}
}

// Drafting edits a draft, optionally holding a generated preview.
type Drafting struct {
	Draft   Draft
	Preview *model.Preview
	Busy    Busy

	epoch uint64
}

// CanSave reports whether the save action is available.
func (d *Drafting) CanSave() bool {
	return d.Preview != nil && d.Busy == BusyNone
}

// CanGenerate reports whether the generate action is available.
func (d *Drafting) CanGenerate() bool {
	return d.Busy == BusyNone
}

// Viewing shows one record.
type Viewing struct {
	Record model.Itinerary
}

// SignedOut is entered when the session ends. Every action is refused until
// the workbench is entered again.
type SignedOut struct{}

func (Listing) Name() string   { return "listing" }
func (*Drafting) Name() string { return "drafting" }
func (Viewing) Name() string   { return "viewing" }
func (SignedOut) Name() string { return "signed out" }

func (s Listing) clone() State   { return s }
func (s Viewing) clone() State   { return s }
func (s SignedOut) clone() State { return s }

func (s *Drafting) clone() State {
	cp := *s
	cp.Draft = s.Draft.clone()
	if s.Preview != nil {
		p := *s.Preview
		p.Itinerary = append([]model.Day(nil), s.Preview.Itinerary...)
		cp.Preview = &p
	}
	return &cp
}
