package models

import "fmt"

// Sentinels rendered at the export boundary in place of absent values.
const (
	NoDate        = "No date"
	NoName        = "No name"
	NoData        = "No data"
	ErrorFetching = "Error fetching"
)

// Presence tags a scraped value. The zero value is Missing, so an unset
// Text or Count never passes for a real one.
type Presence int

const (
	Missing Presence = iota
	Present
	FetchError
)

func (p Presence) String() string {
	switch p {
	case Present:
		return "present"
	case Missing:
		return "missing"
	case FetchError:
		return "fetch_error"
	default:
		return fmt.Sprintf("presence(%d)", int(p))
	}
}

// Text is a scraped string whose anchor may have been absent on the page.
type Text struct {
	Value string
	State Presence
}

func PresentText(s string) Text { return Text{Value: s, State: Present} }

func MissingText() Text { return Text{State: Missing} }

func (t Text) IsPresent() bool { return t.State == Present }

// Or returns the value, or sentinel when the text is not present.
func (t Text) Or(sentinel string) string {
	if t.State != Present {
		return sentinel
	}
	return t.Value
}

// Count is a scraped counter that can carry a fetch error instead of a number.
type Count struct {
	Value int
	State Presence
}

func PresentCount(n int) Count { return Count{Value: n, State: Present} }

func FetchErrorCount() Count { return Count{State: FetchError} }

func (c Count) IsPresent() bool { return c.State == Present }

func (c Count) String() string {
	switch c.State {
	case Present:
		return fmt.Sprintf("%d", c.Value)
	case FetchError:
		return ErrorFetching
	default:
		return NoData
	}
}

// Ratio is extracted/declared. A zero declared total has no ratio.
type Ratio struct {
	value float64
	ok    bool
}

// NewRatio computes extracted/declared; equal operands yield exactly 1.
func NewRatio(extracted, declared int) Ratio {
	if declared <= 0 || extracted < 0 {
		return Ratio{}
	}
	return Ratio{value: float64(extracted) / float64(declared), ok: true}
}

func NoRatio() Ratio { return Ratio{} }

func (r Ratio) Value() (float64, bool) { return r.value, r.ok }

func (r Ratio) String() string {
	if !r.ok {
		return NoData
	}
	return fmt.Sprintf("%.2f%%", r.value*100)
}
