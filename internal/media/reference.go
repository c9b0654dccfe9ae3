package media

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	Separator    = "|"
	VideoPrefix  = "video:"
	TimePrefix   = "time:"
	HiddenMarker = "*"
)

var ErrMalformedReference = errors.New("malformed media reference")

type Kind int

const (
	KindSticker Kind = iota
	KindVideo
	KindDirective
)

func (k Kind) String() string {
	switch k {
	case KindSticker:
		return "sticker"
	case KindVideo:
		return "video"
	case KindDirective:
		return "directive"
	default:
		return "unknown"
	}
}

type Unit string

const (
	UnitMinutes Unit = "m"
	UnitSeconds Unit = "s"
)

// Alternative is one decoded unit of a media reference. Payload is set for
// stickers and videos, Amount and Unit for timing directives. Alternatives
// are comparable and compare equal when they denote the same item.
type Alternative struct {
	Kind    Kind
	Payload string
	Amount  int
	Unit    Unit
}

func Sticker(id string) Alternative {
	return Alternative{Kind: KindSticker, Payload: id}
}

func Video(path string) Alternative {
	return Alternative{Kind: KindVideo, Payload: path}
}

func Directive(amount int, unit Unit) Alternative {
	if unit != UnitSeconds {
		unit = UnitMinutes
	}
	return Alternative{Kind: KindDirective, Amount: amount, Unit: unit}
}

func (a Alternative) IsDeliverable() bool {
	return a.Kind == KindSticker || a.Kind == KindVideo
}

func (a Alternative) String() string {
	switch a.Kind {
	case KindVideo:
		return VideoPrefix + a.Payload
	case KindDirective:
		if a.Unit == UnitSeconds {
			return TimePrefix + strconv.Itoa(a.Amount) + string(UnitSeconds)
		}
		return TimePrefix + strconv.Itoa(a.Amount)
	default:
		return a.Payload
	}
}

// Reference is an ordered list of alternatives. The first one is the
// primary item, the rest are delivered after it.
type Reference []Alternative

func (r Reference) Primary() (Alternative, bool) {
	if len(r) == 0 {
		return Alternative{}, false
	}
	return r[0], true
}

func (r Reference) Tail() Reference {
	if len(r) < 2 {
		return nil
	}
	return r[1:]
}

func (r Reference) Deliverables() []Alternative {
	out := make([]Alternative, 0, len(r))
	for _, alt := range r {
		if alt.IsDeliverable() {
			out = append(out, alt)
		}
	}
	return out
}

func (r Reference) HasDirective() bool {
	for _, alt := range r {
		if alt.Kind == KindDirective {
			return true
		}
	}
	return false
}

// Decode parses the compact reference grammar:
//
//	reference   := alternative ('|' alternative)*
//	alternative := 'video:' PATH | 'time:' INTEGER ['s'|'m'] | STICKER_ID
func Decode(raw string) (Reference, error) {
	var ref Reference
	for segment := range strings.SplitSeq(raw, Separator) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		alt, err := decodeAlternative(segment)
		if err != nil {
			return nil, err
		}
		ref = append(ref, alt)
	}

	if len(ref) == 0 {
		return nil, fmt.Errorf("%w: empty reference", ErrMalformedReference)
	}
	if len(ref.Deliverables()) == 0 {
		return nil, fmt.Errorf("%w: %q has no deliverable item", ErrMalformedReference, raw)
	}
	return ref, nil
}

func decodeAlternative(segment string) (Alternative, error) {
	if path, ok := strings.CutPrefix(segment, VideoPrefix); ok {
		return Video(path), nil
	}
	if amount, ok := strings.CutPrefix(segment, TimePrefix); ok {
		return decodeDirective(strings.TrimSpace(amount))
	}
	return Sticker(segment), nil
}

func decodeDirective(value string) (Alternative, error) {
	unit := UnitMinutes
	if v, ok := strings.CutSuffix(value, string(UnitSeconds)); ok {
		value, unit = v, UnitSeconds
	} else if v, ok := strings.CutSuffix(value, string(UnitMinutes)); ok {
		value = v
	}

	amount, err := strconv.Atoi(value)
	if err != nil || amount < 0 {
		return Alternative{}, fmt.Errorf("%w: invalid time amount %q", ErrMalformedReference, value)
	}
	return Directive(amount, unit), nil
}

func Encode(ref Reference) string {
	parts := make([]string, 0, len(ref))
	for _, alt := range ref {
		parts = append(parts, alt.String())
	}
	return strings.Join(parts, Separator)
}

// IsHidden reports whether raw carries the marker that keeps content out of
// inline search.
func IsHidden(raw string) bool {
	return strings.Contains(raw, HiddenMarker)
}

func StripHidden(raw string) string {
	return strings.ReplaceAll(raw, HiddenMarker, "")
}
