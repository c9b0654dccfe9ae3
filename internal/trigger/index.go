package trigger

import (
	"strings"

	"github.com/muratoffalex/memebot/internal/logger"
	"github.com/muratoffalex/memebot/internal/media"
	"github.com/muratoffalex/memebot/internal/text"
)

// Record is one row of the meme table. A trigger cell may hold several
// phrases separated by "|".
type Record struct {
	Triggers []string
	MediaRef string
}

// Entry is one trigger of the index. Trigger is the lookup key, Phrase the
// text as written in the source.
type Entry struct {
	Trigger   string
	Phrase    string
	Words     []string
	Reference media.Reference
	Hidden    bool
}

// Index maps normalized triggers to decoded references. It is never mutated
// after Build, so it can be shared between goroutines without locking.
type Index struct {
	entries   []Entry
	positions map[string]int
	skipped   int
}

func Empty() *Index {
	return &Index{positions: make(map[string]int)}
}

// Build normalizes every trigger and decodes every reference once. Records
// with a malformed reference are logged and skipped. When two records share
// a normalized trigger the later one wins and keeps the earlier position.
func Build(records []Record, log logger.Logger) *Index {
	idx := Empty()
	owners := make(map[string]int)

	for i, rec := range records {
		recLog := log.WithFields(logger.Fields{
			"record":    i,
			"media_ref": rec.MediaRef,
		})

		hidden := media.IsHidden(rec.MediaRef)
		ref, err := media.Decode(media.StripHidden(rec.MediaRef))
		if err != nil {
			recLog.WithError(err).Warn("Skipping record with malformed media reference")
			idx.skipped++
			continue
		}

		var phrases []phrase
		for _, cell := range rec.Triggers {
			hidden = hidden || media.IsHidden(cell)
			phrases = append(phrases, splitPhrases(cell)...)
		}
		if len(phrases) == 0 {
			recLog.Warn("Skipping record without triggers")
			idx.skipped++
			continue
		}

		for _, p := range phrases {
			trigger := p.key
			entry := Entry{
				Trigger:   trigger,
				Phrase:    p.raw,
				Words:     text.Tokenize(trigger),
				Reference: ref,
				Hidden:    hidden,
			}

			pos, exists := idx.positions[trigger]
			if !exists {
				idx.positions[trigger] = len(idx.entries)
				idx.entries = append(idx.entries, entry)
				owners[trigger] = i
				continue
			}

			if owners[trigger] != i {
				recLog.WithFields(logger.Fields{
					"trigger":         trigger,
					"previous_record": owners[trigger],
				}).Warn("Duplicate trigger, later record overrides earlier one")
				owners[trigger] = i
			}
			idx.entries[pos] = entry
		}
	}

	return idx
}

// SplitTriggers turns a trigger cell into normalized phrases, dropping the
// hidden marker and empty phrases.
func SplitTriggers(cell string) []string {
	var out []string
	for _, p := range splitPhrases(cell) {
		out = append(out, p.key)
	}
	return out
}

type phrase struct {
	raw string
	key string
}

func splitPhrases(cell string) []phrase {
	var out []phrase
	for raw := range strings.SplitSeq(media.StripHidden(cell), media.Separator) {
		raw = strings.TrimSpace(raw)
		if key := text.Key(raw); key != "" {
			out = append(out, phrase{raw: raw, key: key})
		}
	}
	return out
}

func (idx *Index) LookupExact(normalized string) (media.Reference, bool) {
	pos, ok := idx.positions[normalized]
	if !ok {
		return nil, false
	}
	return idx.entries[pos].Reference, true
}

// AllEntries returns the entries visible to inline search in insertion order.
func (idx *Index) AllEntries() []Entry {
	out := make([]Entry, 0, len(idx.entries))
	for _, e := range idx.entries {
		if !e.Hidden {
			out = append(out, e)
		}
	}
	return out
}

func (idx *Index) Len() int {
	return len(idx.entries)
}

func (idx *Index) Skipped() int {
	return idx.skipped
}

// Phrases lists the visible triggers as written, in insertion order.
func (idx *Index) Phrases() []string {
	var out []string
	for _, e := range idx.entries {
		if !e.Hidden {
			out = append(out, e.Phrase)
		}
	}
	return out
}

// Triggers lists the visible normalized triggers in insertion order.
func (idx *Index) Triggers() []string {
	var out []string
	for _, e := range idx.entries {
		if !e.Hidden {
			out = append(out, e.Trigger)
		}
	}
	return out
}
