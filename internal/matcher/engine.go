package matcher

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muratoffalex/memebot/internal/logger"
	"github.com/muratoffalex/memebot/internal/media"
	"github.com/muratoffalex/memebot/internal/text"
	"github.com/muratoffalex/memebot/internal/trigger"
)

// MaxInlineResults is the Bot API limit for one inline query answer.
const MaxInlineResults = 50

var ErrIndexUnavailable = errors.New("trigger index unavailable")

type RecordLoader interface {
	Load(ctx context.Context) ([]trigger.Record, error)
}

// Engine answers exact and prefix lookups against the current index. The
// index is replaced as a whole on reload, readers never see a partial one.
type Engine struct {
	index  atomic.Pointer[trigger.Index]
	loaded atomic.Bool
	logger logger.Logger

	// reloadMu serializes Reload so a slow load can never publish over a
	// newer one.
	reloadMu sync.Mutex
}

func New(log logger.Logger) *Engine {
	e := &Engine{logger: log}
	e.index.Store(trigger.Empty())
	return e
}

func (e *Engine) Index() *trigger.Index {
	return e.index.Load()
}

func (e *Engine) Swap(idx *trigger.Index) {
	e.index.Store(idx)
	e.loaded.Store(true)
}

// Loaded reports whether at least one load succeeded.
func (e *Engine) Loaded() bool {
	return e.loaded.Load()
}

// Reload builds a fresh index from the loader and publishes it. On failure
// the previous index stays in effect. Concurrent calls run one at a time.
func (e *Engine) Reload(ctx context.Context, loader RecordLoader) error {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	start := time.Now()
	records, err := loader.Load(ctx)
	if err != nil {
		e.logger.WithError(err).WithField("has_previous", e.Loaded()).Error("Failed to load meme records, keeping current index")
		return fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}

	idx := trigger.Build(records, e.logger)
	e.Swap(idx)

	e.logger.WithFields(logger.Fields{
		"records":  len(records),
		"triggers": idx.Len(),
		"skipped":  idx.Skipped(),
		"duration": time.Since(start).String(),
	}).Info("Trigger index reloaded")
	return nil
}

// Resolve looks up the message as an exact trigger. Surrounding whitespace,
// including what comma removal leaves behind, is ignored on both sides.
func (e *Engine) Resolve(message string) (media.Reference, bool) {
	return e.Index().LookupExact(text.Key(message))
}

// Search returns the deliverable alternatives of every visible entry whose
// trigger words are matched by all query words as prefixes. Results keep index
// order, are deduplicated and capped at max (MaxInlineResults when max <= 0).
func (e *Engine) Search(query string, max int) []media.Alternative {
	if max <= 0 {
		max = MaxInlineResults
	}
	return e.collect(text.Tokenize(text.Normalize(query)), max)
}

// Random picks up to n distinct visible deliverables.
func (e *Engine) Random(n int) []media.Alternative {
	all := e.collect(nil, 0)
	rand.Shuffle(len(all), func(i, j int) {
		all[i], all[j] = all[j], all[i]
	})
	if n >= 0 && n < len(all) {
		all = all[:n]
	}
	return all
}

// collect walks visible entries in index order. limit <= 0 means no limit.
func (e *Engine) collect(queryWords []string, limit int) []media.Alternative {
	var results []media.Alternative
	seen := make(map[media.Alternative]struct{})
	for _, entry := range e.Index().AllEntries() {
		if !text.MatchesAll(queryWords, entry.Words) {
			continue
		}
		for _, alt := range entry.Reference.Deliverables() {
			if _, dup := seen[alt]; dup {
				continue
			}
			seen[alt] = struct{}{}
			results = append(results, alt)
			if limit > 0 && len(results) == limit {
				return results
			}
		}
	}
	return results
}
