package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/muratoffalex/memebot/internal/database"
	"github.com/muratoffalex/memebot/internal/media"
	"github.com/muratoffalex/memebot/internal/trigger"
)

// SQLiteSource reads records from the memes table ordered by position.
type SQLiteSource struct {
	db database.Database
}

func NewSQLiteSource(db database.Database) *SQLiteSource {
	return &SQLiteSource{db: db}
}

func (s *SQLiteSource) Name() string {
	return "sqlite:memes"
}

func (s *SQLiteSource) Load(ctx context.Context) ([]trigger.Record, error) {
	memes, err := s.db.LoadMemes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	records := make([]trigger.Record, 0, len(memes))
	for _, m := range memes {
		records = append(records, trigger.Record{
			Triggers: []string{m.Triggers},
			MediaRef: m.MediaRef,
		})
	}
	return records, nil
}

// Import copies every record of src into the memes table, replacing its
// content. Trigger cells are joined back into the authoring form.
func Import(ctx context.Context, src Source, db database.Database) (int, error) {
	records, err := src.Load(ctx)
	if err != nil {
		return 0, err
	}

	memes := make([]database.Meme, 0, len(records))
	for i, rec := range records {
		memes = append(memes, database.Meme{
			Position: i + 1,
			Triggers: strings.Join(rec.Triggers, media.Separator),
			MediaRef: rec.MediaRef,
		})
	}

	if err := db.ReplaceMemes(ctx, memes); err != nil {
		return 0, fmt.Errorf("failed to store memes: %w", err)
	}
	return len(memes), nil
}

