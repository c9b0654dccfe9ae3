package database

import (
	"context"
	"fmt"
)

func (s *sqliteDB) LoadMemes(ctx context.Context) ([]Meme, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT position, triggers, media_ref FROM memes ORDER BY position, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query memes: %w", err)
	}
	defer rows.Close()

	var memes []Meme
	for rows.Next() {
		var m Meme
		if err := rows.Scan(&m.Position, &m.Triggers, &m.MediaRef); err != nil {
			return nil, fmt.Errorf("failed to scan meme: %w", err)
		}
		memes = append(memes, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return memes, nil
}

// ReplaceMemes swaps the whole table content in one transaction.
func (s *sqliteDB) ReplaceMemes(ctx context.Context, memes []Meme) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM memes"); err != nil {
		return fmt.Errorf("failed to clear memes: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO memes (position, triggers, media_ref) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range memes {
		if _, err := stmt.ExecContext(ctx, m.Position, m.Triggers, m.MediaRef); err != nil {
			return fmt.Errorf("failed to insert meme %d: %w", m.Position, err)
		}
	}

	return tx.Commit()
}
