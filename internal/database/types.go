package database

import (
	"context"
	"database/sql"
	"time"
)

type Database interface {
	GetDB() *sql.DB

	Exec(query string, args ...any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
	Close() error
	ExecWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error)

	// Meme records
	LoadMemes(ctx context.Context) ([]Meme, error)
	ReplaceMemes(ctx context.Context, memes []Meme) error

	// Deferred delivery journal
	SaveDelivery(ctx context.Context, d Delivery) error
	FinishDelivery(ctx context.Context, id string, status string, reason string) error
	GetDelivery(ctx context.Context, id string) (*Delivery, error)
	MarkPendingDeliveriesLost(ctx context.Context) (int64, error)
	PurgeOldDeliveries(retentionDays int) error
}

// Meme is a stored meme row. Triggers keeps the authoring form, phrases
// separated by "|".
type Meme struct {
	Position int
	Triggers string
	MediaRef string
}

type Delivery struct {
	ID              string
	ChatID          int64
	TargetMessageID int
	Item            string
	DelaySeconds    int64
	FireAt          time.Time
	Status          string
	Reason          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
