package source

import (
	"context"
	"errors"

	"github.com/muratoffalex/memebot/internal/trigger"
)

// ErrUnavailable is returned when the backing store cannot be read.
var ErrUnavailable = errors.New("record source unavailable")

type Source interface {
	Name() string
	Load(ctx context.Context) ([]trigger.Record, error)
}
