package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/muratoffalex/memebot/internal/delivery"
)

func (s *sqliteDB) SaveDelivery(ctx context.Context, d Delivery) error {
	_, err := s.ExecWithRetry(ctx, `
		INSERT INTO deliveries (id, chat_id, target_message_id, item, delay_seconds, fire_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.ChatID, d.TargetMessageID, d.Item, d.DelaySeconds, d.FireAt, d.Status)
	return err
}

func (s *sqliteDB) FinishDelivery(ctx context.Context, id string, status string, reason string) error {
	_, err := s.ExecWithRetry(ctx, `
		UPDATE deliveries SET status = ?, reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, reason, id)
	return err
}

func (s *sqliteDB) GetDelivery(ctx context.Context, id string) (*Delivery, error) {
	d := &Delivery{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, chat_id, target_message_id, item, delay_seconds, fire_at, status, reason, created_at, updated_at
		FROM deliveries WHERE id = ?
	`, id).Scan(
		&d.ID, &d.ChatID, &d.TargetMessageID, &d.Item, &d.DelaySeconds,
		&d.FireAt, &d.Status, &d.Reason, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("delivery %s not found: %w", id, err)
		}
		return nil, err
	}
	return d, nil
}

// MarkPendingDeliveriesLost flags deliveries left pending by a previous
// process. They are not re-scheduled.
func (s *sqliteDB) MarkPendingDeliveriesLost(ctx context.Context) (int64, error) {
	res, err := s.ExecWithRetry(ctx, `
		UPDATE deliveries SET status = ?, reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE status = ?
	`, string(delivery.StatusLost), "process restarted before fire time", string(delivery.StatusPending))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqliteDB) PurgeOldDeliveries(retentionDays int) error {
	_, err := s.db.Exec("DELETE FROM deliveries WHERE created_at < datetime('now', ?)", fmt.Sprintf("-%d days", retentionDays))
	return err
}

// DeliveryJournal records scheduler events in the deliveries table.
type DeliveryJournal struct {
	db Database
}

func NewDeliveryJournal(db Database) *DeliveryJournal {
	return &DeliveryJournal{db: db}
}

func (j *DeliveryJournal) Scheduled(ctx context.Context, d delivery.ScheduledDelivery) error {
	return j.db.SaveDelivery(ctx, Delivery{
		ID:              d.ID,
		ChatID:          d.ChatID,
		TargetMessageID: d.TargetMessageID,
		Item:            d.Alternative.String(),
		DelaySeconds:    int64(d.Delay / time.Second),
		FireAt:          d.FireAt,
		Status:          string(delivery.StatusPending),
	})
}

func (j *DeliveryJournal) Finished(ctx context.Context, id string, status delivery.Status, reason string) error {
	return j.db.FinishDelivery(ctx, id, string(status), reason)
}
