package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"signalhub-backend/internal/domain"
)

// historyStream is the Redis stream terminal call records are appended to.
// A downstream consumer drains it into durable storage.
const historyStream = "calls:history"

// CallHistoryRepository publishes terminal call records to a Redis stream
type CallHistoryRepository struct {
	client *redis.Client
}

// NewCallHistoryRepository creates a new CallHistoryRepository
func NewCallHistoryRepository(client *redis.Client) *CallHistoryRepository {
	return &CallHistoryRepository{client: client}
}

// Record appends one terminal call record to the history stream
func (r *CallHistoryRepository) Record(ctx context.Context, rec *domain.CallHistoryRecord) error {
	err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: historyStream,
		Values: map[string]interface{}{
			"call_id":    rec.CallID,
			"caller_id":  rec.CallerID,
			"callee_id":  rec.CalleeID,
			"call_type":  rec.CallType,
			"start_time": rec.StartTime.UnixMilli(),
			"end_time":   rec.EndTime.UnixMilli(),
			"duration":   rec.Duration,
			"outcome":    string(rec.Outcome),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append call history: %w", err)
	}
	return nil
}
