package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"signalhub-backend/pkg/constants"
)

// PresenceRepository mirrors the in-process online set into Redis so other
// services get a read-only view. The coordinator's own presence decisions
// never read from here; updates are best-effort.
type PresenceRepository struct {
	client *redis.Client
}

// NewPresenceRepository creates a new PresenceRepository
func NewPresenceRepository(client *redis.Client) *PresenceRepository {
	return &PresenceRepository{client: client}
}

// SetUserOnline marks user as online
func (r *PresenceRepository) SetUserOnline(ctx context.Context, userID string) error {
	key := fmt.Sprintf("presence:%s", userID)

	// Per-user key with TTL so a crashed process's entries age out
	if err := r.client.Set(ctx, key, "online", constants.PresenceMirrorTTL).Err(); err != nil {
		return fmt.Errorf("failed to set user online: %w", err)
	}

	if err := r.client.SAdd(ctx, "presence:online", userID).Err(); err != nil {
		return fmt.Errorf("failed to add to online set: %w", err)
	}

	return nil
}

// SetUserOffline marks user as offline
func (r *PresenceRepository) SetUserOffline(ctx context.Context, userID string) error {
	key := fmt.Sprintf("presence:%s", userID)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete presence: %w", err)
	}

	if err := r.client.SRem(ctx, "presence:online", userID).Err(); err != nil {
		return fmt.Errorf("failed to remove from online set: %w", err)
	}

	return nil
}

// IsUserOnline checks the mirrored status of a user
func (r *PresenceRepository) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	key := fmt.Sprintf("presence:%s", userID)

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check presence: %w", err)
	}

	return exists > 0, nil
}

// GetOnlineUsers retrieves the mirrored list of online user IDs
func (r *PresenceRepository) GetOnlineUsers(ctx context.Context) ([]string, error) {
	userIDs, err := r.client.SMembers(ctx, "presence:online").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get online users: %w", err)
	}
	return userIDs, nil
}
