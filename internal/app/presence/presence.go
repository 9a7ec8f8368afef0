/*
Package presence tracks which identities are online in which rooms using Redis sets.

One set per room, keyed room:{id}:online. Tracking is best-effort: a Redis
failure is reported to the caller for logging and never blocks the fan-out
path. Membership is process-local knowledge made shareable, not replicated
room state.
*/
package presence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Tracker records per-room online identities in Redis.
type Tracker struct {
	rdb *redis.Client
}

// New constructs a Tracker over the given Redis address.
func New(addr string) *Tracker {
	return &Tracker{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// roomKey builds the set key for a room.
func roomKey(roomID string) string {
	return fmt.Sprintf("room:%s:online", roomID)
}

// Join marks identity online in the room.
func (t *Tracker) Join(ctx context.Context, roomID, identity string) error {
	return t.rdb.SAdd(ctx, roomKey(roomID), identity).Err()
}

// Leave removes identity from the room's online set.
func (t *Tracker) Leave(ctx context.Context, roomID, identity string) error {
	return t.rdb.SRem(ctx, roomKey(roomID), identity).Err()
}

// Online returns the identities currently marked online in the room.
func (t *Tracker) Online(ctx context.Context, roomID string) ([]string, error) {
	return t.rdb.SMembers(ctx, roomKey(roomID)).Result()
}

// Close releases the underlying Redis connection.
func (t *Tracker) Close() error {
	return t.rdb.Close()
}
