package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const entryTTL = 2 * time.Hour

// Cache is the non-authoritative live leaderboard. Entries mirror in-flight
// submission progress for toast/leaderboard UI between broadcasts; clients
// reconcile against the persisted game results on terminal events. Every
// method is best-effort and safe to call on a nil Cache.
type Cache struct {
	client *redis.Client
}

type Entry struct {
	UserID      uuid.UUID `json:"userId"`
	Username    string    `json:"username"`
	IsCorrect   bool      `json:"isCorrect"`
	ExecutionMs int       `json:"executionMs"`
	SubmittedAt time.Time `json:"submittedAt"`
}

func NewCache(addr, password string) *Cache {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("leaderboard cache disabled: %v", err)
		return nil
	}
	return &Cache{client: client}
}

func gameKey(gameID uuid.UUID) string {
	return fmt.Sprintf("leaderboard:game:%s", gameID)
}

// Record stores the user's latest submission outcome for the game.
func (c *Cache) Record(ctx context.Context, gameID uuid.UUID, entry Entry) {
	if c == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	key := gameKey(gameID)
	if err := c.client.HSet(ctx, key, entry.UserID.String(), data).Err(); err != nil {
		log.Printf("leaderboard record failed for game %s: %v", gameID, err)
		return
	}
	c.client.Expire(ctx, key, entryTTL)
}

// Snapshot returns the current entries, which may lag or lead persisted state.
func (c *Cache) Snapshot(ctx context.Context, gameID uuid.UUID) []Entry {
	if c == nil {
		return nil
	}
	values, err := c.client.HGetAll(ctx, gameKey(gameID)).Result()
	if err != nil {
		return nil
	}
	entries := make([]Entry, 0, len(values))
	for _, raw := range values {
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// Clear drops the game's entries once the authoritative result exists.
func (c *Cache) Clear(ctx context.Context, gameID uuid.UUID) {
	if c == nil {
		return
	}
	c.client.Del(ctx, gameKey(gameID))
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
