// Package valkey tracks which users currently hold a live chat connection.
// Presence is advisory display state: every write is best-effort and keys
// expire on their own so a crashed node cannot leave users online forever.
package valkey

import (
	"context"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"
)

const keyPrefix = "chat:online:"

type PresenceStore struct {
	client valkey.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewPresenceStore(address string, ttl time.Duration, log *slog.Logger) (*PresenceStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{address}})
	if err != nil {
		return nil, err
	}
	return &PresenceStore{client: client, ttl: ttl, log: log}, nil
}

func (p *PresenceStore) MarkOnline(ctx context.Context, userID string) error {
	cmd := p.client.B().Set().Key(keyPrefix + userID).Value("1").Ex(p.ttl).Build()
	return p.client.Do(ctx, cmd).Error()
}

func (p *PresenceStore) MarkOffline(ctx context.Context, userID string) error {
	cmd := p.client.B().Del().Key(keyPrefix + userID).Build()
	return p.client.Do(ctx, cmd).Error()
}

func (p *PresenceStore) IsOnline(ctx context.Context, userID string) (bool, error) {
	cmd := p.client.B().Exists().Key(keyPrefix + userID).Build()
	n, err := p.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RefreshLoop re-arms the TTL of every connected user until ctx is done.
// onlineUsers is typically the gateway hub's registry snapshot.
func (p *PresenceStore) RefreshLoop(ctx context.Context, onlineUsers func() []string, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, userID := range onlineUsers() {
				if err := p.MarkOnline(ctx, userID); err != nil {
					p.log.Warn("presence refresh failed", "user_id", userID, "error", err)
				}
			}
		}
	}
}

func (p *PresenceStore) Close() {
	p.client.Close()
}
