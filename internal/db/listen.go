package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Change is one decoded notification from lanceo_notify_change.
type Change struct {
	Table     string         `json:"table"`
	Type      string         `json:"type"`
	Record    map[string]any `json:"record"`
	OldRecord map[string]any `json:"old_record"`
}

// DecodeChange parses a notification payload.
func DecodeChange(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	if c.Table == "" || c.Type == "" {
		return Change{}, fmt.Errorf("decode change: missing table or type")
	}
	return c, nil
}

// Listen holds one pooled connection in LISTEN on channel and calls fn for
// each decoded change until ctx is done. It returns nil on cancellation and
// the connection error otherwise; undecodable payloads go to onBad.
func Listen(ctx context.Context, pool *pgxpool.Pool, channel string, fn func(Change), onBad func(error)) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", channel, err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		c, err := DecodeChange(n.Payload)
		if err != nil {
			if onBad != nil {
				onBad(err)
			}
			continue
		}
		fn(c)
	}
}
