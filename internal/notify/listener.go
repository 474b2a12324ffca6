package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/models"
)

// Channel is the Postgres NOTIFY channel written by the change triggers
const Channel = "nook_changes"

// PGListener forwards Postgres notifications into a Hub
type PGListener struct {
	listener *pq.Listener
	hub      *Hub
	log      zerolog.Logger
}

// NewPGListener opens a dedicated LISTEN connection
func NewPGListener(dsn string, hub *Hub, log zerolog.Logger) (*PGListener, error) {
	l := &PGListener{
		hub: hub,
		log: log.With().Str("component", "pg_listener").Logger(),
	}

	l.listener = pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			l.log.Info().Msg("Change listener connected")
		case pq.ListenerEventDisconnected:
			l.log.Warn().Err(err).Msg("Change listener disconnected")
		case pq.ListenerEventReconnected:
			l.log.Info().Msg("Change listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			l.log.Error().Err(err).Msg("Change listener connection attempt failed")
		}
	})

	if err := l.listener.Listen(Channel); err != nil {
		l.listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", Channel, err)
	}
	return l, nil
}

// Run forwards notifications until ctx is cancelled
func (l *PGListener) Run(ctx context.Context) {
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-l.listener.Notify:
			// nil after a reconnect; changes made while disconnected are lost
			if n == nil {
				continue
			}
			change, err := DecodeChange(n.Extra)
			if err != nil {
				l.log.Warn().Err(err).Str("payload", n.Extra).Msg("Ignoring malformed change notification")
				continue
			}
			l.hub.Publish(change)
		case <-ping.C:
			go l.listener.Ping()
		}
	}
}

// Close releases the listener connection
func (l *PGListener) Close() error {
	return l.listener.Close()
}

// DecodeChange parses a trigger payload
func DecodeChange(payload string) (models.Change, error) {
	var change models.Change
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return change, err
	}
	if change.Collection == "" || change.ID == "" {
		return change, fmt.Errorf("change notification missing collection or id")
	}
	switch change.Op {
	case models.ChangeUpsert, models.ChangeDelete:
	default:
		return change, fmt.Errorf("unknown change op %q", change.Op)
	}
	return change, nil
}
