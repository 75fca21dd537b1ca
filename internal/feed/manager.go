// Package feed broadcasts complaint lifecycle events to connected operator dashboards.
package feed

import (
	"complaintbot/backend/internal/models"
	"context"
	"encoding/json"
	"log"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// BroadcastChannel is the redis pub/sub channel shared by all bot instances.
const BroadcastChannel = "complaints:feed"

// Manager owns the set of connected clients. The client map is only touched
// from the Run loop.
type Manager struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	BroadcastCh  chan models.FeedEvent

	// Redis, when set, fans events out through pub/sub so every instance's
	// dashboards see every event.
	Redis *redis.Client

	connected atomic.Int64
	done      chan struct{}
}

func NewManager(rdb *redis.Client) *Manager {
	return &Manager{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		BroadcastCh:  make(chan models.FeedEvent, 64),
		Redis:        rdb,
		done:         make(chan struct{}),
	}
}

// Done is closed when the hub loop has stopped.
func (m *Manager) Done() <-chan struct{} { return m.done }

// Register hands a client to the hub loop. It reports false, without
// registering, when the hub has stopped or ctx ends first.
func (m *Manager) Register(ctx context.Context, client Client) bool {
	select {
	case m.RegisterCh <- client:
		return true
	case <-m.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Connected reports the number of registered clients.
func (m *Manager) Connected() int {
	return int(m.connected.Load())
}

// Broadcast hands an event to every connected client. It never blocks the caller
// for long: with a full queue the event is dropped.
func (m *Manager) Broadcast(ctx context.Context, event models.FeedEvent) {
	if m.Redis != nil {
		data, err := json.Marshal(event)
		if err != nil {
			log.Printf("ERROR: feed: marshal event: %v", err)
			return
		}
		if err := m.Redis.Publish(ctx, BroadcastChannel, data).Err(); err != nil {
			log.Printf("WARN: feed: publish to redis failed, delivering locally: %v", err)
		} else {
			return
		}
	}
	m.enqueue(event)
}

func (m *Manager) enqueue(event models.FeedEvent) {
	select {
	case m.BroadcastCh <- event:
	default:
		log.Printf("WARN: feed: queue full, dropping %s event", event.Type)
	}
}

// startPubSubListener relays events published by any instance into the local loop.
func (m *Manager) startPubSubListener(ctx context.Context) {
	pubsub := m.Redis.Subscribe(ctx, BroadcastChannel)
	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event models.FeedEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("ERROR: feed: bad redis payload: %v", err)
					continue
				}
				m.enqueue(event)
			}
		}
	}()
}

// Run is the hub loop. It returns when ctx is cancelled, closing every client.
// It must be called once.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	if m.Redis != nil {
		m.startPubSubListener(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for id, client := range m.Clients {
				client.Close()
				delete(m.Clients, id)
			}
			m.connected.Store(0)
			return

		case client := <-m.RegisterCh:
			m.Clients[client.GetClientID()] = client
			m.connected.Store(int64(len(m.Clients)))
			log.Printf("INFO: feed: client %s connected", client.GetClientID())

		case client := <-m.UnregisterCh:
			if _, ok := m.Clients[client.GetClientID()]; ok {
				delete(m.Clients, client.GetClientID())
				client.Close()
				m.connected.Store(int64(len(m.Clients)))
				log.Printf("INFO: feed: client %s disconnected", client.GetClientID())
			}

		case event := <-m.BroadcastCh:
			for id, client := range m.Clients {
				select {
				case client.GetSendChannel() <- event:
				default:
					// slow consumer
					log.Printf("WARN: feed: client %s is not keeping up, disconnecting", id)
					delete(m.Clients, id)
					client.Close()
				}
			}
			m.connected.Store(int64(len(m.Clients)))
		}
	}
}
