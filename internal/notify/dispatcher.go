// Package notify delivers complaint notifications: new records to the external
// sink, status changes back to the reporter. Every delivery is best-effort.
package notify

import (
	"complaintbot/backend/internal/config"
	"complaintbot/backend/internal/events"
	"complaintbot/backend/internal/localization"
	"complaintbot/backend/internal/models"
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Messenger sends a chat message to a user.
type Messenger interface {
	Send(ctx context.Context, reply models.Reply) error
}

// Broadcaster is the live operator feed.
type Broadcaster interface {
	Broadcast(ctx context.Context, event models.FeedEvent)
}

// Stats counts delivery outcomes since start.
type Stats struct {
	Forwarded     int64 `json:"forwarded"`
	ForwardFailed int64 `json:"forward_failed"`
	Pushed        int64 `json:"pushed"`
	PushFailed    int64 `json:"push_failed"`
	Published     int64 `json:"published"`
	PublishFailed int64 `json:"publish_failed"`
}

type Dispatcher struct {
	Webhook   *WebhookClient
	Events    events.Publisher
	Feed      Broadcaster
	Messenger Messenger
	Localizer *localization.Localizer
	Timeout   time.Duration

	now func() time.Time
	wg  sync.WaitGroup

	forwarded, forwardFailed atomic.Int64
	pushed, pushFailed       atomic.Int64
	published, publishFailed atomic.Int64
}

// NewDispatcher wires the sinks. webhook, publisher and feed may be nil.
func NewDispatcher(webhook *WebhookClient, publisher events.Publisher, feed Broadcaster, messenger Messenger, loc *localization.Localizer, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = config.DefaultDeliveryTimeout
	}
	return &Dispatcher{
		Webhook:   webhook,
		Events:    publisher,
		Feed:      feed,
		Messenger: messenger,
		Localizer: loc,
		Timeout:   timeout,
		now:       time.Now,
	}
}

// ForwardNew announces a newly filed record. It returns immediately.
func (d *Dispatcher) ForwardNew(rec models.ComplaintRecord) {
	event := models.FeedEvent{Type: models.FeedComplaintFiled, Complaint: &rec, Status: rec.Status, At: d.now()}

	if d.Webhook.Enabled() {
		d.async(func(ctx context.Context) {
			if err := d.Webhook.Post(ctx, &rec); err != nil {
				d.forwardFailed.Add(1)
				log.Printf("ERROR: webhook delivery of complaint %d failed: %v", rec.ID, err)
				return
			}
			d.forwarded.Add(1)
			log.Printf("INFO: complaint %d forwarded to webhook", rec.ID)
		})
	}
	d.announce(event)
}

// PushStatus tells the reporter about the new status of their complaint. It returns immediately.
func (d *Dispatcher) PushStatus(reporterID int64, rec models.ComplaintRecord, status models.Status) {
	event := models.FeedEvent{Type: models.FeedStatusChanged, Complaint: &rec, Status: status, At: d.now()}

	if d.Messenger != nil {
		lang := rec.Lang
		text := d.Localizer.Format(lang, "push_status", rec.ID, d.Localizer.GetString(lang, "status_"+string(status)))
		d.async(func(ctx context.Context) {
			if err := d.Messenger.Send(ctx, models.Reply{ChatID: reporterID, Text: text}); err != nil {
				d.pushFailed.Add(1)
				log.Printf("ERROR: status push to %d for complaint %d failed: %v", reporterID, rec.ID, err)
				return
			}
			d.pushed.Add(1)
		})
	}
	d.announce(event)
}

// EvidenceRelayed records that evidence was relayed to the operator.
func (d *Dispatcher) EvidenceRelayed(rec models.ComplaintRecord) {
	d.announce(models.FeedEvent{Type: models.FeedEvidenceRelayed, Complaint: &rec, At: d.now()})
}

func (d *Dispatcher) announce(event models.FeedEvent) {
	if d.Events != nil {
		d.async(func(ctx context.Context) {
			if err := d.Events.Publish(ctx, event); err != nil {
				d.publishFailed.Add(1)
				log.Printf("ERROR: kafka: publish %s failed: %v", event.Type, err)
				return
			}
			d.published.Add(1)
		})
	}
	if d.Feed != nil {
		d.async(func(ctx context.Context) {
			d.Feed.Broadcast(ctx, event)
		})
	}
}

func (d *Dispatcher) async(fn func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
		defer cancel()
		fn(ctx)
	}()
}

// Wait blocks until every in-flight delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Forwarded:     d.forwarded.Load(),
		ForwardFailed: d.forwardFailed.Load(),
		Pushed:        d.pushed.Load(),
		PushFailed:    d.pushFailed.Load(),
		Published:     d.published.Load(),
		PublishFailed: d.publishFailed.Load(),
	}
}
