package models

import "time"

// FeedEventType names a complaint lifecycle event.
type FeedEventType string

const (
	FeedComplaintFiled  FeedEventType = "complaint.filed"
	FeedStatusChanged   FeedEventType = "complaint.status_changed"
	FeedEvidenceRelayed FeedEventType = "complaint.evidence"
)

// FeedEvent is pushed to live operator dashboards and the event stream.
type FeedEvent struct {
	Type      FeedEventType    `json:"event"`
	Complaint *ComplaintRecord `json:"complaint,omitempty"`
	Status    Status           `json:"status,omitempty"`
	At        time.Time        `json:"at"`
}
