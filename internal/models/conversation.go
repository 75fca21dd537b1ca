package models

import "time"

// Step is a position in the intake dialog.
type Step string

const (
	StepIdle                Step = "idle"
	StepAwaitingRoute       Step = "awaiting_route"
	StepAwaitingAspect      Step = "awaiting_aspect"
	StepAwaitingDate        Step = "awaiting_date"
	StepAwaitingTime        Step = "awaiting_time"
	StepAwaitingStopName    Step = "awaiting_stop_name"
	StepAwaitingDescription Step = "awaiting_description"
	StepAwaitingAction      Step = "awaiting_action"
)

// Steps returns every dialog step in order.
func Steps() []Step {
	return []Step{
		StepIdle,
		StepAwaitingRoute,
		StepAwaitingAspect,
		StepAwaitingDate,
		StepAwaitingTime,
		StepAwaitingStopName,
		StepAwaitingDescription,
		StepAwaitingAction,
	}
}

// ComplaintFields holds the partially entered record fields of an unfinished dialog.
type ComplaintFields struct {
	RouteNumber  string `json:"route_number,omitempty"`
	Aspect       Aspect `json:"aspect,omitempty"`
	IncidentDate string `json:"incident_date,omitempty"`
	IncidentTime string `json:"incident_time,omitempty"`
	Location     string `json:"location,omitempty"`
}

// Conversation is the per-reporter dialog state.
type Conversation struct {
	ReporterID int64           `json:"reporter_id"`
	Step       Step            `json:"step"`
	Fields     ComplaintFields `json:"fields"`
	// ComplaintID is set after the record is filed and is used by the evidence loop.
	ComplaintID int64     `json:"complaint_id,omitempty"`
	Lang        string    `json:"lang,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewConversation returns an idle conversation for the reporter.
func NewConversation(reporterID int64, lang string) *Conversation {
	return &Conversation{
		ReporterID: reporterID,
		Step:       StepIdle,
		Lang:       lang,
	}
}

// Reset discards every unfinalized field and returns the conversation to Idle.
func (c *Conversation) Reset() {
	c.Step = StepIdle
	c.Fields = ComplaintFields{}
	c.ComplaintID = 0
}
