package models

import (
	"fmt"
	"time"
)

// Aspect is the fixed category of the complaint's subject.
type Aspect string

const (
	AspectConduct          Aspect = "Conduct"
	AspectTimeliness       Aspect = "Timeliness"
	AspectCrowding         Aspect = "Crowding"
	AspectVehicleCondition Aspect = "VehicleCondition"
	AspectSafety           Aspect = "Safety"
	AspectPayment          Aspect = "Payment"
	AspectOther            Aspect = "Other"
)

// Aspects returns the category set in menu order.
func Aspects() []Aspect {
	return []Aspect{
		AspectConduct,
		AspectTimeliness,
		AspectCrowding,
		AspectVehicleCondition,
		AspectSafety,
		AspectPayment,
		AspectOther,
	}
}

// Valid reports whether a is one of the fixed categories.
func (a Aspect) Valid() bool {
	for _, known := range Aspects() {
		if a == known {
			return true
		}
	}
	return false
}

// Severity is the urgency tier computed once when a complaint is filed.
type Severity string

const (
	SeverityUrgent Severity = "Urgent"
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// Status is the processing state of a complaint.
type Status string

const (
	StatusNew      Status = "New"
	StatusResolved Status = "Resolved"
	StatusRejected Status = "Rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusNew || s == StatusResolved || s == StatusRejected
}

// Final reports whether s is a terminal status.
func (s Status) Final() bool {
	return s == StatusResolved || s == StatusRejected
}

// CanTransition reports whether a record in status from may move to status to.
// Only New -> Resolved and New -> Rejected are allowed.
func CanTransition(from, to Status) bool {
	return from == StatusNew && to.Final()
}

// ComplaintRecord is one persisted incident report.
// Every field except Status is fixed once the record is filed.
type ComplaintRecord struct {
	ID               int64     `json:"complaint_id"`
	ReporterID       int64     `json:"user_id"`
	ReporterHandle   string    `json:"reporter"`
	Object           string    `json:"object"`
	RouteNumber      string    `json:"route_number"`
	Aspect           Aspect    `json:"aspect"`
	IncidentDateTime string    `json:"date_time"`
	Location         string    `json:"location"`
	Description      string    `json:"description"`
	Severity         Severity  `json:"severity"`
	Status           Status    `json:"status"`
	Recommendation   string    `json:"recommendation"`
	Lang             string    `json:"lang,omitempty"`
	FiledAt          time.Time `json:"filed_at"`
}

// RouteObject returns the display label used for the record's Object field.
func RouteObject(route string) string {
	return fmt.Sprintf("Route %s", route)
}
