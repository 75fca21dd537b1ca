package config

import "time"

const (
	// PendingListLimit caps how many pending complaints the operator panel shows.
	PendingListLimit = 5

	// DateLayout and TimeLayout format the quick-pick date and time answers.
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// SweepSchedule is the cron spec of the idle conversation sweep.
	SweepSchedule = "@every 1m"

	// DefaultDeliveryTimeout bounds webhook, push and event deliveries.
	DefaultDeliveryTimeout = 5 * time.Second

	// OperatorTokenTTL is the lifetime of API tokens issued by the admin CLI.
	OperatorTokenTTL = 72 * time.Hour
)
