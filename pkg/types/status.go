package types

// Status is the daemon status reported by GET /status.
type Status struct {
	PercentCharged      float64 `json:"percentCharged"`
	RemainingCapacityAh float64 `json:"remainingCapacityAh"`
	CapacityAh          float64 `json:"capacityAh"`
	Daytime             bool    `json:"daytime"`
	QueuedUploads       int     `json:"queuedUploads"`
	Version             string  `json:"version"`
}
