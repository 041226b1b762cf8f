package config

import "time"

type Config interface {
	CapacityAh() float64
	CellCount() int

	CollectionInterval() time.Duration
	DayUploadInterval() time.Duration
	NightUploadInterval() time.Duration

	APIEndpoint() string
	APIUsername() string
	APIPassword() string

	StatePath() string
	SpillPath() string

	MQTTBroker() string
	MQTTUsername() string
	MQTTPassword() string
	MQTTTopicPrefix() string

	// MostRecentMetrics and MostCommonMetrics declare the per-deployment
	// rollup policy table; every other metric is averaged.
	MostRecentMetrics() []string
	MostCommonMetrics() []string

	AllowNonRootAccess() bool

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
