package metrics

// Metric names produced by the collector. The upload API and the rollup
// policy table refer to these.
const (
	MetricTimestamp     = "timestamp"
	MetricPVVolts       = "pv_volts"
	MetricPVAmps        = "pv_amps"
	MetricPVWatts       = "pv_watts"
	MetricKWhToday      = "kwh_today"
	MetricKWhTotal      = "kwh_total"
	MetricChargingMode  = "pv_charging_mode"
	MetricBatteryTemp   = "battery_temp"
	MetricBatteryVolts  = "battery_volts"
	MetricBatteryAmps   = "battery_amps"
	MetricBatteryWatts  = "battery_watts"
	MetricBatteryCharge = "battery_charge"
	MetricDCLoadWatts   = "dc_load_watts"
	MetricACLoadWatts   = "ac_load_watts"
	MetricLoadWatts     = "load_watts"
)

// TimestampLayout is the wire format for aggregated timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Sample is one tick's worth of named instantaneous readings. Values are
// float64, string, or time.Time.
type Sample map[string]any

// Float returns the value for key as a float64, or 0 if the key is missing
// or not numeric.
func (s Sample) Float(key string) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// String returns the value for key as a string, or "" if the key is missing
// or not a string.
func (s Sample) String(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}
