package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/skybright/solarcollect/pkg/utils/ptr"
)

var defaultFileConfig = &RawFileConfig{
	BatteryCapacityAh:          ptr.To(125.0),
	BatteryCellCount:           ptr.To(6),
	CollectionIntervalSeconds:  ptr.To(5.0),
	DayUploadIntervalSeconds:   ptr.To(60.0),
	NightUploadIntervalSeconds: ptr.To(600.0),
	APIEndpoint:                ptr.To("https://example.com/api/solar/upload"),
	APIUsername:                ptr.To(""),
	APIPassword:                ptr.To(""),
	BatteryStatePath:           ptr.To("/var/run/battery.state"),
	FailedUploadPath:           ptr.To("/opt/solar_upload_failed.json"),
	MQTTBroker:                 ptr.To(""),
	MQTTUsername:               ptr.To(""),
	MQTTPassword:               ptr.To(""),
	MQTTTopicPrefix:            ptr.To("solarcollect"),
	MostRecentMetrics:          ptr.To([]string{"timestamp", "kwh_today", "kwh_total", "battery_charge"}),
	MostCommonMetrics:          ptr.To([]string{"pv_charging_mode"}),
	AllowNonRootAccess:         ptr.To(false),
}

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = defaultFileConfig
	}

	return &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}
}

type RawFileConfig struct {
	BatteryCapacityAh          *float64  `json:"batteryCapacityAh,omitempty"`
	BatteryCellCount           *int      `json:"batteryCellCount,omitempty"`
	CollectionIntervalSeconds  *float64  `json:"collectionIntervalSeconds,omitempty"`
	DayUploadIntervalSeconds   *float64  `json:"dayUploadIntervalSeconds,omitempty"`
	NightUploadIntervalSeconds *float64  `json:"nightUploadIntervalSeconds,omitempty"`
	APIEndpoint                *string   `json:"apiEndpoint,omitempty"`
	APIUsername                *string   `json:"apiUsername,omitempty"`
	APIPassword                *string   `json:"apiPassword,omitempty"`
	BatteryStatePath           *string   `json:"batteryStatePath,omitempty"`
	FailedUploadPath           *string   `json:"failedUploadPath,omitempty"`
	MQTTBroker                 *string   `json:"mqttBroker,omitempty"`
	MQTTUsername               *string   `json:"mqttUsername,omitempty"`
	MQTTPassword               *string   `json:"mqttPassword,omitempty"`
	MQTTTopicPrefix            *string   `json:"mqttTopicPrefix,omitempty"`
	MostRecentMetrics          *[]string `json:"mostRecentMetrics,omitempty"`
	MostCommonMetrics          *[]string `json:"mostCommonMetrics,omitempty"`
	AllowNonRootAccess         *bool     `json:"allowNonRootAccess,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	return &RawFileConfig{
		BatteryCapacityAh:          ptr.To(c.CapacityAh()),
		BatteryCellCount:           ptr.To(c.CellCount()),
		CollectionIntervalSeconds:  ptr.To(c.CollectionInterval().Seconds()),
		DayUploadIntervalSeconds:   ptr.To(c.DayUploadInterval().Seconds()),
		NightUploadIntervalSeconds: ptr.To(c.NightUploadInterval().Seconds()),
		APIEndpoint:                ptr.To(c.APIEndpoint()),
		APIUsername:                ptr.To(c.APIUsername()),
		BatteryStatePath:           ptr.To(c.StatePath()),
		FailedUploadPath:           ptr.To(c.SpillPath()),
		MQTTBroker:                 ptr.To(c.MQTTBroker()),
		MQTTTopicPrefix:            ptr.To(c.MQTTTopicPrefix()),
		MostRecentMetrics:          ptr.To(c.MostRecentMetrics()),
		MostCommonMetrics:          ptr.To(c.MostCommonMetrics()),
		AllowNonRootAccess:         ptr.To(c.AllowNonRootAccess()),
	}, nil
}

func (f *File) CapacityAh() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.BatteryCapacityAh != nil {
		return *f.c.BatteryCapacityAh
	}
	return *defaultFileConfig.BatteryCapacityAh
}

func (f *File) CellCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.BatteryCellCount != nil {
		return *f.c.BatteryCellCount
	}
	return *defaultFileConfig.BatteryCellCount
}

func (f *File) CollectionInterval() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return secondsToDuration(f.c.CollectionIntervalSeconds, defaultFileConfig.CollectionIntervalSeconds)
}

func (f *File) DayUploadInterval() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return secondsToDuration(f.c.DayUploadIntervalSeconds, defaultFileConfig.DayUploadIntervalSeconds)
}

func (f *File) NightUploadInterval() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return secondsToDuration(f.c.NightUploadIntervalSeconds, defaultFileConfig.NightUploadIntervalSeconds)
}

func (f *File) APIEndpoint() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.APIEndpoint != nil {
		return *f.c.APIEndpoint
	}
	return *defaultFileConfig.APIEndpoint
}

func (f *File) APIUsername() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.APIUsername != nil {
		return *f.c.APIUsername
	}
	return *defaultFileConfig.APIUsername
}

func (f *File) APIPassword() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.APIPassword != nil {
		return *f.c.APIPassword
	}
	return *defaultFileConfig.APIPassword
}

func (f *File) StatePath() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.BatteryStatePath != nil {
		return *f.c.BatteryStatePath
	}
	return *defaultFileConfig.BatteryStatePath
}

func (f *File) SpillPath() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.FailedUploadPath != nil {
		return *f.c.FailedUploadPath
	}
	return *defaultFileConfig.FailedUploadPath
}

func (f *File) MQTTBroker() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.MQTTBroker != nil {
		return *f.c.MQTTBroker
	}
	return *defaultFileConfig.MQTTBroker
}

func (f *File) MQTTUsername() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.MQTTUsername != nil {
		return *f.c.MQTTUsername
	}
	return *defaultFileConfig.MQTTUsername
}

func (f *File) MQTTPassword() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.MQTTPassword != nil {
		return *f.c.MQTTPassword
	}
	return *defaultFileConfig.MQTTPassword
}

func (f *File) MQTTTopicPrefix() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.MQTTTopicPrefix != nil {
		return *f.c.MQTTTopicPrefix
	}
	return *defaultFileConfig.MQTTTopicPrefix
}

func (f *File) MostRecentMetrics() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.MostRecentMetrics != nil {
		return *f.c.MostRecentMetrics
	}
	return *defaultFileConfig.MostRecentMetrics
}

func (f *File) MostCommonMetrics() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.MostCommonMetrics != nil {
		return *f.c.MostCommonMetrics
	}
	return *defaultFileConfig.MostCommonMetrics
}

func (f *File) AllowNonRootAccess() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.AllowNonRootAccess != nil {
		return *f.c.AllowNonRootAccess
	}
	return *defaultFileConfig.AllowNonRootAccess
}

func secondsToDuration(v, def *float64) time.Duration {
	if v == nil {
		v = def
	}
	return time.Duration(*v * float64(time.Second))
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		// If the file is empty, return the empty config.
		// Do not make f.c a nil.
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"capacityAh":          f.CapacityAh(),
		"cellCount":           f.CellCount(),
		"collectionInterval":  f.CollectionInterval().String(),
		"dayUploadInterval":   f.DayUploadInterval().String(),
		"nightUploadInterval": f.NightUploadInterval().String(),
		"apiEndpoint":         f.APIEndpoint(),
		"batteryStatePath":    f.StatePath(),
		"failedUploadPath":    f.SpillPath(),
		"mqttBroker":          f.MQTTBroker(),
	}
}
