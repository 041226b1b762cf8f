package mqttpub

import (
	"fmt"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/skybright/solarcollect/pkg/metrics"
)

const connectTimeout = 10 * time.Second

// Publisher mirrors each tick's raw sample to an MQTT broker so live
// dashboards can follow the system between uploads. It is strictly
// best-effort: publish failures are logged and dropped.
type Publisher struct {
	client mqtt.Client
	prefix string
}

func Connect(broker, username, password, topicPrefix string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("solarcollect").
		SetAutoReconnect(true).
		SetConnectRetry(true)
	if username != "" {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}
	opts.OnConnect = func(_ mqtt.Client) {
		logrus.Infof("connected to MQTT broker %s", broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logrus.Warnf("MQTT connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, pkgerrors.Errorf("timed out connecting to MQTT broker %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to connect to MQTT broker %s", broker)
	}

	return &Publisher{client: client, prefix: topicPrefix}, nil
}

// PublishSample sends each metric to <prefix>/<metric>/state. Sends are
// fire-and-forget so a slow broker cannot stall the collection tick.
func (p *Publisher) PublishSample(sample metrics.Sample) {
	for metric, value := range sample {
		topic := fmt.Sprintf("%s/%s/state", p.prefix, metric)
		p.client.Publish(topic, 0, false, formatValue(value))
	}
}

func (p *Publisher) Disconnect() {
	p.client.Disconnect(250)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return val
	case time.Time:
		return val.Format(metrics.TimestampLayout)
	default:
		return fmt.Sprintf("%v", val)
	}
}
