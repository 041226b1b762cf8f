package uploader

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/skybright/solarcollect/pkg/metrics"
)

const (
	requestTimeout = 30 * time.Second
	queueDepth     = 128
)

type job struct {
	id     uuid.UUID
	record metrics.Aggregated
}

// Pipeline publishes aggregated records to the collection endpoint from a
// single background worker. Enqueue never blocks the producer; failed
// deliveries are spilled to disk and never retried in-process.
type Pipeline struct {
	endpoint string
	username string
	password string

	client *http.Client
	spill  *SpillWriter

	jobs chan job
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func New(endpoint, username, password, spillPath string) *Pipeline {
	return &Pipeline{
		endpoint: endpoint,
		username: username,
		password: password,
		client:   &http.Client{Timeout: requestTimeout},
		spill:    NewSpillWriter(spillPath),
		jobs:     make(chan job, queueDepth),
		done:     make(chan struct{}),
	}
}

// Start launches the upload worker.
func (p *Pipeline) Start() {
	go p.run()
}

// Stop closes intake, waits for the worker to finish the in-flight job and
// drain the queue, then returns. Safe to call more than once.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	<-p.done
}

// QueueDepth returns the number of jobs waiting for upload.
func (p *Pipeline) QueueDepth() int {
	return len(p.jobs)
}

// Enqueue hands records to the upload worker. If the queue is full, or the
// pipeline has been stopped, the record goes straight to the spill file so
// it is never lost silently.
func (p *Pipeline) Enqueue(records ...metrics.Aggregated) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, record := range records {
		j := job{id: uuid.New(), record: record}

		if p.closed {
			p.spillRecord(j, pkgerrors.New("pipeline stopped"))
			continue
		}

		select {
		case p.jobs <- j:
			logrus.WithField("job", j.id).Debug("upload job enqueued")
		default:
			p.spillRecord(j, pkgerrors.New("upload queue full"))
		}
	}
}

func (p *Pipeline) run() {
	defer close(p.done)

	logrus.Debug("upload worker started")
	for j := range p.jobs {
		p.process(j)
	}
	logrus.Debug("upload worker drained and stopped")
}

func (p *Pipeline) process(j job) {
	payload, err := json.Marshal(uploadBody{Data: []metrics.Aggregated{j.record}})
	if err != nil {
		// Should never happen for the value types samples carry.
		logrus.WithField("job", j.id).Errorf("failed to marshal upload payload: %v", err)
		return
	}

	if err := p.publish(payload); err != nil {
		if serr := p.spill.Append(payload); serr != nil {
			logrus.WithField("job", j.id).Errorf("failed to spill payload: %v", serr)
		}
		logrus.WithField("job", j.id).Errorf("failed to upload entry (%v)", err)
		return
	}

	logrus.WithField("job", j.id).Info("uploaded aggregated metrics")
}

type uploadBody struct {
	Data []metrics.Aggregated `json:"data"`
}

// publish POSTs one payload. Success is a 2xx status and a response body
// without a top-level "error" key; anything else is a failure.
func (p *Pipeline) publish(payload []byte) error {
	req, err := http.NewRequest(http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if p.username != "" {
		req.SetBasicAuth(p.username, p.password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to send request")
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.Errorf("failed to close response body: %v", err)
		}
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to read response body")
	}

	logrus.Debugf("upload response: %s", string(b))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerrors.Errorf("got %d: %s", resp.StatusCode, string(b))
	}

	var parsed map[string]any
	if err := json.Unmarshal(b, &parsed); err != nil {
		return pkgerrors.Wrap(err, "malformed response body")
	}
	if msg, ok := parsed["error"]; ok {
		return pkgerrors.Errorf("remote error: %v", msg)
	}

	return nil
}

func (p *Pipeline) spillRecord(j job, reason error) {
	payload, err := json.Marshal(uploadBody{Data: []metrics.Aggregated{j.record}})
	if err != nil {
		logrus.WithField("job", j.id).Errorf("failed to marshal upload payload: %v", err)
		return
	}
	if err := p.spill.Append(payload); err != nil {
		logrus.WithField("job", j.id).Errorf("failed to spill payload: %v", err)
		return
	}
	logrus.WithField("job", j.id).Errorf("failed to upload entry (%v)", reason)
}
