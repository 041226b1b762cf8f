package uploader

import (
	"os"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SpillWriter appends payloads that could not be delivered to a
// newline-delimited JSON file. The file is never read back or truncated by
// this process; recovery is an operator action.
type SpillWriter struct {
	path string
	mu   sync.Mutex
}

func NewSpillWriter(path string) *SpillWriter {
	return &SpillWriter{path: path}
}

// Append writes one payload as a single line. The payload must be the exact
// body of the failed upload request.
func (w *SpillWriter) Append(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	fp, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open spill file %s", w.path)
	}
	defer func(fp *os.File) {
		if err := fp.Close(); err != nil {
			logrus.Warnf("failed to close spill file %s", w.path)
		}
	}(fp)

	if _, err := fp.Write(append(payload, '\n')); err != nil {
		return pkgerrors.Wrapf(err, "failed to append to spill file %s", w.path)
	}

	return nil
}
