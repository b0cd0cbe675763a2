package driver

import (
	"bytes"
	"errors"
	"sync"
)

var errEmptyArgv = errors.New("driver: empty argv")

// limitedWriter accumulates stream output up to a byte ceiling. Excess
// bytes are discarded without error so a chatty process keeps running
// while host memory stays bounded. shutOff stops accumulation entirely,
// used when the watchdog fires.
type limitedWriter struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	remaining int64
	off       bool
}

func newLimitedWriter(limit int64) *limitedWriter {
	return &limitedWriter{remaining: limit}
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.off || w.remaining <= 0 {
		return len(p), nil
	}

	chunk := p
	if int64(len(chunk)) > w.remaining {
		chunk = chunk[:w.remaining]
	}

	n, err := w.buf.Write(chunk)
	w.remaining -= int64(n)
	if err != nil {
		return n, err
	}

	return len(p), nil
}

// shutOff prevents any further accumulation.
func (w *limitedWriter) shutOff() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.off = true
}

func (w *limitedWriter) Bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Bytes()
}
