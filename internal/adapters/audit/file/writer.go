// Package file appends audit events to a newline-delimited JSON file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/vshulcz/rtcobserver/internal/services/audit"
)

type Writer struct {
	path string
	mu   sync.Mutex
}

var _ audit.Observer = (*Writer)(nil)

func New(path string) *Writer {
	return &Writer{path: path}
}

// Notify appends evt as one JSON line. A writer without a path drops events.
func (w *Writer) Notify(_ context.Context, evt audit.Event) (retErr error) {
	if w == nil || w.path == "" {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close audit file: %w", cerr)
		}
	}()

	if err := json.NewEncoder(f).Encode(evt); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}
