package runner

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/aretw0/pdasim/pkg/domain"
)

// JSONHandler writes one JSON object per line: a "step" event per
// generation and a final "result" event.
type JSONHandler struct {
	mu      sync.Mutex
	Encoder *json.Encoder
}

type jsonStep struct {
	Type string `json:"type"`
	domain.Snapshot
}

type jsonResult struct {
	Type string `json:"type"`
	Result
}

// NewJSONHandler creates a JSON Lines handler writing to w (stdout when nil).
func NewJSONHandler(w io.Writer) *JSONHandler {
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{Encoder: json.NewEncoder(w)}
}

func (h *JSONHandler) Step(ctx context.Context, snap domain.Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(jsonStep{Type: "step", Snapshot: snap})
}

func (h *JSONHandler) Finish(ctx context.Context, res Result) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(jsonResult{Type: "result", Result: res})
}
