package remind

import (
	"sync"
	"time"

	appLog "minical/internal/log"
)

// Delivery is one fired reminder kept for the presentation layer to
// collect.
type Delivery struct {
	Message string    `json:"message"`
	FiredAt time.Time `json:"firedAt"`
}

// Recorder is a Notifier that logs each reminder and keeps the most
// recent deliveries in memory so the web layer can surface them.
type Recorder struct {
	mu     sync.Mutex
	keep   int
	recent []Delivery
}

// NewRecorder keeps up to n recent deliveries (a small default when
// n <= 0).
func NewRecorder(n int) *Recorder {
	if n <= 0 {
		n = 32
	}
	return &Recorder{keep: n}
}

func (r *Recorder) Notify(message string) {
	appLog.Info("reminder fired", "message", message)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recent = append(r.recent, Delivery{Message: message, FiredAt: time.Now()})
	if len(r.recent) > r.keep {
		r.recent = r.recent[len(r.recent)-r.keep:]
	}
}

// Recent returns the retained deliveries, oldest first.
func (r *Recorder) Recent() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Delivery, len(r.recent))
	copy(out, r.recent)
	return out
}
