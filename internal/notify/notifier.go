package notify

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	watchErrors "github.com/bashhack/gitwatcher/internal/errors"
	"github.com/bashhack/gitwatcher/internal/logger"
)

// Config holds the Telegram destination and delivery limits.
type Config struct {
	APIBaseURL string
	Token      string
	ChatID     string

	// ChunkSize is the maximum body length of one message, in characters.
	ChunkSize int

	// Timeout bounds each request.
	Timeout time.Duration
}

type message struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Stats counts delivered and failed chunks.
type Stats struct {
	Sent   int64
	Failed int64
}

// Notifier sends commit diffs to a Telegram chat. Delivery is best effort:
// failures are logged and counted, never returned to the commit path.
type Notifier struct {
	config    Config
	transport Transport
	logger    logger.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool

	sent   atomic.Int64
	failed atomic.Int64
}

// New creates a Notifier.
func New(config Config, transport Transport, log logger.Logger) *Notifier {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 4000
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	config.APIBaseURL = strings.TrimRight(config.APIBaseURL, "/")
	return &Notifier{config: config, transport: transport, logger: log}
}

func (n *Notifier) endpoint() string {
	return n.config.APIBaseURL + "/bot" + n.config.Token + "/sendMessage"
}

// SendDiff delivers diff synchronously, one chunk per request and in order.
// A failed chunk does not stop later ones. It returns the number of chunks
// delivered.
func (n *Notifier) SendDiff(ctx context.Context, diff string) int {
	if strings.TrimSpace(diff) == "" {
		return 0
	}

	chunks := Split(diff, n.config.ChunkSize)
	delivered := 0
	for _, c := range chunks {
		if err := n.send(ctx, c); err != nil {
			n.failed.Add(1)
			n.logger.Error("Failed to send diff notification: %v", err)
			continue
		}
		n.sent.Add(1)
		delivered++
	}

	n.logger.Info("Diff notification: %d of %d chunks delivered", delivered, len(chunks))
	return delivered
}

func (n *Notifier) send(ctx context.Context, c Chunk) error {
	payload, err := json.Marshal(message{ChatID: n.config.ChatID, Text: c.Text()})
	if err != nil {
		return watchErrors.NewNotifyError(c.Index, c.Total, 0, "", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.config.Timeout)
	defer cancel()

	status, body, err := n.transport.Post(ctx, n.endpoint(), payload)
	if err != nil {
		return watchErrors.NewNotifyError(c.Index, c.Total, 0, "", err)
	}
	if status < 200 || status > 299 {
		return watchErrors.NewNotifyError(c.Index, c.Total, status, body, nil)
	}

	n.logger.Debug("Sent diff chunk %d/%d", c.Index, c.Total)
	return nil
}

// Dispatch sends diff in the background. Close waits for dispatched sends.
func (n *Notifier) Dispatch(diff string) {
	if strings.TrimSpace(diff) == "" {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		n.logger.Warning("Notifier closed, dropping diff notification")
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.SendDiff(context.Background(), diff)
	}()
}

// Close stops accepting new dispatches and waits for in-flight ones, or for
// ctx to be done.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return watchErrors.Wrap(ctx.Err(), "waiting for notifications")
	}
}

// Stats returns delivery counters.
func (n *Notifier) Stats() Stats {
	return Stats{Sent: n.sent.Load(), Failed: n.failed.Load()}
}

// Nop discards diffs. It is used when notifications are disabled.
type Nop struct{}

// Dispatch implements the dispatcher contract.
func (Nop) Dispatch(string) {}

// Close implements the dispatcher contract.
func (Nop) Close(context.Context) error { return nil }

// Stats implements the dispatcher contract.
func (Nop) Stats() Stats { return Stats{} }
