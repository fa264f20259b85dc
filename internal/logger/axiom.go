package logger

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
)

const (
	batchSize    = 200
	flushTimeout = 15 * time.Second
)

// ingester is the part of *axiom.Client the forwarder uses.
type ingester interface {
	IngestEvents(ctx context.Context, id string, events []axiom.Event, options ...ingest.Option) (*ingest.Status, error)
}

// forwarder ships zerolog JSON lines to an Axiom dataset in batches.
// Debug and trace records stay local.
type forwarder struct {
	client  ingester
	dataset string

	mu    sync.Mutex
	batch []axiom.Event

	full chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

func newForwarder(token, orgID, dataset string, every time.Duration) (*forwarder, error) {
	opts := []axiom.Option{axiom.SetToken(token)}
	if orgID != "" {
		opts = append(opts, axiom.SetOrganizationID(orgID))
	}
	c, err := axiom.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return startForwarder(c, dataset, every), nil
}

func startForwarder(c ingester, dataset string, every time.Duration) *forwarder {
	if dataset == "" {
		dataset = "dev_" + service
	}
	if every <= 0 {
		every = 10 * time.Second
	}
	f := &forwarder{
		client:  c,
		dataset: dataset,
		full:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	f.wg.Add(1)
	go f.loop(every)
	return f
}

func (f *forwarder) Write(p []byte) (int, error) {
	var ev axiom.Event
	if err := json.Unmarshal(p, &ev); err != nil {
		ev = axiom.Event{"message": string(p), "level": "info"}
	}
	switch ev["level"] {
	case "debug", "trace":
		return len(p), nil
	}
	ev["service"] = service
	if _, ok := ev[ingest.TimestampField]; !ok {
		ev[ingest.TimestampField] = time.Now()
	}

	f.mu.Lock()
	f.batch = append(f.batch, ev)
	n := len(f.batch)
	f.mu.Unlock()

	if n >= batchSize {
		select {
		case f.full <- struct{}{}:
		default:
		}
	}
	return len(p), nil
}

func (f *forwarder) loop(every time.Duration) {
	defer f.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-f.done:
			f.flush()
			return
		case <-ticker.C:
			f.flush()
		case <-f.full:
			f.flush()
		}
	}
}

func (f *forwarder) flush() {
	f.mu.Lock()
	events := f.batch
	f.batch = nil
	f.mu.Unlock()
	if len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	_, _ = f.client.IngestEvents(ctx, f.dataset, events)
}

// Close stops the flush loop after sending what is buffered.
func (f *forwarder) Close() {
	close(f.done)
	f.wg.Wait()
}
