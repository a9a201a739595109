package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/kafka"
)

// Publisher receives batches of analytics events. *kafka.Producer publishes
// them to a topic; *Aggregator records them in process.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers events and hands them to a Publisher in batches, either
// when batchSize events are pending or every flushInterval. Track never
// blocks: events are dropped when the buffer is full or the collector is
// closed.
type Collector struct {
	publisher     Publisher
	eventCh       chan kafka.Event
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewCollector(publisher Publisher, bufferSize int, flushInterval time.Duration) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	batchSize := bufferSize / 10
	if batchSize < 1 {
		batchSize = 1
	}
	return &Collector{
		publisher:     publisher,
		eventCh:       make(chan kafka.Event, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the flush loop. It stops when ctx is cancelled or Close is
// called, publishing whatever is still buffered.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		batch := make([]kafka.Event, 0, c.batchSize)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.flush(context.Background(), batch)
					return
				}
				batch = append(batch, event)
				if len(batch) >= c.batchSize {
					batch = c.flush(ctx, batch)
				}
			case <-ticker.C:
				batch = c.flush(ctx, batch)
			case <-ctx.Done():
				c.drainRemaining(batch)
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// TrackSearch queues a search event.
func (c *Collector) TrackSearch(e SearchEvent) {
	e.Type = EventSearch
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	c.track(kafka.Event{Key: e.Query, Type: string(EventSearch), Value: e})
}

// TrackIndex queues a document change event.
func (c *Collector) TrackIndex(e IndexEvent) {
	if e.Type == "" {
		e.Type = EventIndexDocument
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	c.track(kafka.Event{Key: e.DocumentID, Type: string(e.Type), Value: e})
}

func (c *Collector) track(event kafka.Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Debug("analytics event dropped (collector closed)", "type", event.Type)
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)", "type", event.Type)
	}
}

// Close stops accepting events and waits for the final flush. Events
// tracked afterwards are dropped.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) flush(ctx context.Context, batch []kafka.Event) []kafka.Event {
	if len(batch) == 0 {
		return batch
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish analytics events", "events", len(batch), "error", err)
	} else {
		c.logger.Debug("analytics events published", "events", len(batch))
	}
	return batch[:0]
}

func (c *Collector) drainRemaining(batch []kafka.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				c.flush(ctx, batch)
				return
			}
			batch = append(batch, event)
		default:
			c.flush(ctx, batch)
			return
		}
	}
}
