// Package autosave collapses rapid answer edits into a single persisted
// save per question.
package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/dimitrije/boltstax-api/internal/metrics"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Saver interface {
	SaveQuestionResponse(ctx context.Context, in services.SaveInput) (*models.QuestionnaireResponse, error)
}

type key struct {
	responseID uuid.UUID
	questionID uuid.UUID
}

// flight counts the fired saves of one response that have not finished.
// done is closed when the count drops to zero.
type flight struct {
	n    int
	done chan struct{}
}

type pending struct {
	input services.SaveInput
	timer *time.Timer
	gen   uint64
}

// Debouncer holds one timer per (response, question). A new edit replaces
// the pending value and restarts the window, so only the last value within
// the window is saved.
type Debouncer struct {
	saver   Saver
	delay   time.Duration
	timeout time.Duration
	log     logrus.FieldLogger
	metrics *metrics.Metrics

	mu       sync.Mutex
	pending  map[key]*pending
	inflight map[uuid.UUID]*flight
	gen      uint64
}

func New(saver Saver, delay, timeout time.Duration, log logrus.FieldLogger, m *metrics.Metrics) *Debouncer {
	return &Debouncer{
		saver:    saver,
		delay:    delay,
		timeout:  timeout,
		log:      log,
		metrics:  m,
		pending:  make(map[key]*pending),
		inflight: make(map[uuid.UUID]*flight),
	}
}

// UpdateQuestionResponse schedules in to be saved once the window passes
// without another edit to the same question.
func (d *Debouncer) UpdateQuestionResponse(in services.SaveInput) {
	k := key{responseID: in.ResponseID, questionID: in.QuestionID}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	if p, ok := d.pending[k]; ok {
		p.timer.Stop()
		p.input = in
		p.gen = gen
		p.timer = time.AfterFunc(d.delay, func() { d.fire(k, gen) })
		return
	}

	d.pending[k] = &pending{
		input: in,
		gen:   gen,
		timer: time.AfterFunc(d.delay, func() { d.fire(k, gen) }),
	}
	d.metrics.AutosavePending(len(d.pending))
}

func (d *Debouncer) fire(k key, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[k]
	// a newer edit rescheduled this key after the timer had already fired
	if !ok || p.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.pending, k)
	d.metrics.AutosavePending(len(d.pending))
	f, ok := d.inflight[k.responseID]
	if !ok {
		f = &flight{done: make(chan struct{})}
		d.inflight[k.responseID] = f
	}
	f.n++
	d.mu.Unlock()

	defer d.land(k.responseID)
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	d.save(ctx, p.input)
}

func (d *Debouncer) land(responseID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f := d.inflight[responseID]
	f.n--
	if f.n == 0 {
		close(f.done)
		delete(d.inflight, responseID)
	}
}

// wait blocks until the fired saves of the matching responses finish or ctx
// is done. Saves fired after the snapshot are not waited for.
func (d *Debouncer) wait(ctx context.Context, match func(uuid.UUID) bool) {
	d.mu.Lock()
	var done []chan struct{}
	for id, f := range d.inflight {
		if match(id) {
			done = append(done, f.done)
		}
	}
	d.mu.Unlock()

	for _, ch := range done {
		select {
		case <-ch:
		case <-ctx.Done():
			return
		}
	}
}

func (d *Debouncer) save(ctx context.Context, in services.SaveInput) {
	if _, err := d.saver.SaveQuestionResponse(ctx, in); err != nil {
		d.log.WithError(err).WithFields(logrus.Fields{
			"response_id": in.ResponseID,
			"question_id": in.QuestionID,
		}).Error("autosave failed")
	}
}

// take removes and returns the pending saves matching keep, stopping their
// timers.
func (d *Debouncer) take(keep func(key) bool) []services.SaveInput {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []services.SaveInput
	for k, p := range d.pending {
		if !keep(k) {
			continue
		}
		p.timer.Stop()
		out = append(out, p.input)
		delete(d.pending, k)
	}
	d.metrics.AutosavePending(len(d.pending))
	return out
}

// FlushResponse saves every pending edit of one response now and waits for
// saves already in flight.
func (d *Debouncer) FlushResponse(ctx context.Context, responseID uuid.UUID) {
	for _, in := range d.take(func(k key) bool { return k.responseID == responseID }) {
		d.save(ctx, in)
	}
	d.wait(ctx, func(id uuid.UUID) bool { return id == responseID })
}

// Flush saves everything pending. Used on shutdown.
func (d *Debouncer) Flush(ctx context.Context) {
	inputs := d.take(func(key) bool { return true })
	if len(inputs) > 0 {
		d.log.WithField("count", len(inputs)).Info("flushing pending autosaves")
	}
	for _, in := range inputs {
		d.save(ctx, in)
	}
	d.wait(ctx, func(uuid.UUID) bool { return true })
}

// Pending reports how many saves are waiting for their window to pass.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
