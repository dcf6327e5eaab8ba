package autosave

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dimitrije/boltstax-api/internal/logger"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSaver struct {
	mu    sync.Mutex
	saves []services.SaveInput
}

func (r *recordingSaver) SaveQuestionResponse(_ context.Context, in services.SaveInput) (*models.QuestionnaireResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, in)
	return &models.QuestionnaireResponse{ID: in.ResponseID}, nil
}

func (r *recordingSaver) snapshot() []services.SaveInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]services.SaveInput(nil), r.saves...)
}

func input(responseID, questionID uuid.UUID, value string) services.SaveInput {
	return services.SaveInput{ResponseID: responseID, QuestionID: questionID, Value: json.RawMessage(value)}
}

func TestDebouncer_CollapsesBurstIntoLastValue(t *testing.T) {
	saver := &recordingSaver{}
	d := New(saver, 30*time.Millisecond, time.Second, logger.Discard(), nil)
	responseID, questionID := uuid.New(), uuid.New()

	for i := 1; i <= 5; i++ {
		d.UpdateQuestionResponse(input(responseID, questionID, `"v`+string(rune('0'+i))+`"`))
	}

	assert.Eventually(t, func() bool { return len(saver.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	// nothing else fires after the window
	time.Sleep(60 * time.Millisecond)

	saves := saver.snapshot()
	require.Len(t, saves, 1)
	assert.JSONEq(t, `"v5"`, string(saves[0].Value))
	assert.Equal(t, 0, d.Pending())
}

func TestDebouncer_QuestionsAreIndependent(t *testing.T) {
	saver := &recordingSaver{}
	d := New(saver, 20*time.Millisecond, time.Second, logger.Discard(), nil)
	responseID := uuid.New()

	d.UpdateQuestionResponse(input(responseID, uuid.New(), `1`))
	d.UpdateQuestionResponse(input(responseID, uuid.New(), `2`))

	assert.Eventually(t, func() bool { return len(saver.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestDebouncer_FlushResponse(t *testing.T) {
	saver := &recordingSaver{}
	d := New(saver, time.Hour, time.Second, logger.Discard(), nil)
	target, other := uuid.New(), uuid.New()

	d.UpdateQuestionResponse(input(target, uuid.New(), `"a"`))
	d.UpdateQuestionResponse(input(other, uuid.New(), `"b"`))

	d.FlushResponse(context.Background(), target)

	saves := saver.snapshot()
	require.Len(t, saves, 1)
	assert.Equal(t, target, saves[0].ResponseID)
	assert.Equal(t, 1, d.Pending())

	d.Flush(context.Background())
	assert.Len(t, saver.snapshot(), 2)
	assert.Equal(t, 0, d.Pending())
}

// blockingSaver holds every save until release is closed.
type blockingSaver struct {
	started chan uuid.UUID
	release chan struct{}
}

func (b *blockingSaver) SaveQuestionResponse(_ context.Context, in services.SaveInput) (*models.QuestionnaireResponse, error) {
	b.started <- in.ResponseID
	<-b.release
	return &models.QuestionnaireResponse{ID: in.ResponseID}, nil
}

func TestDebouncer_FlushResponseWaitsForFiredSave(t *testing.T) {
	saver := &blockingSaver{started: make(chan uuid.UUID, 1), release: make(chan struct{})}
	d := New(saver, time.Millisecond, time.Second, logger.Discard(), nil)
	responseID := uuid.New()

	d.UpdateQuestionResponse(input(responseID, uuid.New(), `"a"`))
	select {
	case <-saver.started:
	case <-time.After(time.Second):
		t.Fatal("save never fired")
	}

	flushed := make(chan struct{})
	go func() {
		d.FlushResponse(context.Background(), responseID)
		close(flushed)
	}()

	select {
	case <-flushed:
		t.Fatal("flush returned while a save was in flight")
	case <-time.After(30 * time.Millisecond):
	}

	close(saver.release)
	select {
	case <-flushed:
	case <-time.After(time.Second):
		t.Fatal("flush did not return after the save finished")
	}
}

func TestDebouncer_FlushResponseIgnoresOtherResponses(t *testing.T) {
	saver := &blockingSaver{started: make(chan uuid.UUID, 1), release: make(chan struct{})}
	defer close(saver.release)
	d := New(saver, time.Millisecond, time.Second, logger.Discard(), nil)

	d.UpdateQuestionResponse(input(uuid.New(), uuid.New(), `"busy"`))
	<-saver.started

	done := make(chan struct{})
	go func() {
		d.FlushResponse(context.Background(), uuid.New())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("flush of an idle response blocked on another response")
	}
}

func TestDebouncer_FlushHonoursContext(t *testing.T) {
	saver := &blockingSaver{started: make(chan uuid.UUID, 1), release: make(chan struct{})}
	defer close(saver.release)
	d := New(saver, time.Millisecond, time.Second, logger.Discard(), nil)

	d.UpdateQuestionResponse(input(uuid.New(), uuid.New(), `"slow"`))
	<-saver.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	d.Flush(ctx)

	assert.Less(t, time.Since(start), time.Second)
}
