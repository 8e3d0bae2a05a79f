package worker

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/bitcrush/internal/artifact"
	queueMemory "github.com/JakeFAU/bitcrush/internal/queue/memory"
)

func TestWorker_Process_SendsResult(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queueMemory.NewQueue(1)
	transformer := &fakeTransformer{
		artifact: artifact.Artifact{ContentType: artifact.ContentTypeJPEG, Data: []byte("jpeg")},
		bounds:   image.Rect(0, 0, 4, 3),
	}
	w := New(q, transformer, zap.NewNop())
	go w.Run(ctx)

	results := make(chan artifact.Result, 1)
	require.NoError(t, q.Enqueue(ctx, artifact.Task{Input: []byte("png"), Result: results}))

	select {
	case res := <-results:
		require.NoError(t, res.Err)
		require.Equal(t, "jpeg", string(res.Artifact.Data))
		require.Equal(t, image.Rect(0, 0, 4, 3), res.Bounds)
	case <-time.After(time.Second):
		t.Fatal("worker did not reply")
	}
	require.Equal(t, [][]byte{[]byte("png")}, transformer.seen())
}

func TestWorker_Process_PropagatesTransformError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queueMemory.NewQueue(1)
	w := New(q, &fakeTransformer{err: artifact.ErrDecode}, zap.NewNop())
	go w.Run(ctx)

	results := make(chan artifact.Result, 1)
	require.NoError(t, q.Enqueue(ctx, artifact.Task{Input: []byte("junk"), Result: results}))

	select {
	case res := <-results:
		require.ErrorIs(t, res.Err, artifact.ErrDecode)
	case <-time.After(time.Second):
		t.Fatal("worker did not reply")
	}
}

func TestWorker_Process_RecoversPanic(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queueMemory.NewQueue(1)
	w := New(q, &fakeTransformer{panicMsg: "boom"}, zap.NewNop())
	go w.Run(ctx)

	results := make(chan artifact.Result, 1)
	require.NoError(t, q.Enqueue(ctx, artifact.Task{Result: results}))

	select {
	case res := <-results:
		require.ErrorIs(t, res.Err, artifact.ErrEncode)
		require.Contains(t, res.Err.Error(), "boom")
	case <-time.After(time.Second):
		t.Fatal("worker did not reply")
	}
}

func TestWorker_Process_NoTransformer(t *testing.T) {
	t.Parallel()

	w := New(nil, nil, nil)
	results := make(chan artifact.Result, 1)
	w.process(artifact.Task{Result: results})

	res := <-results
	require.EqualError(t, res.Err, "no transformer configured")
}

func TestWorker_Process_DoesNotBlockOnFullResultChannel(t *testing.T) {
	t.Parallel()

	w := New(nil, &fakeTransformer{}, zap.NewNop())
	results := make(chan artifact.Result, 1)
	results <- artifact.Result{}

	done := make(chan struct{})
	go func() {
		w.process(artifact.Task{Result: results})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("process blocked on a full result channel")
	}
}

func TestWorker_Run_ExitsWhenQueueCloses(t *testing.T) {
	t.Parallel()

	q := queueMemory.NewQueue(1)
	w := New(q, &fakeTransformer{}, zap.NewNop())
	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()
	q.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after queue close")
	}
}

func TestWorker_Run_ContinuesAfterDequeueError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan artifact.Result, 1)
	q := &flakyQueue{
		errs:  []error{errors.New("transient")},
		tasks: []artifact.Task{{Input: []byte("ok"), Result: results}},
	}
	w := New(q, &fakeTransformer{}, zap.NewNop())
	go w.Run(ctx)

	select {
	case res := <-results:
		require.NoError(t, res.Err)
	case <-time.After(time.Second):
		t.Fatal("worker did not recover from dequeue error")
	}
}

type fakeTransformer struct {
	mu       sync.Mutex
	inputs   [][]byte
	artifact artifact.Artifact
	bounds   image.Rectangle
	err      error
	panicMsg string
}

func (f *fakeTransformer) Transform(input []byte) (artifact.Artifact, image.Rectangle, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, input)
	f.mu.Unlock()
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return artifact.Artifact{}, image.Rectangle{}, f.err
	}
	return f.artifact, f.bounds, nil
}

func (f *fakeTransformer) seen() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.inputs...)
}

type flakyQueue struct {
	mu    sync.Mutex
	errs  []error
	tasks []artifact.Task
}

func (q *flakyQueue) Enqueue(context.Context, artifact.Task) error {
	return nil
}

func (q *flakyQueue) Dequeue(ctx context.Context) (artifact.Task, error) {
	q.mu.Lock()
	if len(q.errs) > 0 {
		err := q.errs[0]
		q.errs = q.errs[1:]
		q.mu.Unlock()
		return artifact.Task{}, err
	}
	if len(q.tasks) > 0 {
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()
		return task, nil
	}
	q.mu.Unlock()
	<-ctx.Done()
	return artifact.Task{}, ctx.Err()
}
