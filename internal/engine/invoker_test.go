package engine

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yacobolo/stylebuild/internal/logger"
	"github.com/yacobolo/stylebuild/internal/resource"
)

// fakeRuntime replays scripted events into the sink.
type fakeRuntime struct {
	mu      sync.Mutex
	scripts []*Script
	events  func(script *Script, sink Sink)
	err     error
	block   bool
	closed  chan struct{}
	once    sync.Once
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{closed: make(chan struct{})}
}

func (f *fakeRuntime) Eval(ctx context.Context, script *Script, sink Sink) error {
	f.mu.Lock()
	f.scripts = append(f.scripts, script)
	f.mu.Unlock()

	if f.events != nil {
		f.events(script, sink)
	}
	if f.block {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.closed:
			return errors.New("runtime closed")
		}
	}
	return f.err
}

func (f *fakeRuntime) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeRuntime) lastScript() *Script {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.scripts) == 0 {
		return nil
	}
	return f.scripts[len(f.scripts)-1]
}

func TestCompileCollectsErrorsInOrder(t *testing.T) {
	rt := newFakeRuntime()
	rt.events = func(_ *Script, sink Sink) {
		sink.CompilationError("undefined variable $x", "/src/one.scss", "/css/one.css")
		sink.UpdatedFile("/src/two.scss", "/css/two.css")
		sink.CompilationError("expected ';'", "/src/three.scss", "/css/three.css")
	}

	var buf bytes.Buffer
	inv := NewInvoker(rt, Libraries{}, logger.New(&buf, logger.LevelInfo, false))

	errs, err := inv.Compile(context.Background(), testPairs[:1], DefaultOptions())
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, "/src/one.scss", errs[0].SourceFile)
	assert.Equal(t, "undefined variable $x", errs[0].Message)
	assert.Equal(t, "/src/three.scss", errs[1].SourceFile)

	out := buf.String()
	assert.Contains(t, out, "Queueing stylesheet template for compile: /src/main/sass => /target/css")
	assert.Contains(t, out, "    >> /src/two.scss => /css/two.css")
	assert.NotContains(t, out, "Compilation of template", "compile mode leaves error logging to the report")
}

func TestCompileWrapsRuntimeFailure(t *testing.T) {
	rt := newFakeRuntime()
	rt.err = errors.New("library not found: compass")

	inv := NewInvoker(rt, Libraries{UseCompass: true}, logger.Discard())
	_, err := inv.Compile(context.Background(), testPairs, DefaultOptions())
	require.Error(t, err)

	var rtErr *RuntimeError
	require.ErrorAs(t, err, &rtErr)
	assert.ErrorIs(t, err, rt.err)
	assert.Contains(t, rtErr.Script, "compass")
	assert.Contains(t, err.Error(), "failed to execute stylesheet script")
}

func TestCompileIsolatesInvocations(t *testing.T) {
	rt := newFakeRuntime()
	calls := 0
	rt.events = func(_ *Script, sink Sink) {
		calls++
		if calls == 1 {
			sink.CompilationError("boom", "/src/a.scss", "/css/a.css")
		}
	}

	inv := NewInvoker(rt, Libraries{}, logger.Discard())
	errs, err := inv.Compile(context.Background(), testPairs[:1], DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, errs, 1)

	errs, err = inv.Compile(context.Background(), testPairs[:1], DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, errs, "errors from a previous invocation must not leak")
}

func TestCompileCancelled(t *testing.T) {
	rt := newFakeRuntime()
	rt.block = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewInvoker(rt, Libraries{}, logger.Discard()).Compile(ctx, testPairs[:1], DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatchWorkerStopsOnCancel(t *testing.T) {
	rt := newFakeRuntime()
	rt.block = true

	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelInfo, false)
	rt.events = func(_ *Script, sink Sink) {
		sink.CompilationError("bad", "/src/a.scss", "/css/a.css")
	}

	pair := testPairs[1]
	worker := NewWatchWorker(pair, DefaultOptions(), Libraries{}, func() Runtime { return rt }, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	require.Eventually(t, func() bool { return rt.lastScript() != nil }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}

	script := rt.lastScript()
	assert.Equal(t, DirectiveWatch, script.Directive)
	assert.Equal(t, pair.SourceDir, script.Options.Text(OptTemplateLocation))
	assert.Empty(t, script.Locations)
	assert.Contains(t, buf.String(), "Compilation of template /src/a.scss failed: bad")
}

func TestWatchWorkerAbort(t *testing.T) {
	rt := newFakeRuntime()
	rt.block = true

	worker := NewWatchWorker(testPairs[0], DefaultOptions(), Libraries{}, func() Runtime { return rt }, logger.Discard())

	done := make(chan error, 1)
	go func() { done <- worker.Run(context.Background()) }()

	require.Eventually(t, func() bool { return rt.lastScript() != nil }, time.Second, 5*time.Millisecond)
	require.NoError(t, worker.Abort())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("abort did not unblock the worker")
	}
}

func TestWatchWorkerAbortBeforeRun(t *testing.T) {
	worker := NewWatchWorker(resource.DirectoryPair{}, DefaultOptions(), Libraries{}, func() Runtime { return newFakeRuntime() }, logger.Discard())
	require.NoError(t, worker.Abort())
	assert.Error(t, worker.Run(context.Background()))
}

func TestWatchWorkerRuntimeFailure(t *testing.T) {
	rt := newFakeRuntime()
	rt.err = errors.New("crashed")

	worker := NewWatchWorker(testPairs[0], DefaultOptions(), Libraries{}, func() Runtime { return rt }, logger.Discard())
	err := worker.Run(context.Background())

	var rtErr *RuntimeError
	assert.ErrorAs(t, err, &rtErr)
}

func TestCollectorLiveLogging(t *testing.T) {
	var buf bytes.Buffer
	c := NewCollector(logger.New(&buf, logger.LevelInfo, false), true)

	c.FileCreated("/src/new.scss")
	c.FileModified("/src/old.scss")
	c.FileDeleted("/src/gone.scss")
	c.UpdatedFile("/src/old.scss", "/css/old.css")
	c.CompilationError("oops", "/src/old.scss", "/css/old.css")

	out := buf.String()
	assert.Contains(t, out, "New file detected /src/new.scss")
	assert.Contains(t, out, "Change file detected /src/old.scss")
	assert.Contains(t, out, "Delete file detected /src/gone.scss")
	assert.Contains(t, out, "[ERROR] Compilation of template /src/old.scss failed: oops")
	assert.Equal(t, []string{"/css/old.css"}, c.Updated())
	assert.Len(t, c.Errors(), 1)
}
