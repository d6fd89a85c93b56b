package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
)

// stubStream fails Start while already started, like PortAudio does.
type stubStream struct {
	mu      sync.Mutex
	started bool
	starts  int
	gate    chan struct{} // each Read blocks until a value arrives
}

func (s *stubStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("stream is not stopped")
	}
	s.started = true
	s.starts++
	return nil
}

func (s *stubStream) Stop() error {
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	return nil
}

func (s *stubStream) Read() error {
	<-s.gate
	return nil
}

func (s *stubStream) Close() error { return nil }

func (s *stubStream) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

func TestMicSource_BackToBackCaptures(t *testing.T) {
	is := is.New(t)
	stub := &stubStream{gate: make(chan struct{}, 1)}
	m := &MicSource{stream: stub, buf: make([]int16, 4), sampleRate: 16000}

	ctx1, cancel1 := context.WithCancel(context.Background())
	_, err := m.Chunks(ctx1)
	is.NoErr(err)

	// Abandon the capture while its feeder is still blocked in Read.
	cancel1()

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	second := make(chan error, 1)
	go func() {
		_, err := m.Chunks(ctx2)
		second <- err
	}()

	// The second capture must not touch the device before the first feeder
	// has stopped the stream.
	select {
	case err := <-second:
		t.Fatalf("second capture started early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	stub.gate <- struct{}{} // let the first feeder's Read return

	select {
	case err := <-second:
		is.NoErr(err)
	case <-time.After(2 * time.Second):
		t.Fatal("second capture never started")
	}
	is.Equal(stub.Starts(), 2)
}

func TestMicSource_ChunksCancelledWhileWaiting(t *testing.T) {
	is := is.New(t)
	stub := &stubStream{gate: make(chan struct{})}
	m := &MicSource{stream: stub, buf: make([]int16, 4), sampleRate: 16000}

	ctx1, cancel1 := context.WithCancel(context.Background())
	_, err := m.Chunks(ctx1)
	is.NoErr(err)
	cancel1()

	// The first feeder never wakes. A caller that gives up while waiting
	// gets its own context error, not a device error.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	_, err = m.Chunks(ctx2)
	is.True(errors.Is(err, context.DeadlineExceeded))
}
