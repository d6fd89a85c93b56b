package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// pcmStream is the capture-stream surface MicSource drives. Satisfied by
// *portaudio.Stream.
type pcmStream interface {
	Start() error
	Stop() error
	Read() error
	Close() error
}

// MicSource captures raw PCM from the default input device and satisfies
// stt.AudioSource. A failure to open the device is a fatal startup
// precondition; there is nothing to converse with without a microphone.
//
// Captures are sequential but can follow each other immediately. A feeder
// stops the stream only after its current blocking Read returns, so a new
// Chunks call blocks until the previous capture has actually released the
// stream: starting the device again before then fails with a
// stream-not-stopped error, and two feeders would share the read buffer.
type MicSource struct {
	stream     pcmStream
	buf        []int16
	sampleRate int

	mu   sync.Mutex
	idle chan struct{} // closed once the in-flight capture has stopped the stream
}

// NewMicSource initializes PortAudio and opens the default input stream as
// 16-bit mono PCM.
func NewMicSource(sampleRate, chunkSize int) (*MicSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	buf := make([]int16, chunkSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), chunkSize, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	return &MicSource{stream: stream, buf: buf, sampleRate: sampleRate}, nil
}

// SampleRate reports the capture sample rate.
func (m *MicSource) SampleRate() int {
	return m.sampleRate
}

// Chunks starts the stream and delivers little-endian PCM chunks until ctx
// is cancelled. It waits for the previous capture to release the stream
// before touching the device.
func (m *MicSource) Chunks(ctx context.Context) (<-chan []byte, error) {
	m.mu.Lock()
	idle := m.idle
	m.mu.Unlock()
	if idle != nil {
		select {
		case <-idle:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := m.stream.Start(); err != nil {
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	idle = make(chan struct{})
	m.mu.Lock()
	m.idle = idle
	m.mu.Unlock()

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		defer close(idle)
		defer m.stream.Stop()
		for {
			if ctx.Err() != nil {
				return
			}
			if err := m.stream.Read(); err != nil {
				return
			}
			chunk := make([]byte, len(m.buf)*2)
			for i, s := range m.buf {
				binary.LittleEndian.PutUint16(chunk[i*2:], uint16(s))
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close waits for any in-flight capture to release the stream, then shuts
// PortAudio down.
func (m *MicSource) Close() error {
	m.mu.Lock()
	idle := m.idle
	m.mu.Unlock()
	if idle != nil {
		<-idle
	}
	err := m.stream.Close()
	portaudio.Terminate()
	return err
}
