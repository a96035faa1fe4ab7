// Package preview streams processed frames as Motion JPEG over HTTP so
// the stage output can be eyeballed in a browser.
package preview

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/bryanchriswhite/vppstage/internal/logger"
	"github.com/bryanchriswhite/vppstage/internal/surface"
)

const jpegQuality = 90

// Sink fans processed frames out to connected MJPEG clients. Frames
// without software pixel data are skipped, so it is safe to attach to
// any engine.
type Sink struct {
	running bool
	mu      sync.RWMutex

	clientsMu sync.RWMutex
	clients   map[chan []byte]struct{}

	frameCount uint64
	startTime  time.Time
}

// NewSink creates an MJPEG preview sink.
func NewSink() *Sink {
	return &Sink{
		clients: make(map[chan []byte]struct{}),
	}
}

// Start marks the sink as accepting frames.
func (p *Sink) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("preview already running")
	}
	p.running = true
	p.startTime = time.Now()
	p.frameCount = 0

	logger.WithComponent("preview").Info().Msg("MJPEG preview started")
	return nil
}

// Stop disconnects every client.
func (p *Sink) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}
	p.running = false

	p.clientsMu.Lock()
	for ch := range p.clients {
		close(ch)
	}
	p.clients = make(map[chan []byte]struct{})
	p.clientsMu.Unlock()

	logger.WithComponent("preview").Info().
		Uint64("frames", p.frameCount).
		Msg("MJPEG preview stopped")
	return nil
}

// IsRunning reports whether the sink accepts frames.
func (p *Sink) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// WriteBuffer encodes a processed frame and broadcasts it. Buffers
// whose surface carries no software image are ignored.
func (p *Sink) WriteBuffer(buf *surface.Buffer) error {
	if !p.IsRunning() {
		return nil
	}
	surf := buf.Surface()
	if surf == nil || surf.Image == nil {
		return nil
	}

	out := new(bytes.Buffer)
	if err := jpeg.Encode(out, surf.Image, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	jpegData := out.Bytes()
	p.frameCount++

	p.clientsMu.RLock()
	for ch := range p.clients {
		select {
		case ch <- jpegData:
		default:
			// Client is slow, skip this frame.
		}
	}
	p.clientsMu.RUnlock()
	return nil
}

// Handler returns the multipart MJPEG stream handler. Mount it at
// /preview or similar.
func (p *Sink) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		w.Header().Set("Connection", "close")

		frameChan := make(chan []byte, 2)

		p.clientsMu.Lock()
		p.clients[frameChan] = struct{}{}
		clientCount := len(p.clients)
		p.clientsMu.Unlock()

		logger.WithComponent("preview").Info().
			Int("clients", clientCount).
			Msg("preview client connected")

		defer func() {
			p.clientsMu.Lock()
			delete(p.clients, frameChan)
			clientCount := len(p.clients)
			p.clientsMu.Unlock()
			logger.WithComponent("preview").Info().
				Int("clients", clientCount).
				Msg("preview client disconnected")
		}()

		for jpegData := range frameChan {
			if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpegData)); err != nil {
				return
			}
			if _, err := w.Write(jpegData); err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
}
