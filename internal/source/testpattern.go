// Package source provides a synthetic frame producer used to exercise
// the stage without a real capture device.
package source

import (
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/vppstage/internal/format"
	"github.com/bryanchriswhite/vppstage/internal/logger"
	"github.com/bryanchriswhite/vppstage/internal/surface"
)

// EmitFunc receives generated frames. The buffer is only valid for the
// duration of the call; the generator releases it afterwards.
type EmitFunc func(*surface.Buffer) error

// Generator produces a moving test pattern at the descriptor's frame
// rate. Interlaced descriptors alternate the top-field-first flag so
// field-order handling downstream gets exercised.
type Generator struct {
	alloc surface.Allocator
	desc  format.Descriptor
	log   *zerolog.Logger

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// NewGenerator creates a test pattern source for the given format.
func NewGenerator(alloc surface.Allocator, desc format.Descriptor) *Generator {
	return &Generator{
		alloc: alloc,
		desc:  desc,
		log:   logger.WithComponent("source"),
	}
}

// Start begins emitting frames on a background goroutine.
func (g *Generator) Start(emit EmitFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return
	}
	g.stop = make(chan struct{})
	g.done = make(chan struct{})
	g.running = true
	go g.run(emit, g.stop, g.done)
}

// Stop halts frame production and waits for the producer to exit.
func (g *Generator) Stop() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	stop, done := g.stop, g.done
	g.running = false
	g.mu.Unlock()

	close(stop)
	<-done
}

func (g *Generator) run(emit EmitFunc, stop, done chan struct{}) {
	defer close(done)

	rate := g.desc.FrameRate
	if rate.IsZero() {
		rate = format.NewFraction(30, 1)
	}
	period := rate.Invert()

	ticker := time.NewTicker(period.Duration())
	defer ticker.Stop()

	var frame int64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		surf, err := g.alloc.Alloc(g.desc)
		if err != nil {
			g.log.Warn().Err(err).Msg("frame allocation failed")
			continue
		}
		if surf.Image != nil {
			drawPattern(surf.Image, frame)
		}

		buf := surface.NewBuffer(surf.Ref())
		buf.Timestamp = format.NewFraction(frame*period.Num, period.Den)
		buf.Duration = period
		buf.Discont = frame == 0
		if g.desc.Interlace != format.Progressive {
			buf.InterlacedContent = true
			buf.TopFieldFirst = frame%2 == 0
		}

		if err := emit(buf); err != nil {
			g.log.Warn().Err(err).Int64("frame", frame).Msg("emit failed")
		}
		buf.Release()
		frame++
	}
}

// drawPattern renders a gradient with a vertical bar sweeping one pixel
// per frame.
func drawPattern(img *image.RGBA, frame int64) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return
	}
	bar := int(frame) % w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 64,
				A: 255,
			}
			if x == bar {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(bounds.Min.X+x, bounds.Min.Y+y, c)
		}
	}
}
