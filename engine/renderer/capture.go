package renderer

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"os"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/HugoSmits86/nativewebp"
)

// capturePool encodes debug captures of render targets to WebP files off the
// render thread. Readback happens on the caller's thread; only the half-float
// decode and the WebP encode are offloaded.
type capturePool struct {
	mu     sync.Mutex
	pool   worker.DynamicWorkerPool
	nextID int
}

func newCapturePool(workers int) *capturePool {
	return &capturePool{
		// Queue size of 16 bounds memory held by pending captures; each task
		// owns a full readback copy of its target.
		pool: worker.NewDynamicWorkerPool(workers, 16, 1*time.Second),
	}
}

// submit queues one capture. pixels must be tightly packed RGBA16Float data
// owned by the caller; it is not copied.
func (c *capturePool) submit(pixels []byte, width, height int, path string) error {
	if len(pixels) < width*height*targetBytesPerPixel {
		return fmt.Errorf("failed to capture target: short pixel buffer (%d bytes for %dx%d)", len(pixels), width, height)
	}

	c.mu.Lock()
	pool := c.pool
	id := c.nextID
	c.nextID++
	c.mu.Unlock()
	if pool == nil {
		return fmt.Errorf("failed to capture target: capture pool stopped")
	}

	pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			if err := encodeCapture(pixels, width, height, path); err != nil {
				log.Printf("renderer: capture %q failed: %v", path, err)
				return nil, err
			}
			return nil, nil
		},
	})
	return nil
}

// stop releases the pool reference. Idle workers exit on their own once the
// queue drains.
func (c *capturePool) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pool = nil
}

func encodeCapture(pixels []byte, width, height int, path string) error {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			offset := (y*width + x) * targetBytesPerPixel
			img.SetNRGBA(x, y, color.NRGBA{
				R: toneMapChannel(halfToFloat(uint16(pixels[offset]) | uint16(pixels[offset+1])<<8)),
				G: toneMapChannel(halfToFloat(uint16(pixels[offset+2]) | uint16(pixels[offset+3])<<8)),
				B: toneMapChannel(halfToFloat(uint16(pixels[offset+4]) | uint16(pixels[offset+5])<<8)),
				A: 255,
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create capture file: %w", err)
	}
	defer f.Close()

	if err := nativewebp.Encode(f, img, nil); err != nil {
		return fmt.Errorf("failed to encode capture: %w", err)
	}
	return nil
}

// toneMapChannel clamps a linear HDR channel into 8-bit sRGB-ish space.
// Captures are diagnostics, so a simple gamma curve is enough.
func toneMapChannel(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	mapped := math.Pow(float64(v), 1.0/2.2)
	if mapped >= 1 {
		return 255
	}
	return uint8(mapped*255 + 0.5)
}

// halfToFloat converts an IEEE 754 binary16 value to float32.
func halfToFloat(h uint16) float32 {
	sign := uint32(h>>15) & 1
	exp := uint32(h>>10) & 0x1F
	frac := uint32(h) & 0x3FF

	var bits uint32
	switch {
	case exp == 0 && frac == 0:
		bits = sign << 31
	case exp == 0:
		// Subnormal: renormalize into float32 range.
		e := uint32(127 - 15 + 1)
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3FF
		bits = sign<<31 | e<<23 | frac<<13
	case exp == 0x1F:
		bits = sign<<31 | 0xFF<<23 | frac<<13
	default:
		bits = sign<<31 | (exp+127-15)<<23 | frac<<13
	}
	return math.Float32frombits(bits)
}
