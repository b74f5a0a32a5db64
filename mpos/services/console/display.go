package console

import (
	"image/color"

	"kos/hal"

	"tinygo.org/x/drivers"
)

// fbDisplay adapts an RGB565 hal.Framebuffer to tinyterm's Displayer.
type fbDisplay struct {
	fb hal.Framebuffer
}

var _ drivers.Displayer = (*fbDisplay)(nil)

func newFBDisplay(fb hal.Framebuffer) *fbDisplay {
	return &fbDisplay{fb: fb}
}

// surface returns the pixel buffer and its geometry, or ok=false if the
// framebuffer cannot be drawn on.
func (d *fbDisplay) surface() (buf []byte, w, h, stride int, ok bool) {
	if d.fb == nil || d.fb.Format() != hal.PixelFormatRGB565 {
		return nil, 0, 0, 0, false
	}
	buf = d.fb.Buffer()
	w, h, stride = d.fb.Width(), d.fb.Height(), d.fb.StrideBytes()
	if buf == nil || w <= 0 || h <= 0 {
		return nil, 0, 0, 0, false
	}
	return buf, w, h, stride, true
}

func (d *fbDisplay) Size() (x, y int16) {
	if d.fb == nil {
		return 0, 0
	}
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d *fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	buf, w, h, stride, ok := d.surface()
	if !ok || x < 0 || int(x) >= w || y < 0 || int(y) >= h {
		return
	}
	putPixel(buf, int(y)*stride+int(x)*2, hal.RGB565(c.R, c.G, c.B))
}

func (d *fbDisplay) Display() error {
	if d.fb == nil {
		return nil
	}
	return d.fb.Present()
}

// ScrollUp moves the picture up by pixels rows and clears the exposed rows.
func (d *fbDisplay) ScrollUp(pixels int16, bg color.RGBA) error {
	buf, w, h, stride, ok := d.surface()
	if !ok || pixels <= 0 {
		return nil
	}
	n := int(pixels)
	if n >= h {
		return d.FillRectangle(0, 0, int16(w), int16(h), bg)
	}
	end := h * stride
	if end > len(buf) {
		end = len(buf)
	}
	copy(buf, buf[n*stride:end])
	return d.FillRectangle(0, int16(h-n), int16(w), int16(n), bg)
}

func (d *fbDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	buf, w, h, stride, ok := d.surface()
	if !ok {
		return nil
	}
	x0, x1 := clamp(int(x), 0, w), clamp(int(x)+int(width), 0, w)
	y0, y1 := clamp(int(y), 0, h), clamp(int(y)+int(height), 0, h)

	pixel := hal.RGB565(c.R, c.G, c.B)
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			putPixel(buf, py*stride+px*2, pixel)
		}
	}
	return nil
}

func (d *fbDisplay) SetScroll(line int16) {}

func (d *fbDisplay) SetRotation(rotation drivers.Rotation) error { return nil }

func putPixel(buf []byte, off int, pixel uint16) {
	if off < 0 || off+1 >= len(buf) {
		return
	}
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
