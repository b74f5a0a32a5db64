package hal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPixelRoundTrip(t *testing.T) {
	cases := []struct {
		r, g, b uint8
		want    uint16
	}{
		{0, 0, 0, 0x0000},
		{255, 255, 255, 0xFFFF},
		{255, 0, 0, 0xF800},
		{0, 255, 0, 0x07E0},
		{0, 0, 255, 0x001F},
	}
	for _, tc := range cases {
		p := RGB565(tc.r, tc.g, tc.b)
		if p != tc.want {
			t.Fatalf("RGB565(%d,%d,%d) = %#04x, want %#04x", tc.r, tc.g, tc.b, p, tc.want)
		}
		r, g, b := rgb888From565(p)
		if r != tc.r || g != tc.g || b != tc.b {
			t.Fatalf("rgb888From565(%#04x) = %d,%d,%d, want %d,%d,%d", p, r, g, b, tc.r, tc.g, tc.b)
		}
	}
}

func TestHostTimeMonotonic(t *testing.T) {
	ht := newHostTime()
	a := ht.NowMicros()
	time.Sleep(2 * time.Millisecond)
	b := ht.NowMicros()
	if b < a+1000 {
		t.Fatalf("NowMicros() advanced %dus over 2ms", b-a)
	}
}

func TestHostLogger(t *testing.T) {
	var buf bytes.Buffer
	h := NewWithOutput(&buf)
	h.Logger().WriteLineString("a")
	h.Logger().WriteLineBytes([]byte("b"))
	if buf.String() != "a\nb\n" {
		t.Fatalf("logger output = %q", buf.String())
	}
}

func TestFramebufferSnapshot(t *testing.T) {
	fb := newHostFramebuffer(2, 1)
	fb.ClearRGB(255, 0, 0)
	dst := make([]byte, 2*4)
	fb.snapshotRGBA(dst)
	for i := 0; i < 2; i++ {
		px := dst[i*4 : i*4+4]
		if px[0] != 255 || px[1] != 0 || px[2] != 0 || px[3] != 255 {
			t.Fatalf("pixel %d = %v, want opaque red", i, px)
		}
	}
}

func TestRunHeadlessHalts(t *testing.T) {
	steps := 0
	newApp := func(HAL) (func() error, error) {
		return func() error {
			steps++
			if steps == 3 {
				return ErrHalted
			}
			return nil
		}, nil
	}
	err := RunHeadless(context.Background(), NewWithOutput(&bytes.Buffer{}), newApp, HeadlessConfig{Hz: 1000})
	if err != nil || steps != 3 {
		t.Fatalf("RunHeadless() = %v after %d steps, want nil after 3", err, steps)
	}
}

func TestRunHeadlessTickLimitAndErrors(t *testing.T) {
	steps := 0
	newApp := func(HAL) (func() error, error) {
		return func() error { steps++; return nil }, nil
	}
	if err := RunHeadless(context.Background(), New(), newApp, HeadlessConfig{Hz: 1000, Ticks: 5}); err != nil {
		t.Fatalf("RunHeadless() = %v", err)
	}
	if steps != 5 {
		t.Fatalf("steps = %d, want 5", steps)
	}

	boom := errors.New("boom")
	failing := func(HAL) (func() error, error) { return nil, boom }
	if err := RunHeadless(context.Background(), New(), failing, HeadlessConfig{}); !errors.Is(err, boom) {
		t.Fatalf("RunHeadless() = %v, want boom", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	idle := func(HAL) (func() error, error) { return nil, nil }
	err := RunHeadless(ctx, New(), idle, HeadlessConfig{Hz: 1000})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RunHeadless() = %v, want context.Canceled", err)
	}
	if !strings.Contains(ErrHalted.Error(), "halted") {
		t.Fatalf("ErrHalted = %q", ErrHalted)
	}
}
