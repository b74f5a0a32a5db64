//go:build !tinygo && cgo

package hal

import (
	"errors"

	"kos/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunWindow starts a desktop window that displays the framebuffer.
// It blocks until the window closes. After the step function reports
// ErrHalted the last frame stays on screen.
func RunWindow(h HAL, newApp func(HAL) (func() error, error)) error {
	host, ok := h.(*hostHAL)
	if !ok {
		return errors.New("window mode requires the host HAL")
	}
	step, err := newApp(h)
	if err != nil {
		return err
	}

	g := &hostGame{h: host, step: step}
	ebiten.SetWindowTitle("mpos (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(host.fb.width*2, host.fb.height*2)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type hostGame struct {
	h      *hostHAL
	pix    []byte
	fbImg  *ebiten.Image
	step   func() error
	halted bool
}

func (g *hostGame) Update() error {
	if g.halted || g.step == nil {
		return nil
	}
	if err := g.step(); err != nil {
		if errors.Is(err, ErrHalted) {
			g.halted = true
			return nil
		}
		return err
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.fbImg == nil {
		g.pix = make([]byte, fb.width*fb.height*4)
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}
	fb.snapshotRGBA(g.pix)
	g.fbImg.WritePixels(g.pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
