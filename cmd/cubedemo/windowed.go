// windowed.go - ebiten-windowed preview frontend
//
// Grounded on the teacher's own GPU-chip demo frontend pattern
// (video_backend_ebiten.go): ebiten owns the window/event loop and each
// Update renders one frame through the GL context. Draw does not copy that
// frame into the window (see Draw).

package main

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/natanbc/fpga-gpu/gl"
)

type windowedGame struct {
	ctx   gl.Context
	vbo   []gl.GouraudVertex
	ibo   []uint16
	angle float32
}

func (g *windowedGame) Update() error {
	g.angle += 0.02
	spin(g.ctx, g.angle, g.vbo, g.ibo)
	return nil
}

// Draw paints a placeholder frame: runWindowedFrontend is only reached for
// the hardware backend (main.go routes *gl.SWContext to the terminal
// frontend instead), and the hardware context's frame scans out directly
// through the display controller rather than through an ebiten image.
func (g *windowedGame) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)
}

func (g *windowedGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.ctx.Width(), g.ctx.Height()
}

func runWindowedFrontend(ctx gl.Context, vbo []gl.GouraudVertex, ibo []uint16) {
	ebiten.SetWindowSize(ctx.Width()*2, ctx.Height()*2)
	ebiten.SetWindowTitle("cubedemo")
	game := &windowedGame{ctx: ctx, vbo: vbo, ibo: ibo}
	if err := ebiten.RunGame(game); err != nil {
		panic(err)
	}
}
