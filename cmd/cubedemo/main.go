// cubedemo - spinning-cube demo driving the fpga-gpu GL context
//
// Out of scope per spec.md §1 ("the main demo" is named only as an
// external collaborator); kept intentionally thin. Selects a display
// frontend at runtime by backend: the software context gets a raw-terminal
// ANSI preview, the hardware context an ebiten window — mirroring the
// teacher's real-backend-vs-headless-backend pattern
// (voodoo_vulkan_headless.go).

package main

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/natanbc/fpga-gpu/gl"
)

const (
	demoWidth  = 320
	demoHeight = 240
)

func cubeGeometry() ([]gl.GouraudVertex, []uint16) {
	vbo := []gl.GouraudVertex{
		{X: -1, Y: -1, Z: -1, R: 1, G: 0, B: 0},
		{X: 1, Y: -1, Z: -1, R: 0, G: 1, B: 0},
		{X: 1, Y: 1, Z: -1, R: 0, G: 0, B: 1},
		{X: -1, Y: 1, Z: -1, R: 1, G: 1, B: 0},
		{X: -1, Y: -1, Z: 1, R: 1, G: 0, B: 1},
		{X: 1, Y: -1, Z: 1, R: 0, G: 1, B: 1},
		{X: 1, Y: 1, Z: 1, R: 1, G: 1, B: 1},
		{X: -1, Y: 1, Z: 1, R: 0, G: 0, B: 0},
	}
	ibo := []uint16{
		0, 1, 2, 0, 2, 3, // back
		5, 4, 7, 5, 7, 6, // front
		4, 0, 3, 4, 3, 7, // left
		1, 5, 6, 1, 6, 2, // right
		3, 2, 6, 3, 6, 7, // top
		4, 5, 1, 4, 1, 0, // bottom
	}
	return vbo, ibo
}

func main() {
	ctx, err := gl.New(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cubedemo: failed to create GL context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	ctx.SetProjectionMatrix(mgl32.Perspective(mgl32.DegToRad(60), float32(ctx.Width())/float32(ctx.Height()), 0.1, 100))
	ctx.SetViewMatrix(mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}))

	vbo, ibo := cubeGeometry()

	if sw, ok := ctx.(*gl.SWContext); ok {
		runTerminalFrontend(sw, vbo, ibo)
		return
	}
	runWindowedFrontend(ctx, vbo, ibo)
}

func spin(ctx gl.Context, angle float32, vbo []gl.GouraudVertex, ibo []uint16) {
	ctx.SetModelMatrix(mgl32.HomogRotate3D(angle, mgl32.Vec3{0, 1, 0}))

	ctx.BeginFrame()
	ctx.DrawGouraud(vbo, ibo)
	ctx.EndFrame(true)
}
