// context.go - public GL surface and shared HW/SW context state
//
// Grounded on umd/src/gl/common.rs's GlCommon: the state both backends
// share (matrices, cull mode, front face, viewport size) lives on the
// embedded common type; each backend only adds its own frame/command
// machinery, mirroring the teacher's VoodooEngine/VoodooBackend split
// between shared state and pluggable backend (video_voodoo.go).

package gl

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/natanbc/fpga-gpu/hal"
)

// Context is the public GL surface; both the hardware-backed and
// software-fallback backends implement it identically, per spec.md §6.
type Context interface {
	Width() int
	Height() int

	SetViewMatrix(m mgl32.Mat4)
	SetProjectionMatrix(m mgl32.Mat4)
	SetModelMatrix(m mgl32.Mat4)
	SetCullMode(CullMode)
	SetFrontFace(FrontFace)

	CreateTextureBuffer() *TextureBuffer

	BeginFrame()
	EndFrame(draw bool)

	DrawGouraud(vbo []GouraudVertex, ibo []uint16)
	DrawTexture(tex *TextureBuffer, vbo []TextureVertex, ibo []uint16)

	Close() error
}

// common holds the state spec.md's GlCommon carries for both backends.
type common struct {
	pipe *Pipeline
}

func newCommon(width, height int) common {
	return common{pipe: NewPipeline(width, height)}
}

func (c *common) Width() int  { return c.pipe.width }
func (c *common) Height() int { return c.pipe.height }

func (c *common) SetViewMatrix(m mgl32.Mat4)       { c.pipe.SetViewMatrix(m) }
func (c *common) SetProjectionMatrix(m mgl32.Mat4) { c.pipe.SetProjectionMatrix(m) }
func (c *common) SetModelMatrix(m mgl32.Mat4)      { c.pipe.SetModelMatrix(m) }
func (c *common) SetCullMode(m CullMode)           { c.pipe.SetCullMode(m) }
func (c *common) SetFrontFace(f FrontFace)         { c.pipe.SetFrontFace(f) }

func (c *common) CreateTextureBuffer() *TextureBuffer { return NewTextureBuffer() }

// New is the package-level constructor spec.md §9's Open Question
// resolves to: try the hardware backend first via UIO discovery, and
// fall back to the software rasterizer when no FPGA is present, unless
// preferHardware forbids the fallback.
func New(preferHardware bool) (Context, error) {
	ctx, err := NewHWContext()
	if err == nil {
		return ctx, nil
	}
	if preferHardware || !errors.Is(err, hal.ErrDeviceNotFound) {
		return nil, err
	}
	return NewSWContext(defaultWidth, defaultHeight), nil
}

const (
	defaultWidth  = 640
	defaultHeight = 480
)
