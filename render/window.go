package render

import (
	"fmt"
	"runtime"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	// GLFW event handling must run on the thread that created the window.
	runtime.LockOSThread()
}

// WindowConfig describes the demo window the renderer draws into.
type WindowConfig struct {
	Width  int
	Height int
	Title  string
}

// DefaultWindowConfig returns a reasonable default demo window size.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{Width: 900, Height: 600, Title: "ravencore"}
}

// Window wraps a GLFW window with an OpenGL 4.1 core context. It is the
// renderer demo's only collaborator outside the Term snapshot — the core
// (parser/term/reactor) never references it.
type Window struct {
	glfw   *glfw.Window
	config WindowConfig
}

// NewWindow creates a GLFW window and makes its GL context current on the
// calling (locked OS) thread.
func NewWindow(cfg WindowConfig) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.DoubleBuffer, glfw.True)
	glfw.WindowHintString(glfw.X11ClassName, "ravencore")
	glfw.WindowHintString(glfw.X11InstanceName, "ravencore")

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}
	win.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		win.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("gl init: %w", err)
	}

	glfw.SwapInterval(1)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	return &Window{glfw: win, config: cfg}, nil
}

// GLFW returns the underlying GLFW window for event-callback wiring.
func (w *Window) GLFW() *glfw.Window { return w.glfw }

// FramebufferSize returns the current drawable size in pixels.
func (w *Window) FramebufferSize() (int, int) { return w.glfw.GetFramebufferSize() }

// ShouldClose reports whether the user asked to close the window.
func (w *Window) ShouldClose() bool { return w.glfw.ShouldClose() }

// SwapBuffers presents the frame just drawn.
func (w *Window) SwapBuffers() { w.glfw.SwapBuffers() }

// Clear fills the framebuffer with a solid color ahead of a frame's draws.
func (w *Window) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

// SetViewport resizes the OpenGL viewport to match the framebuffer.
func (w *Window) SetViewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

// Destroy tears down the GL context and terminates GLFW.
func (w *Window) Destroy() {
	w.glfw.Destroy()
	glfw.Terminate()
}

// PollEvents processes pending window/input events.
func PollEvents() { glfw.PollEvents() }
