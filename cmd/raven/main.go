// Command raven is the composition root: it wires a PTY session, the
// parser/term core, the reactor event loop, and the GLFW/OpenGL renderer
// demo together into a runnable terminal window.
package main

import (
	"log"
	"os"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/javanhut/ravencore/config"
	"github.com/javanhut/ravencore/ptyio"
	"github.com/javanhut/ravencore/reactor"
	"github.com/javanhut/ravencore/render"
	"github.com/javanhut/ravencore/term"
)

// candidateFonts are system monospace TTFs tried in order; the demo has no
// embedded font asset, unlike the teacher's Nerd Font bundle, since no font
// binaries ship in this source tree (see DESIGN.md).
var candidateFonts = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSansMono.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationMono-Regular.ttf",
	"/usr/share/fonts/TTF/DejaVuSansMono.ttf",
	"/System/Library/Fonts/Menlo.ttc",
}

func findFont() string {
	if p := os.Getenv("RAVENCORE_FONT"); p != "" {
		return p
	}
	for _, p := range candidateFonts {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	fontPath := findFont()
	if fontPath == "" {
		log.Fatal("no usable monospace font found; set RAVENCORE_FONT")
	}

	win, err := render.NewWindow(render.DefaultWindowConfig())
	if err != nil {
		log.Fatalf("open window: %v", err)
	}
	defer win.Destroy()

	rnd, err := render.NewRenderer(fontPath, cfg.Theme)
	if err != nil {
		log.Fatalf("init renderer: %v", err)
	}
	defer rnd.Destroy()

	cellW, cellH := rnd.CellSize()
	fbw, fbh := win.FramebufferSize()
	cols := uint16(float32(fbw) / cellW)
	rows := uint16(float32(fbh) / cellH)
	if cols == 0 {
		cols = 1
	}
	if rows == 0 {
		rows = 1
	}

	session, err := ptyio.NewPtySession(cols, rows)
	if err != nil {
		log.Fatalf("start shell: %v", err)
	}
	defer session.Close()

	t := term.New(int(cols), int(rows))

	re := reactor.New(session, t, func() { glfw.PostEmptyEvent() })
	go func() {
		if err := re.Run(); err != nil {
			log.Printf("reactor stopped: %v", err)
		}
		win.GLFW().SetShouldClose(true)
		glfw.PostEmptyEvent()
	}()

	win.GLFW().SetCharCallback(func(_ *glfw.Window, r rune) {
		re.Send(reactor.Message{Kind: reactor.KindCharacter, Rune: r})
	})
	win.GLFW().SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		cw, ch := rnd.CellSize()
		c := uint16(float32(width) / cw)
		rws := uint16(float32(height) / ch)
		if c == 0 {
			c = 1
		}
		if rws == 0 {
			rws = 1
		}
		re.Send(reactor.Message{Kind: reactor.KindResize, Cols: c, Rows: rws, PixelW: uint16(width), PixelH: uint16(height)})
	})
	win.GLFW().SetFocusCallback(func(_ *glfw.Window, focused bool) {
		re.Send(reactor.Message{Kind: reactor.KindFocus, Focused: focused})
	})

	for !win.ShouldClose() {
		glfw.WaitEvents()

		width, height := win.FramebufferSize()
		snap := t.Snapshot()
		rnd.RenderSnapshot(snap, width, height)
		if t.TakeBell() > 0 {
			if err := rnd.DrawBellFlash(width, height); err != nil {
				log.Printf("bell flash: %v", err)
			}
		}
		win.SwapBuffers()
	}

	re.Send(reactor.Message{Kind: reactor.KindExit})
}
