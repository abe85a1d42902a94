// Package render is the out-of-scope GPU demo collaborator named in
// SPEC_FULL.md §6: it turns a term.Snapshot into pixels on a GLFW/OpenGL
// window. Nothing in parser/term/config imports this package.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"os"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/javanhut/ravencore/term"
)

const defaultFontSize = 16.0

// Theme is the set of colors the demo paints the grid with.
type Theme struct {
	Background [4]float32
	Foreground [4]float32
	Cursor     [4]float32
}

// ThemeByName returns a theme for one of config.ThemeOptions' names,
// defaulting to "raven-blue" for anything unrecognized.
func ThemeByName(name string) Theme {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "crow-black":
		return Theme{
			Background: [4]float32{0.020, 0.020, 0.020, 1.0},
			Foreground: [4]float32{0.902, 0.902, 0.902, 1.0},
			Cursor:     [4]float32{0.965, 0.965, 0.965, 1.0},
		}
	case "magpie-black-white-grey":
		return Theme{
			Background: [4]float32{0.067, 0.067, 0.067, 1.0},
			Foreground: [4]float32{0.961, 0.961, 0.961, 1.0},
			Cursor:     [4]float32{1.000, 1.000, 1.000, 1.0},
		}
	case "catppuccin-mocha":
		return Theme{
			Background: [4]float32{0.118, 0.118, 0.180, 1.0},
			Foreground: [4]float32{0.804, 0.839, 0.957, 1.0},
			Cursor:     [4]float32{0.961, 0.761, 0.906, 1.0},
		}
	default:
		return Theme{
			Background: [4]float32{0.051, 0.063, 0.102, 1.0},
			Foreground: [4]float32{0.910, 0.929, 0.969, 1.0},
			Cursor:     [4]float32{0.635, 0.878, 0.780, 1.0},
		}
	}
}

type glyph struct {
	x, y          float32
	w, h          float32
	pixelW, pixelH int
}

// Renderer draws a term.Snapshot using a monospace glyph atlas. It owns no
// terminal state of its own.
type Renderer struct {
	theme      Theme
	cellWidth  float32
	cellHeight float32
	fontSize   float32

	glyphs    map[rune]glyph
	fontAtlas uint32
	atlasSize int

	quadVAO, quadVBO     uint32
	program              uint32
	fontVAO, fontVBO     uint32
	fontProgram          uint32
	colorLoc, projLoc    int32
	texColorLoc, texProjLoc, texLoc int32

	bellTex     uint32
	bellBuilt   bool
}

// NewRenderer parses the TTF at fontPath and builds a glyph atlas plus the
// GL shader programs used to draw cell backgrounds and glyphs.
func NewRenderer(fontPath, themeName string) (*Renderer, error) {
	r := &Renderer{
		theme:     ThemeByName(themeName),
		fontSize:  defaultFontSize,
		glyphs:    make(map[rune]glyph),
		atlasSize: 512,
	}
	if err := r.initGL(); err != nil {
		return nil, err
	}
	if err := r.loadFont(fontPath); err != nil {
		return nil, err
	}
	return r, nil
}

// CellSize reports the current glyph cell dimensions in pixels, which a
// caller uses to turn a framebuffer size into a (cols, rows) PTY size.
func (r *Renderer) CellSize() (float32, float32) { return r.cellWidth, r.cellHeight }

func (r *Renderer) loadFont(fontPath string) error {
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return fmt.Errorf("read font %s: %w", fontPath, err)
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(r.fontSize),
		DPI:     96,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("create face: %w", err)
	}
	defer face.Close()

	metrics := face.Metrics()
	r.cellHeight = float32((metrics.Ascent + metrics.Descent).Ceil())
	advance, _ := face.GlyphAdvance('M')
	r.cellWidth = float32(advance.Ceil())

	atlas := image.NewRGBA(image.Rect(0, 0, r.atlasSize, r.atlasSize))
	draw.Draw(atlas, atlas.Bounds(), image.Transparent, image.Point{}, draw.Src)
	drawer := &font.Drawer{Dst: atlas, Src: image.White, Face: face}

	charRanges := []struct{ start, end rune }{
		{32, 126},
		{160, 255},
		{0x2500, 0x257F}, // box drawing
		{0x2580, 0x259F}, // block elements
	}

	x, y := 0, metrics.Ascent.Ceil()
	charW, charH := int(r.cellWidth), int(r.cellHeight)
	for _, cr := range charRanges {
		for c := cr.start; c <= cr.end; c++ {
			if x+charW > r.atlasSize {
				x = 0
				y += charH
			}
			if y+charH > r.atlasSize {
				break
			}
			if _, ok := face.GlyphAdvance(c); !ok {
				continue
			}
			drawer.Dot = fixed.P(x, y)
			drawer.DrawString(string(c))
			r.glyphs[c] = glyph{
				x: float32(x) / float32(r.atlasSize),
				y: float32(y-metrics.Ascent.Ceil()) / float32(r.atlasSize),
				w: float32(charW) / float32(r.atlasSize),
				h: float32(charH) / float32(r.atlasSize),
				pixelW: charW, pixelH: charH,
			}
			x += charW
		}
	}

	alpha := make([]byte, r.atlasSize*r.atlasSize)
	for i := 0; i < r.atlasSize*r.atlasSize; i++ {
		alpha[i] = atlas.Pix[i*4+3]
	}

	gl.GenTextures(1, &r.fontAtlas)
	gl.BindTexture(gl.TEXTURE_2D, r.fontAtlas)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RED, int32(r.atlasSize), int32(r.atlasSize), 0,
		gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(alpha))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return nil
}

func (r *Renderer) initGL() error {
	vertShader := `
		#version 410 core
		layout (location = 0) in vec2 aPos;
		uniform mat4 projection;
		void main() { gl_Position = projection * vec4(aPos, 0.0, 1.0); }
	` + "\x00"
	fragShader := `
		#version 410 core
		out vec4 FragColor;
		uniform vec4 color;
		void main() { FragColor = color; }
	` + "\x00"

	var err error
	r.program, err = createProgram(vertShader, fragShader)
	if err != nil {
		return fmt.Errorf("quad shader: %w", err)
	}
	r.colorLoc = gl.GetUniformLocation(r.program, gl.Str("color\x00"))
	r.projLoc = gl.GetUniformLocation(r.program, gl.Str("projection\x00"))

	textVertShader := `
		#version 410 core
		layout (location = 0) in vec4 vertex;
		out vec2 TexCoords;
		uniform mat4 projection;
		void main() {
			gl_Position = projection * vec4(vertex.xy, 0.0, 1.0);
			TexCoords = vertex.zw;
		}
	` + "\x00"
	textFragShader := `
		#version 410 core
		in vec2 TexCoords;
		out vec4 FragColor;
		uniform sampler2D text;
		uniform vec4 textColor;
		void main() {
			float alpha = texture(text, TexCoords).r;
			FragColor = vec4(textColor.rgb, textColor.a * alpha);
		}
	` + "\x00"

	r.fontProgram, err = createProgram(textVertShader, textFragShader)
	if err != nil {
		return fmt.Errorf("text shader: %w", err)
	}
	r.texColorLoc = gl.GetUniformLocation(r.fontProgram, gl.Str("textColor\x00"))
	r.texProjLoc = gl.GetUniformLocation(r.fontProgram, gl.Str("projection\x00"))
	r.texLoc = gl.GetUniformLocation(r.fontProgram, gl.Str("text\x00"))

	gl.GenVertexArrays(1, &r.quadVAO)
	gl.GenBuffers(1, &r.quadVBO)
	gl.BindVertexArray(r.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, 6*2*4, nil, gl.DYNAMIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 2*4, 0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	gl.GenVertexArrays(1, &r.fontVAO)
	gl.GenBuffers(1, &r.fontVBO)
	gl.BindVertexArray(r.fontVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.fontVBO)
	gl.BufferData(gl.ARRAY_BUFFER, 6*4*4, nil, gl.DYNAMIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 4, gl.FLOAT, false, 4*4, 0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	return nil
}

// RenderSnapshot draws a full term.Snapshot into a width x height viewport.
func (r *Renderer) RenderSnapshot(snap term.Snapshot, width, height int) {
	proj := orthoMatrix(0, float32(width), float32(height), 0, -1, 1)
	gl.Viewport(0, 0, int32(width), int32(height))
	gl.ClearColor(r.theme.Background[0], r.theme.Background[1], r.theme.Background[2], r.theme.Background[3])
	gl.Clear(gl.COLOR_BUFFER_BIT)

	for row := 0; row < snap.Height; row++ {
		for col := 0; col < snap.Width; col++ {
			cell := snap.Cells[row*snap.Width+col]
			if cell.Glyph == 0 {
				continue
			}
			x := float32(col) * r.cellWidth
			y := float32(row) * r.cellHeight

			bg := r.colorToRGBA(cell.Style.Fg, cell.Style.Bg, true, cell.Style.Attrs)
			if bg != r.theme.Background {
				r.drawRect(x, y, r.cellWidth, r.cellHeight, bg, proj)
			}

			fg := r.colorToRGBA(cell.Style.Fg, cell.Style.Bg, false, cell.Style.Attrs)
			if ch := rune(cell.Glyph); ch != ' ' {
				r.drawChar(x, y+r.cellHeight, ch, fg, proj)
			}
		}
	}

	if snap.CursorVisible {
		cx := float32(snap.CursorCol) * r.cellWidth
		cy := float32(snap.CursorRow) * r.cellHeight
		r.drawRect(cx, cy, r.cellWidth, r.cellHeight, r.theme.Cursor, proj)
	}
}

// DrawBellFlash overlays a small vector bell glyph in the top-right corner,
// rasterized from an inline SVG path via oksvg/rasterx. A caller invokes
// this once per frame that term.Term.TakeBell() reported at least one ring.
func (r *Renderer) DrawBellFlash(width, height int) error {
	if !r.bellBuilt {
		if err := r.buildBellTexture(); err != nil {
			return err
		}
		r.bellBuilt = true
	}
	proj := orthoMatrix(0, float32(width), float32(height), 0, -1, 1)
	size := r.cellHeight * 1.5
	x := float32(width) - size - 8
	y := float32(8)

	vertices := []float32{
		x, y, 0, 0,
		x + size, y, 1, 0,
		x + size, y + size, 1, 1,
		x, y, 0, 0,
		x + size, y + size, 1, 1,
		x, y + size, 0, 1,
	}

	gl.UseProgram(r.fontProgram)
	gl.UniformMatrix4fv(r.texProjLoc, 1, false, &proj[0])
	clr := [4]float32{1, 0.85, 0.2, 0.9}
	gl.Uniform4fv(r.texColorLoc, 1, &clr[0])
	gl.Uniform1i(r.texLoc, 0)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.bellTex)
	gl.BindVertexArray(r.fontVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.fontVBO)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(vertices)*4, gl.Ptr(vertices))
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
	return nil
}

// bellSVG is a minimal bell glyph: a body plus a clapper, filled solid.
const bellSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24">
<path d="M12 2a6 6 0 0 0-6 6v3.586l-1.707 1.707A1 1 0 0 0 5 15h14a1 1 0 0 0 .707-1.707L18 11.586V8a6 6 0 0 0-6-6z"/>
<circle cx="12" cy="20" r="2"/>
</svg>`

func (r *Renderer) buildBellTexture() error {
	const dim = 64
	icon, err := oksvg.ReadIconStream(bytes.NewReader([]byte(bellSVG)))
	if err != nil {
		return fmt.Errorf("parse bell svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(dim), float64(dim))

	img := image.NewRGBA(image.Rect(0, 0, dim, dim))
	scanner := rasterx.NewScannerGV(dim, dim, img, img.Bounds())
	raster := rasterx.NewDasher(dim, dim, scanner)
	icon.Draw(raster, 1.0)

	alpha := make([]byte, dim*dim)
	for i := 0; i < dim*dim; i++ {
		alpha[i] = img.Pix[i*4+3]
	}

	gl.GenTextures(1, &r.bellTex)
	gl.BindTexture(gl.TEXTURE_2D, r.bellTex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RED, dim, dim, 0, gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(alpha))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

func (r *Renderer) drawRect(x, y, w, h float32, clr [4]float32, proj [16]float32) {
	vertices := []float32{
		x, y,
		x + w, y,
		x + w, y + h,
		x, y,
		x + w, y + h,
		x, y + h,
	}
	gl.UseProgram(r.program)
	gl.UniformMatrix4fv(r.projLoc, 1, false, &proj[0])
	gl.Uniform4fv(r.colorLoc, 1, &clr[0])
	gl.BindVertexArray(r.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.quadVBO)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(vertices)*4, gl.Ptr(vertices))
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
}

func (r *Renderer) drawChar(x, y float32, ch rune, clr [4]float32, proj [16]float32) {
	g, ok := r.glyphs[ch]
	if !ok {
		g, ok = r.glyphs['?']
		if !ok {
			return
		}
	}
	w, h := float32(g.pixelW), float32(g.pixelH)
	tx, ty, tw, th := g.x, g.y, g.w, g.h

	vertices := []float32{
		x, y - h, tx, ty,
		x + w, y - h, tx + tw, ty,
		x + w, y, tx + tw, ty + th,
		x, y - h, tx, ty,
		x + w, y, tx + tw, ty + th,
		x, y, tx, ty + th,
	}

	gl.UseProgram(r.fontProgram)
	gl.UniformMatrix4fv(r.texProjLoc, 1, false, &proj[0])
	gl.Uniform4fv(r.texColorLoc, 1, &clr[0])
	gl.Uniform1i(r.texLoc, 0)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.fontAtlas)
	gl.BindVertexArray(r.fontVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.fontVBO)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(vertices)*4, gl.Ptr(vertices))
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
}

func (r *Renderer) colorToRGBA(fg, bg term.Color, isBackground bool, attrs term.CharAttrs) [4]float32 {
	c := fg
	if isBackground {
		c = bg
	}
	if attrs&term.AttrInverse != 0 {
		if isBackground {
			c = fg
		} else {
			c = bg
		}
	}
	switch c.Kind {
	case term.ColorDefault:
		if isBackground {
			return r.theme.Background
		}
		return r.theme.Foreground
	case term.ColorNamed, term.ColorPalette:
		return indexedColor(c.Index)
	case term.ColorRGB:
		return [4]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, 1.0}
	default:
		return r.theme.Foreground
	}
}

func indexedColor(index uint8) [4]float32 {
	standard := [16][4]float32{
		{0.043, 0.059, 0.078, 1.0}, {0.820, 0.412, 0.412, 1.0},
		{0.498, 0.737, 0.549, 1.0}, {0.843, 0.729, 0.490, 1.0},
		{0.533, 0.643, 0.831, 1.0}, {0.773, 0.525, 0.753, 1.0},
		{0.498, 0.773, 0.784, 1.0}, {0.831, 0.847, 0.871, 1.0},
		{0.294, 0.322, 0.388, 1.0}, {0.878, 0.478, 0.478, 1.0},
		{0.604, 0.843, 0.659, 1.0}, {0.906, 0.788, 0.545, 1.0},
		{0.647, 0.749, 0.941, 1.0}, {0.847, 0.627, 0.831, 1.0},
		{0.604, 0.843, 0.863, 1.0}, {0.945, 0.953, 0.961, 1.0},
	}
	if index < 16 {
		return standard[index]
	}
	if index < 232 {
		idx := index - 16
		red := (idx / 36) % 6
		green := (idx / 6) % 6
		blue := idx % 6
		return [4]float32{float32(red) * 51 / 255, float32(green) * 51 / 255, float32(blue) * 51 / 255, 1.0}
	}
	gray := float32(index-232) * 10 / 255
	return [4]float32{gray, gray, gray, 1.0}
}

// Destroy releases every GL resource the renderer owns.
func (r *Renderer) Destroy() {
	gl.DeleteVertexArrays(1, &r.quadVAO)
	gl.DeleteBuffers(1, &r.quadVBO)
	gl.DeleteVertexArrays(1, &r.fontVAO)
	gl.DeleteBuffers(1, &r.fontVBO)
	gl.DeleteProgram(r.program)
	gl.DeleteProgram(r.fontProgram)
	gl.DeleteTextures(1, &r.fontAtlas)
	if r.bellBuilt {
		gl.DeleteTextures(1, &r.bellTex)
	}
}

func orthoMatrix(left, right, bottom, top, near, far float32) [16]float32 {
	return [16]float32{
		2 / (right - left), 0, 0, 0,
		0, 2 / (top - bottom), 0, 0,
		0, 0, -2 / (far - near), 0,
		-(right + left) / (right - left), -(top + bottom) / (top - bottom), -(far + near) / (far - near), 1,
	}
}

func createProgram(vertexSource, fragmentSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragmentShader, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}
	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		return 0, fmt.Errorf("link program: %v", log)
	}
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		return 0, fmt.Errorf("compile shader: %v", log)
	}
	return shader, nil
}
