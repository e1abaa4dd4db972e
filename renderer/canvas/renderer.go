package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"golang.org/x/image/draw"

	"github.com/ByLCY/richtext/fonts"
	"github.com/ByLCY/richtext/layout"
	"github.com/ByLCY/richtext/renderer"
	"github.com/ByLCY/richtext/scene"
)

// Renderer draws scene results via github.com/tdewolff/canvas. It also
// measures text with the same fonts, so layout and drawing agree.
type Renderer struct {
	baseDir string

	// injected resources
	fontBlobs  map[string][]byte // by unique name
	imageBlobs map[string][]byte // by unique name

	fontMu         sync.Mutex
	fontFamilies   map[string]*canvas.FontFamily
	fallbackFamily *canvas.FontFamily

	imageMu sync.Mutex
	images  map[string]image.Image
}

var (
	_ renderer.Renderer  = (*Renderer)(nil)
	_ layout.Metrics     = (*Renderer)(nil)
	_ scene.FontRegistry = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Fonts   map[string]Resource // fonts accessible via built-in:<name>
	Images  map[string]Resource // images accessible via built-in:<name>
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected resources and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		fontBlobs:    ingest(opts.Fonts),
		imageBlobs:   ingest(opts.Images),
		fontFamilies: map[string]*canvas.FontFamily{},
		images:       map[string]image.Image{},
	}
	return r
}

func ingest(resources map[string]Resource) map[string][]byte {
	out := map[string][]byte{}
	for name, res := range resources {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			out[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			data, _ := os.ReadFile(res.Path) // a missing file surfaces when the resource is used
			if len(data) > 0 {
				out[name] = data
			}
		}
	}
	return out
}

// RegisterFont loads src as the font called name. Injected fonts are
// addressed as built-in:<name>; other builtin:/embed: names resolve to the
// Go fonts of package fonts; everything else is a path below baseDir.
func (r *Renderer) RegisterFont(name, src string) error {
	data, err := r.loadFontBytes(src)
	if err != nil {
		return err
	}
	family := canvas.NewFontFamily(name)
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return fmt.Errorf("加载字体 %s 失败: %w", name, err)
	}
	r.fontMu.Lock()
	r.fontFamilies[name] = family
	r.fontMu.Unlock()
	return nil
}

// MeasureLine implements layout.Metrics. Sizes are points; canvas measures
// in millimeters, so the result is converted back to points.
func (r *Renderer) MeasureLine(font, text string, size, letterSpacing float64) layout.Size {
	face, err := r.fontFace(font, size, layout.Opaque(0, 0, 0))
	if err != nil {
		layout.Logger().Warn("加载字体失败", "font", font, "err", err)
		return layout.Size{}
	}
	width := toPt(face.TextWidth(text)) + letterSpacing*float64(utf8.RuneCountInString(text))
	return layout.Size{Width: width, Height: toPt(face.Metrics().LineHeight)}
}

// Render renders every frame as one PDF page.
func (r *Renderer) Render(result *scene.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Frames) == 0 {
		return nil, fmt.Errorf("缺少可渲染的画框")
	}

	var buf bytes.Buffer
	writer := pdf.New(&buf, result.Frames[0].Width, result.Frames[0].Height, nil)
	r.applyMeta(writer, result.Meta)
	for i, frame := range result.Frames {
		if i > 0 {
			writer.NewPage(frame.Width, frame.Height)
		}
		c := canvas.New(frame.Width, frame.Height)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

		if err := r.drawFrame(ctx, frame, result.Images); err != nil {
			return nil, fmt.Errorf("frame %s: %w", frame.Name, err)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta scene.Meta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

func (r *Renderer) drawFrame(ctx *canvas.Context, frame scene.Frame, images map[string]scene.ImageResource) error {
	for _, box := range frame.Boxes {
		sink := &boxSink{r: r, ctx: ctx, origin: layout.Vec2{X: box.X, Y: box.Y}, images: images}
		switch box.Kind {
		case scene.KindText:
			if box.Layout != nil {
				box.Layout.Emit(sink, layout.EmitOptions{MaxCharacters: box.MaxCharacters})
			}
		case scene.KindLabel:
			if box.Label != nil {
				box.Label.Render(r, sink, nil)
			}
		}
		if sink.err != nil {
			return sink.err
		}
	}
	return nil
}

// boxSink draws the output of one text box. Positions arrive in points
// relative to the box; origin is the box corner in millimeters.
type boxSink struct {
	r      *Renderer
	ctx    *canvas.Context
	origin layout.Vec2
	images map[string]scene.ImageResource
	err    error
}

func (s *boxSink) EmitGlyphRun(run layout.GlyphRun) {
	if s.err != nil || run.Text == "" {
		return
	}
	face, err := s.r.fontFace(run.Font, run.Size, run.Color)
	if err != nil {
		s.err = err
		return
	}
	x := s.origin.X + toMm(run.Position.X)
	// 基线位置：行顶部加上字体上升部
	baseline := s.origin.Y + toMm(run.Position.Y) + face.Metrics().Ascent
	if run.LetterSpacing == 0 {
		s.ctx.DrawText(x, baseline, canvas.NewTextLine(face, run.Text, canvas.Left))
		return
	}
	spacing := toMm(run.LetterSpacing)
	for _, ch := range run.Text {
		str := string(ch)
		s.ctx.DrawText(x, baseline, canvas.NewTextLine(face, str, canvas.Left))
		x += face.TextWidth(str) + spacing
	}
}

func (s *boxSink) EmitImageQuad(quad layout.ImageQuad) {
	if s.err != nil {
		return
	}
	res, ok := s.images[quad.Image]
	if !ok {
		s.err = fmt.Errorf("图片资源 %s 未定义", quad.Image)
		return
	}
	img, err := s.r.loadImage(res.Src)
	if err != nil {
		s.err = err
		return
	}
	if quad.Size.Width <= 0 || quad.Size.Height <= 0 {
		return
	}
	img = fitImage(img, quad.Size)
	// 宽高比已与 quad 一致
	dpmm := float64(img.Bounds().Dx()) / toMm(quad.Size.Width)
	s.ctx.DrawImage(s.origin.X+toMm(quad.Position.X), s.origin.Y+toMm(quad.Position.Y), img, canvas.DPMM(dpmm))
}

// fitImage resamples img so that its aspect ratio matches size, keeping the
// pixel width. Images that already match are returned as is.
func fitImage(img image.Image, size layout.Size) image.Image {
	b := img.Bounds()
	if b.Dx() == 0 || size.Width <= 0 || size.Height <= 0 {
		return img
	}
	h := max(int(math.Round(float64(b.Dx())*size.Height/size.Width)), 1)
	if h == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func (r *Renderer) loadImage(src string) (image.Image, error) {
	r.imageMu.Lock()
	defer r.imageMu.Unlock()
	if img, ok := r.images[src]; ok {
		return img, nil
	}
	var (
		img image.Image
		err error
	)
	// built-in resources take precedence
	if strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "builtin:") {
		name := strings.TrimPrefix(strings.TrimPrefix(src, "built-in:"), "builtin:")
		blob, ok := r.imageBlobs[name]
		if !ok {
			return nil, fmt.Errorf("找不到内置图片资源 built-in:%s", name)
		}
		img, _, err = image.Decode(bytes.NewReader(blob))
		if err != nil {
			return nil, fmt.Errorf("解码内置图片 built-in:%s 失败: %w", name, err)
		}
	} else {
		if r.baseDir == "" && !filepath.IsAbs(src) {
			return nil, fmt.Errorf("未指定资源目录时不允许直接使用路径：%s（请改用 built-in:）", src)
		}
		path := src
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.baseDir, path)
		}
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("读取图片 %s 失败: %w", src, err)
		}
		img, _, err = image.Decode(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("解码图片 %s 失败: %w", src, err)
		}
	}
	r.images[src] = img
	return img, nil
}

func (r *Renderer) fontFace(name string, size float64, col layout.Color) (*canvas.FontFace, error) {
	family, err := r.family(name)
	if err != nil {
		return nil, err
	}
	return family.Face(size, colorFromLayout(col), canvas.FontRegular, canvas.FontNormal), nil
}

// family returns the registered family for name, or the fallback Go font.
func (r *Renderer) family(name string) (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if family, ok := r.fontFamilies[name]; ok {
		return family, nil
	}
	if r.fallbackFamily != nil {
		return r.fallbackFamily, nil
	}
	data, err := fonts.Load("", "")
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("richtext-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	r.fallbackFamily = family
	return family, nil
}

func (r *Renderer) loadFontBytes(src string) ([]byte, error) {
	if name, ok := strings.CutPrefix(src, "built-in:"); ok {
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
		return nil, fmt.Errorf("找不到内置字体资源 built-in:%s", name)
	}
	if name, ok := strings.CutPrefix(src, "builtin:"); ok {
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
	}
	if src != "" && !strings.Contains(src, ":") && r.baseDir == "" && !filepath.IsAbs(src) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 builtin: 或 embed:）", src)
	}
	return fonts.Load(src, r.baseDir)
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, float64(c.A)/255.0)
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }

// toMm 将点(pt)转换为毫米(mm)。
func toMm(pt float64) float64 { return pt * layout.PtToMm }
