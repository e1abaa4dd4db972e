package layout

// 该文件定义布局引擎、单样式驱动与绘制输出共用的数据结构。

// Vec2 表示局部布局坐标系中的点或偏移（y 轴向下）。
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add 返回 v+o。
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Size 记录宽高。
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Color 采用 0-255 的 RGBA 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
	A int `json:"a"`
}

// Opaque 由 RGB 构造不透明颜色。
func Opaque(r, g, b int) Color { return Color{R: r, G: g, B: b, A: 255} }

// ImageUsage 指定样式内联图片的绘制方式。
type ImageUsage int

const (
	ImageNone    ImageUsage = iota
	ImageBullet             // 在片段首个单词之前绘制一次
	ImageOverlay            // 铺在同一行该样式连续文本之后
)

// Style 描述片段的绘制方式。一次排版过程中样式不可变，单词通过样式表下标引用样式。
type Style struct {
	Name          string     `json:"name"`
	Font          string     `json:"font"`
	Size          float64    `json:"size"`
	SpaceAfter    float64    `json:"spaceAfter,omitempty"`
	LetterSpacing float64    `json:"letterSpacing,omitempty"`
	Bold          bool       `json:"bold,omitempty"`
	CastShadow    bool       `json:"castShadow,omitempty"`
	ShadowOffset  Vec2       `json:"shadowOffset"`
	ShadowColor   Color      `json:"shadowColor"`
	TextColor     Color      `json:"textColor"`
	Image         string     `json:"image,omitempty"`
	ImageUsage    ImageUsage `json:"imageUsage,omitempty"`
	ImageSize     Size       `json:"imageSize"`
}

// DefaultStyle 在调用方没有提供默认样式时使用。
var DefaultStyle = Style{
	Name:        "default",
	Size:        15,
	TextColor:   Opaque(0, 0, 0),
	ShadowColor: Color{A: 255},
}

func (s Style) hasImage() bool {
	return s.Image != "" && s.ImageSize.Width != 0 && s.ImageSize.Height != 0
}

// Word 是排版的最小单位：一段连续的非空白字符、单个空白字符，或二者被拆分后的一段。
type Word struct {
	TextRef         int     `json:"textRef"`
	Style           int     `json:"style"`
	Start           int     `json:"start"`
	Length          int     `json:"length"`
	X               float64 `json:"x"`
	Width           float64 `json:"width"`
	LineBreakBefore bool    `json:"lineBreakBefore,omitempty"`
	IsFragmentStart bool    `json:"isFragmentStart,omitempty"`
	IsNbsp          bool    `json:"isNbsp,omitempty"`

	// forced 记录文本自身带来的换行（\n 或拆词），LineBreakBefore 为排版后的实际换行。
	forced bool
}

// LineSpan 表示一行：从 First 开始的 Count 个单词。
type LineSpan struct {
	First  int     `json:"first"`
	Count  int     `json:"count"`
	Y      float64 `json:"y"`
	Height float64 `json:"height"`
	Width  float64 `json:"width"`
	Offset Vec2    `json:"offset"` // 输出时叠加的对齐偏移
}

// Result 保存一次排版的结果。单词坐标为局部坐标，不含每行的对齐偏移。
type Result struct {
	Words  []Word     `json:"words"`
	Texts  []string   `json:"texts"`
	Lines  []LineSpan `json:"lines"`
	Styles []Style    `json:"-"`
	Bounds Size       `json:"bounds"`
	Scale  float64    `json:"scale"`

	metrics Metrics
	snap    bool
}

// WordText 返回单词覆盖的文本。
func (r *Result) WordText(w Word) string {
	return substring(r.Texts[w.TextRef], w.Start, w.Length)
}

// LineText 返回第 i 行拼接后的文本。
func (r *Result) LineText(i int) string {
	ln := r.Lines[i]
	var out []rune
	for _, w := range r.Words[ln.First : ln.First+ln.Count] {
		out = append(out, []rune(r.WordText(w))...)
	}
	return string(out)
}

// GlyphRun 是交给 Sink 的一段已定位文本，Position 为左上角。
type GlyphRun struct {
	Style         int     `json:"style"`
	Font          string  `json:"font"`
	Text          string  `json:"text"`
	Position      Vec2    `json:"position"`
	Size          float64 `json:"size"`
	LetterSpacing float64 `json:"letterSpacing,omitempty"`
	Color         Color   `json:"color"`
}

// ImageQuad 是交给 Sink 的已定位图片矩形。
type ImageQuad struct {
	Style    int    `json:"style"`
	Image    string `json:"image"`
	Position Vec2   `json:"position"`
	Size     Size   `json:"size"`
}

// Sink 按阅读顺序接收绘制单元。
type Sink interface {
	EmitGlyphRun(run GlyphRun)
	EmitImageQuad(quad ImageQuad)
}

// Recorder 记录收到的全部绘制单元，主要用于测试与调试输出。
type Recorder struct {
	Runs  []GlyphRun
	Quads []ImageQuad
	// Order 记录输出顺序：'g' 为文本，'i' 为图片。
	Order []byte
}

func (r *Recorder) EmitGlyphRun(run GlyphRun) {
	r.Runs = append(r.Runs, run)
	r.Order = append(r.Order, 'g')
}

func (r *Recorder) EmitImageQuad(quad ImageQuad) {
	r.Quads = append(r.Quads, quad)
	r.Order = append(r.Order, 'i')
}

// CaretSyncer 接收一次输出过程中逐字符的位置流。
type CaretSyncer interface {
	StartSync()
	Sync(index int, charPos Vec2, size Vec2)
	NextLine()
	FinishSync()
}

func substring(s string, start, count int) string {
	if count <= 0 {
		return ""
	}
	// ASCII 快速路径
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return s[start : start+count]
	}
	r := []rune(s)
	return string(r[start : start+count])
}
