package scene

import "github.com/ByLCY/richtext/layout"

// Result 是场景构建的输出：元数据、资源以及排版完成的画框。
// 画框与文本框的坐标使用毫米（mm），文本框内部的排版结果使用点（pt）。
type Result struct {
	Meta   Meta                     `json:"meta"`
	Fonts  map[string]FontResource  `json:"fonts"`
	Images map[string]ImageResource `json:"images,omitempty"`
	Frames []Frame                  `json:"frames"`
}

// Meta 保存场景文件中的 meta 区块。
type Meta struct {
	Title    string   `json:"title,omitempty"`
	Author   string   `json:"author,omitempty"`
	Subject  string   `json:"subject,omitempty"`
	Creator  string   `json:"creator,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// FontResource 描述一个字体声明，Src 支持 builtin: / embed: 前缀或文件路径。
type FontResource struct {
	Name string `json:"name"`
	Src  string `json:"src"`
}

// ImageResource 描述一个图片声明，宽高单位为 mm。
type ImageResource struct {
	Name   string  `json:"name"`
	Src    string  `json:"src"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// StyleResource 是 resources 中的 style 声明，Props 为原始属性。
type StyleResource struct {
	Name    string            `json:"name"`
	Extends string            `json:"extends,omitempty"`
	Props   map[string]string `json:"props"`
}

// ResourceSet 汇总所有资源，Styles 已展开继承关系。
type ResourceSet struct {
	Fonts  map[string]FontResource
	Colors map[string]layout.Color
	Images map[string]ImageResource
	Styles map[string]StyleResource
}

// Margin 记录画框四周留白（mm）。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Frame 是一块固定尺寸的画面，对应 PDF 中的一页。
type Frame struct {
	Name   string    `json:"name"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	Margin Margin    `json:"margin"`
	Boxes  []TextBox `json:"boxes"`
}

// BoxKind 区分富文本框与单样式标签。
type BoxKind string

const (
	KindText  BoxKind = "text"
	KindLabel BoxKind = "label"
)

// TextBox 是画框中的一个文本区域。
type TextBox struct {
	Kind   BoxKind `json:"kind"`
	Style  string  `json:"style,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Source 是插值后的文本；Error 为标记解析错误（此时显示错误信息）。
	Source        string `json:"source"`
	Error         string `json:"error,omitempty"`
	MaxCharacters int    `json:"maxCharacters,omitempty"`

	// 富文本框
	Styles []layout.Style `json:"styles,omitempty"`
	Layout *layout.Result `json:"layout,omitempty"`

	// 标签
	Label      *layout.SimpleText `json:"-"`
	LabelLines []string           `json:"labelLines,omitempty"`
	LabelSize  float64            `json:"labelSize,omitempty"`
}

// BoxSize 返回文本框的排版区域（pt）。
func (b TextBox) BoxSize() layout.Size {
	return layout.Size{Width: b.Width * layout.MmToPt, Height: b.Height * layout.MmToPt}
}
