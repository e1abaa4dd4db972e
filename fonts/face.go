package fonts

import (
	"fmt"
	"math"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ByLCY/richtext/layout"
)

// Faces 用 x/image 的 opentype 字体测量文本，单位为点（72 DPI）。
// 字号按 1/64 点取整后缓存对应的 font.Face；Evict 释放超过 MaxAge 个周期
// 未使用的 face。Faces 可被多个排版引擎并发使用。
type Faces struct {
	MaxAge uint64

	mu      sync.Mutex
	baseDir string
	fonts   map[string]*opentype.Font
	faces   map[faceKey]*faceEntry
	def     *opentype.Font
	now     uint64
}

type faceKey struct {
	name string
	size fixed.Int26_6
}

type faceEntry struct {
	face     font.Face
	lastUsed uint64
}

var (
	_ layout.Metrics = (*Faces)(nil)
	_ layout.Evictor = (*Faces)(nil)
)

// NewFaces 创建测量器，相对字体路径以 baseDir 为基准。
func NewFaces(baseDir string) *Faces {
	return &Faces{
		baseDir: baseDir,
		fonts:   map[string]*opentype.Font{},
		faces:   map[faceKey]*faceEntry{},
	}
}

// RegisterFont 加载 src 并以 name 注册。
func (f *Faces) RegisterFont(name, src string) error {
	data, err := Load(src, f.baseDir)
	if err != nil {
		return err
	}
	return f.Register(name, data)
}

// Register 解析字体数据并以 name 注册，覆盖同名字体。
func (f *Faces) Register(name string, data []byte) error {
	fnt, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("解析字体 %s 失败: %w", name, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fonts[name] = fnt
	for key, e := range f.faces {
		if key.name == name {
			e.face.Close()
			delete(f.faces, key)
		}
	}
	return nil
}

// MeasureLine 实现 layout.Metrics。每个字符之后追加 letterSpacing。
// 未注册的字体名使用 DefaultFont。
func (f *Faces) MeasureLine(name, text string, size, letterSpacing float64) layout.Size {
	f.mu.Lock()
	defer f.mu.Unlock()
	face, err := f.face(name, size)
	if err != nil {
		layout.Logger().Warn("创建字体失败", "font", name, "size", size, "err", err)
		return layout.Size{}
	}
	width := toFloat(font.MeasureString(face, text))
	width += letterSpacing * float64(utf8.RuneCountInString(text))
	return layout.Size{Width: width, Height: toFloat(face.Metrics().Height)}
}

// Close 释放缓存的 font.Face。
func (f *Faces) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, e := range f.faces {
		e.face.Close()
		delete(f.faces, key)
	}
	return nil
}

// Evict 把缓存推进到周期 now，关闭并移除超过 MaxAge 个周期未使用的 face，
// 返回移除的数量。
func (f *Faces) Evict(now uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
	removed := 0
	for key, e := range f.faces {
		if e.lastUsed < now && now-e.lastUsed > f.MaxAge {
			e.face.Close()
			delete(f.faces, key)
			removed++
		}
	}
	return removed
}

// Len 返回缓存的 face 数量。
func (f *Faces) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.faces)
}

func (f *Faces) face(name string, size float64) (font.Face, error) {
	key := faceKey{name: name, size: fixed.Int26_6(math.Round(size * 64))}
	if e, ok := f.faces[key]; ok {
		e.lastUsed = f.now
		return e.face, nil
	}
	fnt, ok := f.fonts[name]
	if !ok {
		var err error
		if fnt, err = f.fallback(); err != nil {
			return nil, err
		}
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    toFloat(key.size),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	f.faces[key] = &faceEntry{face: face, lastUsed: f.now}
	return face, nil
}

func (f *Faces) fallback() (*opentype.Font, error) {
	if f.def != nil {
		return f.def, nil
	}
	fnt, err := opentype.Parse(builtin[DefaultFont])
	if err != nil {
		return nil, err
	}
	f.def = fnt
	return fnt, nil
}

func toFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64.0
}
