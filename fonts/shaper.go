package fonts

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"

	"github.com/ByLCY/richtext/layout"
)

// Shaper 用 go-text/typesetting 的 HarfBuzz 排形测量文本，
// 宽度包含字距调整与连字。解析后的 font.Font 被缓存，
// 每次测量创建轻量的 font.Face；HarfbuzzShaper 通过 sync.Pool 复用。
type Shaper struct {
	baseDir string
	pool    sync.Pool

	mu    sync.RWMutex
	fonts map[string]*font.Font
}

var _ layout.Metrics = (*Shaper)(nil)

// NewShaper 创建排形测量器，相对字体路径以 baseDir 为基准。
func NewShaper(baseDir string) *Shaper {
	return &Shaper{
		baseDir: baseDir,
		pool: sync.Pool{
			New: func() any { return &shaping.HarfbuzzShaper{} },
		},
		fonts: map[string]*font.Font{},
	}
}

// RegisterFont 加载 src 并以 name 注册。
func (s *Shaper) RegisterFont(name, src string) error {
	data, err := Load(src, s.baseDir)
	if err != nil {
		return err
	}
	return s.Register(name, data)
}

// Register 解析字体数据并以 name 注册。
func (s *Shaper) Register(name string, data []byte) error {
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("解析字体 %s 失败: %w", name, err)
	}
	s.mu.Lock()
	s.fonts[name] = face.Font
	s.mu.Unlock()
	return nil
}

// MeasureLine 实现 layout.Metrics。
func (s *Shaper) MeasureLine(name, text string, size, letterSpacing float64) layout.Size {
	fnt, err := s.lookup(name)
	if err != nil {
		layout.Logger().Warn("加载字体失败", "font", name, "err", err)
		return layout.Size{}
	}
	runes := []rune(text)
	empty := len(runes) == 0
	if empty {
		// 空文本仍需要行高
		runes = []rune{' '}
	}
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      font.NewFace(fnt),
		Size:      fixed.Int26_6(size * 64),
		Script:    detectScript(runes),
		Language:  language.NewLanguage("en"),
	}
	hb := s.pool.Get().(*shaping.HarfbuzzShaper)
	out := hb.Shape(input)
	s.pool.Put(hb)

	if empty {
		return layout.Size{Height: float64(out.LineBounds.LineHeight()) / 64}
	}
	width := float64(out.Advance)/64 + letterSpacing*float64(len(runes))
	return layout.Size{Width: width, Height: float64(out.LineBounds.LineHeight()) / 64}
}

func (s *Shaper) lookup(name string) (*font.Font, error) {
	s.mu.RLock()
	fnt, ok := s.fonts[name]
	if !ok {
		fnt, ok = s.fonts[DefaultFont]
	}
	s.mu.RUnlock()
	if ok {
		return fnt, nil
	}
	face, err := font.ParseTTF(bytes.NewReader(builtin[DefaultFont]))
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.fonts[DefaultFont] = face.Font
	s.mu.Unlock()
	return face.Font, nil
}

func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}
