// Package fonts 提供内置字体与两种字体度量实现：
// Faces 基于 golang.org/x/image/font/opentype，Shaper 基于
// go-text/typesetting 的 HarfBuzz 排形。两者都实现 layout.Metrics。
package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/gofont/gosmallcapsitalic"
)

// DefaultFont 是未声明或无法解析时使用的内置字体。
const DefaultFont = "goregular"

var builtin = map[string][]byte{
	"goregular":         goregular.TTF,
	"gobold":            gobold.TTF,
	"goitalic":          goitalic.TTF,
	"gobolditalic":      gobolditalic.TTF,
	"gomedium":          gomedium.TTF,
	"gomediumitalic":    gomediumitalic.TTF,
	"gomono":            gomono.TTF,
	"gomonobold":        gomonobold.TTF,
	"gomonoitalic":      gomonoitalic.TTF,
	"gomonobolditalic":  gomonobolditalic.TTF,
	"gosmallcaps":       gosmallcaps.TTF,
	"gosmallcapsitalic": gosmallcapsitalic.TTF,
}

// Builtin 返回内置字体的名称，按字母排序。
func Builtin() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load 返回字体的字节数据。src 可写为 "builtin:gobold"、"embed:gobold"
// 或文件路径；相对路径以 baseDir 为基准。空 src 返回 DefaultFont。
func Load(src, baseDir string) ([]byte, error) {
	if src == "" {
		return builtin[DefaultFont], nil
	}
	for _, prefix := range []string{"builtin:", "embed:"} {
		if name, ok := strings.CutPrefix(src, prefix); ok {
			key := strings.ToLower(strings.TrimSuffix(name, ".ttf"))
			if key == "" {
				key = DefaultFont
			}
			data, ok := builtin[key]
			if !ok {
				return nil, fmt.Errorf("内置字体 %s 不存在", name)
			}
			return data, nil
		}
	}
	path := src
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", path, err)
	}
	return data, nil
}
