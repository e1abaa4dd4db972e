// Package binding 把 JSON 数据插入场景文本。
//
// 占位符写作 ${path}，path 由点分隔的键与 [n] 下标组成，例如
// ${order.items[0].name}。${path|默认值} 在路径不存在时插入默认值。
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ByLCY/richtext/markup"
)

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将文本中的占位符替换为 data 中的值。
// data 为空或路径不存在且没有默认值时保留原占位符。
func Interpolate(text string, data any) string {
	return InterpolateFunc(text, data, nil)
}

// InterpolateMarkup 与 Interpolate 相同，但插入的值会先做标记转义，
// 数据中的 <、>、& 不会被解析为标签。
func InterpolateMarkup(text string, data any) string {
	return InterpolateFunc(text, data, markup.Escape)
}

// InterpolateFunc 用 escape 处理每个插入的值；escape 为 nil 时原样插入。
func InterpolateFunc(text string, data any, escape func(string) string) string {
	if data == nil {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		expr := match[2 : len(match)-1]
		path, fallback, hasFallback := strings.Cut(expr, "|")
		path = strings.TrimSpace(path)
		if path == "" {
			return match
		}
		var str string
		if val, ok := Lookup(data, path); ok {
			str = format(val)
		} else if hasFallback {
			str = fallback
		} else {
			return match
		}
		if escape != nil {
			str = escape(str)
		}
		return str
	})
}

// Lookup 按 path 在 data 中取值，支持 map[string]any、map[string]string、
// []any 与 []string。
func Lookup(data any, path string) (any, bool) {
	steps, ok := parsePath(path)
	if !ok {
		return nil, false
	}
	cur := data
	for _, s := range steps {
		if s.index < 0 {
			cur, ok = field(cur, s.key)
		} else {
			cur, ok = element(cur, s.index)
		}
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// step 是路径中的一段：键或下标（index >= 0）。
type step struct {
	key   string
	index int
}

func parsePath(path string) ([]step, bool) {
	var steps []step
	for _, seg := range strings.Split(path, ".") {
		seg = strings.TrimSpace(seg)
		name, rest, _ := strings.Cut(seg, "[")
		if name != "" {
			steps = append(steps, step{key: name, index: -1})
		}
		if rest == "" {
			if name == "" {
				return nil, false
			}
			continue
		}
		rest = "[" + rest
		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if rest[0] != '[' || end < 0 {
				return nil, false
			}
			n, err := strconv.Atoi(rest[1:end])
			if err != nil || n < 0 {
				return nil, false
			}
			steps = append(steps, step{index: n})
			rest = rest[end+1:]
		}
	}
	return steps, len(steps) > 0
}

func field(cur any, key string) (any, bool) {
	switch m := cur.(type) {
	case map[string]any:
		v, ok := m[key]
		return v, ok
	case map[string]string:
		v, ok := m[key]
		return v, ok
	}
	return nil, false
}

func element(cur any, i int) (any, bool) {
	switch s := cur.(type) {
	case []any:
		if i < len(s) {
			return s[i], true
		}
	case []string:
		if i < len(s) {
			return s[i], true
		}
	}
	return nil, false
}

// format 输出值的文本形式；JSON 数字不带多余的小数位。
func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
