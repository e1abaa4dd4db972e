// Package scene 将解析后的场景文件与绑定数据构建为排版完成的画框。
package scene

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/ByLCY/richtext/binding"
	"github.com/ByLCY/richtext/dsl"
	"github.com/ByLCY/richtext/layout"
	"github.com/ByLCY/richtext/markup"
)

// ErrNoFrame 表示场景中没有 frame 区块。
var ErrNoFrame = errors.New("场景缺少 frame 定义")

// FontRegistry 接收场景中声明的字体。
type FontRegistry interface {
	RegisterFont(name, src string) error
}

// BuildOptions 配置构建阶段所需的依赖。
type BuildOptions struct {
	// Metrics 为排版提供字体度量，必填。
	Metrics layout.Metrics
	// Fonts 接收字体声明；为空且 Metrics 实现了 FontRegistry 时使用 Metrics。
	Fonts FontRegistry
	// SnapSizes 见 layout.Options.SnapSizes。
	SnapSizes bool
}

// Build 将场景文档与数据转换为排版结果。
func Build(doc *dsl.Document, data any, opts BuildOptions) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("场景为空")
	}
	if opts.Metrics == nil {
		return nil, fmt.Errorf("缺少字体度量")
	}
	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}

	fonts := opts.Fonts
	if fonts == nil {
		fonts, _ = opts.Metrics.(FontRegistry)
	}
	if fonts != nil {
		for _, name := range sortedKeys(res.Fonts) {
			font := res.Fonts[name]
			if err := fonts.RegisterFont(font.Name, font.Src); err != nil {
				return nil, fmt.Errorf("注册字体 %s 失败: %w", font.Name, err)
			}
		}
	}

	sections := doc.Frames()
	if len(sections) == 0 {
		return nil, ErrNoFrame
	}
	result := &Result{
		Meta:   collectMeta(doc),
		Fonts:  res.Fonts,
		Images: res.Images,
	}
	// 每个画框是度量缓存的一个周期
	evictor, _ := opts.Metrics.(layout.Evictor)
	for i, section := range sections {
		frame, err := buildFrame(section, res, data, opts)
		if err != nil {
			return nil, fmt.Errorf("frame %s: %w", section.Name, err)
		}
		result.Frames = append(result.Frames, frame)
		if evictor != nil {
			evictor.Evict(uint64(i + 1))
		}
	}
	return result, nil
}

func buildFrame(section *dsl.FrameSection, res ResourceSet, data any, opts BuildOptions) (Frame, error) {
	width, height, err := resolveFrameSize(section.Params)
	if err != nil {
		return Frame{}, err
	}
	frame := Frame{
		Name:   section.Name,
		Width:  width,
		Height: height,
		Margin: resolveMargin(section.Params),
	}
	if section.Block == nil {
		return frame, nil
	}
	for _, stmt := range section.Block.Statements {
		cmd := stmt.Command
		if cmd == nil {
			continue
		}
		var box TextBox
		switch cmd.Name {
		case "text":
			box, err = buildTextBox(cmd, frame, res, data, opts)
		case "label":
			box, err = buildLabel(cmd, frame, res, data, opts)
		default:
			return frame, fmt.Errorf("第 %d 行：未知指令 %s", cmd.Pos.Line, cmd.Name)
		}
		if err != nil {
			return frame, fmt.Errorf("第 %d 行 %s: %w", cmd.Pos.Line, cmd.Name, err)
		}
		frame.Boxes = append(frame.Boxes, box)
	}
	return frame, nil
}

// boxGeometry 解析 x/y/width/height，宽高缺省时填满画框内容区。
func boxGeometry(attrs map[string]string, frame Frame) (TextBox, error) {
	var box TextBox
	var err error
	if box.X, err = lengthMM(attrs["x"]); err != nil {
		return box, err
	}
	if box.Y, err = lengthMM(attrs["y"]); err != nil {
		return box, err
	}
	contentW := frame.Width - frame.Margin.Left - frame.Margin.Right
	contentH := frame.Height - frame.Margin.Top - frame.Margin.Bottom
	if box.Width, err = lengthMM(attrs["width"]); err != nil {
		return box, err
	}
	if box.Width <= 0 {
		box.Width = contentW - box.X
	}
	if box.Height, err = lengthMM(attrs["height"]); err != nil {
		return box, err
	}
	if box.Height <= 0 {
		box.Height = contentH - box.Y
	}
	box.X += frame.Margin.Left
	box.Y += frame.Margin.Top
	if v := attrs["reveal"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return box, fmt.Errorf("reveal %q 不是整数", v)
		}
		box.MaxCharacters = n
	}
	return box, nil
}

func layoutOptions(attrs map[string]string, opts BuildOptions) (layout.Options, error) {
	overflow, err := layout.ParseOverflow(attrs["overflow"])
	if err != nil {
		return layout.Options{}, err
	}
	out := layout.Options{
		HAlign:           layout.ParseHAlign(attrs["align"]),
		VAlign:           layout.ParseVAlign(attrs["valign"]),
		Overflow:         overflow,
		WordSplitAllowed: parseBool(attrs["wordsplit"]),
		SnapSizes:        opts.SnapSizes || parseBool(attrs["snap"]),
	}
	if v := attrs["scale"]; v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return out, fmt.Errorf("scale %q 无法解析", v)
		}
		out.MaxScale = f
	}
	return out, nil
}

func buildTextBox(cmd *dsl.Command, frame Frame, res ResourceSet, data any, opts BuildOptions) (TextBox, error) {
	styleName, inline := parseArgs(cmd.Args, true)
	box, err := boxGeometry(inline, frame)
	if err != nil {
		return box, err
	}
	box.Kind = KindText
	box.Style = styleName
	lo, err := layoutOptions(inline, opts)
	if err != nil {
		return box, err
	}

	base := mergeStyleAttributes(styleName, inline, res.Styles)
	def, err := toLayoutStyle(styleName, base, res)
	if err != nil {
		return box, err
	}

	box.Source = binding.InterpolateMarkup(cmd.Block.Text(), data)
	parsed := markup.Parse(box.Source)
	if parsed.Err != nil {
		layout.Logger().Warn("标记解析失败", "line", cmd.Pos.Line, "offset", parsed.Err.Offset, "err", parsed.Err.Msg)
		box.Error = parsed.Err.Error()
		parsed = parsed.Display()
	}

	// 标签样式在文本框样式之上叠加
	styles := []layout.Style{def}
	for _, name := range parsed.Styles {
		tag, ok := res.Styles[name]
		if !ok {
			return box, fmt.Errorf("标签 <%s> 引用了未定义的样式", name)
		}
		props := map[string]string{}
		for k, v := range base {
			props[k] = v
		}
		for k, v := range tag.Props {
			props[k] = v
		}
		st, err := toLayoutStyle(name, props, res)
		if err != nil {
			return box, err
		}
		styles = append(styles, st)
	}
	box.Styles = styles
	box.Layout = layout.Layout(parsed.Fragments, styles, box.BoxSize(), opts.Metrics, lo)
	return box, nil
}

func buildLabel(cmd *dsl.Command, frame Frame, res ResourceSet, data any, opts BuildOptions) (TextBox, error) {
	styleName, inline := parseArgs(cmd.Args, true)
	box, err := boxGeometry(inline, frame)
	if err != nil {
		return box, err
	}
	box.Kind = KindLabel
	box.Style = styleName
	lo, err := layoutOptions(inline, opts)
	if err != nil {
		return box, err
	}
	attrs := mergeStyleAttributes(styleName, inline, res.Styles)
	st, err := toLayoutStyle(styleName, attrs, res)
	if err != nil {
		return box, err
	}

	label := &layout.SimpleText{
		Text:             binding.Interpolate(cmd.Block.Text(), data),
		Font:             st.Font,
		Size:             st.Size,
		LetterSpacing:    st.LetterSpacing,
		Color:            st.TextColor,
		Box:              box.BoxSize(),
		HAlign:           lo.HAlign,
		VAlign:           lo.VAlign,
		Overflow:         lo.Overflow,
		WordSplitAllowed: lo.WordSplitAllowed,
		TrimWhitespaces:  parseBool(attrs["trim"]),
	}
	if v := attrs["line-height"]; v != "" {
		lh, err := layout.ParseLineHeight(v)
		if err != nil {
			return box, err
		}
		label.Spacing = lh.Spacing(st.Size)
	}
	if v := attrs["minsize"]; v != "" {
		if label.MinFontSize, err = lengthPT(v); err != nil {
			return box, err
		}
	}
	box.Source = label.Text
	box.Label = label
	box.LabelSize = label.Size
	fitted := *label
	if label.Overflow == layout.OverflowMinify {
		fitted.Size, fitted.Spacing = label.FitSize(opts.Metrics)
		box.LabelSize = fitted.Size
	}
	box.LabelLines = fitted.Lines(opts.Metrics)
	return box, nil
}

// toLayoutStyle 把样式属性转换为 layout.Style，未设置的属性取 layout.DefaultStyle。
func toLayoutStyle(name string, props map[string]string, res ResourceSet) (layout.Style, error) {
	st := layout.DefaultStyle
	if name != "" {
		st.Name = name
	}
	if v := props["font"]; v != "" {
		st.Font = v
	}
	var err error
	if v := props["size"]; v != "" {
		if st.Size, err = lengthPT(v); err != nil {
			return st, err
		}
	}
	if v := props["color"]; v != "" {
		if st.TextColor, err = resolveColor(v, res); err != nil {
			return st, err
		}
	}
	st.Bold = parseBool(props["bold"])
	if v := props["space-after"]; v != "" {
		if st.SpaceAfter, err = lengthPT(v); err != nil {
			return st, err
		}
	}
	if v := props["letter-spacing"]; v != "" {
		if st.LetterSpacing, err = lengthPT(v); err != nil {
			return st, err
		}
	}
	if v := props["shadow"]; v != "" {
		if st.ShadowColor, err = resolveColor(v, res); err != nil {
			return st, err
		}
		st.CastShadow = true
		st.ShadowOffset = layout.Vec2{X: 1, Y: 1}
	}
	if v := props["shadow-offset"]; v != "" {
		d, err := lengthPT(v)
		if err != nil {
			return st, err
		}
		st.ShadowOffset = layout.Vec2{X: d, Y: d}
	}
	if v := props["image"]; v != "" {
		img, ok := res.Images[v]
		if !ok {
			return st, fmt.Errorf("样式 %s 引用了未定义的图片 %s", name, v)
		}
		st.Image = img.Name
		st.ImageSize = layout.Size{Width: img.Width * layout.MmToPt, Height: img.Height * layout.MmToPt}
		switch strings.ToLower(props["image-usage"]) {
		case "", "bullet":
			st.ImageUsage = layout.ImageBullet
		case "overlay":
			st.ImageUsage = layout.ImageOverlay
		default:
			return st, fmt.Errorf("image-usage %q 无法识别", props["image-usage"])
		}
	}
	return st, nil
}

func collectResources(doc *dsl.Document) (ResourceSet, error) {
	res := ResourceSet{
		Fonts:  map[string]FontResource{},
		Colors: map[string]layout.Color{},
		Images: map[string]ImageResource{},
		Styles: map[string]StyleResource{},
	}
	rawStyles := map[string]StyleResource{}

	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			if stmt.Command == nil {
				continue
			}
			switch stmt.Command.Name {
			case "font":
				font := parseFontResource(stmt.Command)
				if font.Name != "" {
					res.Fonts[font.Name] = font
				}
			case "color":
				name, value := parseColorResource(stmt.Command)
				if name == "" || value == "" {
					continue
				}
				c, err := parseColor(value)
				if err != nil {
					return res, err
				}
				res.Colors[name] = c
			case "image":
				image, err := parseImageResource(stmt.Command)
				if err != nil {
					return res, err
				}
				if image.Name != "" {
					res.Images[image.Name] = image
				}
			case "style":
				style := parseStyleResource(stmt.Command)
				if style.Name != "" {
					rawStyles[style.Name] = style
				}
			}
		}
	}

	resolved, err := resolveStyles(rawStyles)
	if err != nil {
		return res, err
	}
	res.Styles = resolved
	return res, nil
}

func collectMeta(doc *dsl.Document) Meta {
	meta := Meta{Creator: "richtext"}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, a := range section.Meta.Block.Assignments() {
			switch strings.ToLower(a.Key) {
			case "title":
				meta.Title = a.Value.Text()
			case "author":
				meta.Author = a.Value.Text()
			case "subject":
				meta.Subject = a.Value.Text()
			case "creator":
				meta.Creator = a.Value.Text()
			case "keywords":
				meta.Keywords = a.Value.List()
			}
		}
	}
	return meta
}

func parseFontResource(cmd *dsl.Command) FontResource {
	if len(cmd.Args) == 0 {
		return FontResource{}
	}
	font := FontResource{Name: cmd.Args[0].Value}
	for _, a := range cmd.Block.Assignments() {
		if a.Key == "src" {
			font.Src = a.Value.Text()
		}
	}
	return font
}

func parseImageResource(cmd *dsl.Command) (ImageResource, error) {
	if len(cmd.Args) == 0 {
		return ImageResource{}, nil
	}
	image := ImageResource{Name: cmd.Args[0].Value}
	var err error
	for _, a := range cmd.Block.Assignments() {
		val := a.Value.Text()
		switch a.Key {
		case "src":
			image.Src = val
		case "width":
			image.Width, err = lengthMM(val)
		case "height":
			image.Height, err = lengthMM(val)
		}
		if err != nil {
			return image, fmt.Errorf("图片 %s: %w", image.Name, err)
		}
	}
	return image, nil
}

func parseStyleResource(cmd *dsl.Command) StyleResource {
	if len(cmd.Args) == 0 {
		return StyleResource{}
	}
	style := StyleResource{
		Name:  cmd.Args[0].Value,
		Props: map[string]string{},
	}
	if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "extends") {
		style.Extends = cmd.Args[2].Value
	}
	for _, a := range cmd.Block.Assignments() {
		if val := a.Value.Text(); val != "" {
			style.Props[a.Key] = val
		}
	}
	return style
}

func resolveStyles(styles map[string]StyleResource) (map[string]StyleResource, error) {
	resolved := map[string]StyleResource{}
	visiting := map[string]bool{}

	var dfs func(name string) (StyleResource, error)
	dfs = func(name string) (StyleResource, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := styles[name]
		if !ok {
			return StyleResource{}, fmt.Errorf("style %s 未定义", name)
		}
		if visiting[name] {
			return StyleResource{}, fmt.Errorf("style 继承存在循环：%s", name)
		}
		visiting[name] = true

		props := map[string]string{}
		if style.Extends != "" {
			parent, err := dfs(style.Extends)
			if err != nil {
				return StyleResource{}, err
			}
			for k, v := range parent.Props {
				props[k] = v
			}
		}
		for k, v := range style.Props {
			props[k] = v
		}
		style.Props = props
		resolved[name] = style
		delete(visiting, name)
		return style, nil
	}

	for _, name := range sortedKeys(styles) {
		if _, err := dfs(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func parseColorResource(cmd *dsl.Command) (string, string) {
	if len(cmd.Args) == 0 {
		return "", ""
	}
	name := cmd.Args[0].Value
	value := ""
	if len(cmd.Args) > 1 {
		value = cmd.Args[len(cmd.Args)-1].Value
	}
	return name, value
}

var framePresets = map[string][2]float64{
	"A4": {210, 297},
	"A5": {148, 210},
	"A6": {105, 148},
}

// resolveFrameSize 接受 "A4 [landscape]" 或 "<宽> <高>" 两种写法。
func resolveFrameSize(params []*dsl.Lexeme) (float64, float64, error) {
	if len(params) == 0 {
		return framePresets["A4"][0], framePresets["A4"][1], nil
	}
	var width, height float64
	if base, ok := framePresets[strings.ToUpper(params[0].Value)]; ok {
		width, height = base[0], base[1]
	} else {
		if len(params) < 2 {
			return 0, 0, fmt.Errorf("画框尺寸需要宽和高")
		}
		var err error
		if width, err = lengthMM(params[0].Value); err != nil {
			return 0, 0, err
		}
		if height, err = lengthMM(params[1].Value); err != nil {
			return 0, 0, err
		}
	}
	for _, token := range params {
		if token.Value == "landscape" {
			width, height = max(width, height), min(width, height)
		}
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("画框尺寸无效：%gx%g", width, height)
	}
	return width, height, nil
}

// resolveMargin 读取 margin 之后的 1 到 4 个长度，语义同 CSS。
func resolveMargin(params []*dsl.Lexeme) Margin {
	var margin Margin
	for i := 0; i < len(params); i++ {
		if params[i].Value != "margin" {
			continue
		}
		vals := []float64{}
		for j := i + 1; j < len(params) && len(vals) < 4; j++ {
			v, err := lengthMM(params[j].Value)
			if err != nil {
				break
			}
			vals = append(vals, v)
		}
		switch len(vals) {
		case 1:
			v := vals[0]
			margin = Margin{Top: v, Right: v, Bottom: v, Left: v}
		case 2:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}
		case 3:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[1]}
		case 4:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
		}
	}
	return margin
}

func parseArgs(args []*dsl.Lexeme, allowStyle bool) (string, map[string]string) {
	result := map[string]string{}
	if len(args) == 0 {
		return "", result
	}

	cursor := 0
	var style string
	// 键值成对出现，奇数个参数时首个为样式名
	if allowStyle && args[0].Type == "Ident" && len(args)%2 == 1 {
		style = args[0].Value
		cursor = 1
	}

	for cursor < len(args)-1 {
		key := args[cursor].Value
		val := args[cursor+1].Value
		cursor += 2
		// 负数被词法拆成 "-" 与数字
		if val == "-" && cursor < len(args) {
			val += args[cursor].Value
			cursor++
		}
		result[key] = val
	}

	return style, result
}

func mergeStyleAttributes(style string, inline map[string]string, styles map[string]StyleResource) map[string]string {
	out := make(map[string]string)
	if style != "" {
		if s, ok := styles[style]; ok {
			for k, v := range s.Props {
				out[k] = v
			}
		}
	}
	for k, v := range inline {
		out[k] = v
	}
	return out
}


func resolveColor(value string, res ResourceSet) (layout.Color, error) {
	if c, ok := res.Colors[value]; ok {
		return c, nil
	}
	if strings.HasPrefix(value, "#") {
		return parseColor(value)
	}
	return layout.Color{}, fmt.Errorf("颜色 %s 未定义", value)
}

func parseColor(value string) (layout.Color, error) {
	hex := strings.TrimPrefix(value, "#")
	switch len(hex) {
	case 3:
		return layout.Opaque(
			mustHex(strings.Repeat(hex[0:1], 2)),
			mustHex(strings.Repeat(hex[1:2], 2)),
			mustHex(strings.Repeat(hex[2:3], 2)),
		), nil
	case 6:
		return layout.Opaque(mustHex(hex[0:2]), mustHex(hex[2:4]), mustHex(hex[4:6])), nil
	case 8:
		c := layout.Opaque(mustHex(hex[0:2]), mustHex(hex[2:4]), mustHex(hex[4:6]))
		c.A = mustHex(hex[6:8])
		return c, nil
	default:
		return layout.Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
}

func mustHex(s string) int {
	v, _ := strconv.ParseInt(s, 16, 64)
	return int(v)
}

// lengthMM 解析长度并换算为 mm，无单位视为 mm。
func lengthMM(value string) (float64, error) {
	l, err := layout.ParseLength(value)
	if err != nil {
		return 0, err
	}
	return l.ToMM(), nil
}

// lengthPT 解析长度并换算为 pt，无单位视为 pt。
func lengthPT(value string) (float64, error) {
	l, err := layout.ParseLength(value)
	if err != nil {
		return 0, err
	}
	return l.ToPT(), nil
}

func parseBool(v string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(v))
	return b
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
