package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ByLCY/richtext/dsl"
	"github.com/ByLCY/richtext/fonts"
	"github.com/ByLCY/richtext/layout"
	"github.com/ByLCY/richtext/renderer"
	canvasrenderer "github.com/ByLCY/richtext/renderer/canvas"
	"github.com/ByLCY/richtext/scene"
)

func main() {
	input := flag.String("in", "examples/demo.rtx", "场景文件路径")
	output := flag.String("out", "output/demo.pdf", "PDF 输出路径")
	debug := flag.String("debug", "", "排版调试 JSON 输出路径")
	dataJSON := flag.String("data", "", "绑定到场景的 JSON 数据")
	metricsName := flag.String("metrics", "canvas", "排版度量：canvas、opentype 或 harfbuzz")
	verbose := flag.Bool("v", false, "输出调试日志")
	flag.Parse()

	if *verbose {
		layout.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	var inputData any
	if *dataJSON != "" {
		if err := json.Unmarshal([]byte(*dataJSON), &inputData); err != nil {
			log.Fatalf("解析 data JSON 失败: %v", err)
		}
	}

	baseDir := filepath.Dir(*input)
	cr := canvasrenderer.NewRenderer(baseDir)
	opts, err := buildOptions(*metricsName, baseDir, cr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := run(*input, *output, *debug, inputData, cr, opts); err != nil {
		log.Fatalf("生成 PDF 失败: %v", err)
	}
	fmt.Printf("已生成 PDF：%s\n", *output)
}

// buildOptions 选择排版度量。绘制始终使用 canvas 渲染器，因此字体同时注册到两边。
func buildOptions(name, baseDir string, cr *canvasrenderer.Renderer) (scene.BuildOptions, error) {
	switch name {
	case "canvas":
		return scene.BuildOptions{Metrics: cr, Fonts: cr}, nil
	case "opentype":
		faces := fonts.NewFaces(baseDir)
		return scene.BuildOptions{Metrics: faces, Fonts: registries{faces, cr}}, nil
	case "harfbuzz":
		shaper := fonts.NewShaper(baseDir)
		return scene.BuildOptions{Metrics: shaper, Fonts: registries{shaper, cr}}, nil
	default:
		return scene.BuildOptions{}, fmt.Errorf("未知的度量实现 %s", name)
	}
}

// registries 把字体注册转发给多个接收方。
type registries []scene.FontRegistry

func (rs registries) RegisterFont(name, src string) error {
	var errs []error
	for _, r := range rs {
		errs = append(errs, r.RegisterFont(name, src))
	}
	return errors.Join(errs...)
}

// run 串联解析、构建与渲染。
func run(inputPath, outputPath, debugPath string, data any, r renderer.Renderer, opts scene.BuildOptions) error {
	if r == nil {
		return fmt.Errorf("renderer 不能为空")
	}
	doc, err := dsl.ParseFile(inputPath)
	if err != nil {
		return fmt.Errorf("解析场景失败: %w", err)
	}

	result, err := scene.Build(doc, data, opts)
	if err != nil {
		return fmt.Errorf("排版失败: %w", err)
	}

	if debugPath != "" {
		if err := writeDebug(result, debugPath); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	pdfBytes, err := r.Render(result)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if err := os.WriteFile(outputPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}

	return nil
}

func writeDebug(result *scene.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := scene.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
