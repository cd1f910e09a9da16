package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	photocropper "github.com/menta2k/photo-cropper"
	"github.com/menta2k/photo-cropper/internal/config"
	"github.com/menta2k/photo-cropper/internal/utils"
	"github.com/menta2k/photo-cropper/pkg/codec"
	"github.com/menta2k/photo-cropper/pkg/cropper"
	"github.com/menta2k/photo-cropper/pkg/types"
)

func main() {
	var in, outDir, configPath, preset, ext, script string
	var width, height, quality int
	var zoom, panX, panY float64
	var printURI, preview, quick bool

	flag.StringVar(&in, "in", "", "input image path, URL or data URI (jpg/png/gif/bmp/tiff/webp)")
	flag.StringVar(&outDir, "out", "", "output directory (default from config)")
	flag.StringVar(&configPath, "config", "", "JSON config file (default ~/.config/photo-cropper/config.json if present)")
	flag.StringVar(&preset, "preset", "", "output preset: square|portrait")
	flag.IntVar(&width, "width", 0, "output width override (px)")
	flag.IntVar(&height, "height", 0, "output height override (px)")
	flag.StringVar(&ext, "ext", "", "output format: jpg|png|webp")
	flag.IntVar(&quality, "quality", 0, "output quality (1-100)")

	flag.Float64Var(&zoom, "zoom", 1.0, "zoom factor applied as a pinch (0.1..3.0)")
	flag.Float64Var(&panX, "panx", 0, "horizontal pan applied as a drag")
	flag.Float64Var(&panY, "pany", 0, "vertical pan applied as a drag")
	flag.StringVar(&script, "script", "", "JSON file with recorded gesture events, replayed after -zoom/-panx/-pany")

	flag.BoolVar(&printURI, "datauri", false, "print the result as a data URI")
	flag.BoolVar(&preview, "preview", false, "also write the last preview frame as PNG")
	flag.BoolVar(&quick, "quick", false, "only compress the input (no crop) and print its data URI")

	flag.Parse()
	if in == "" {
		log.Fatalf("usage: %s -in photo.jpg|URL|data:... [-preset square|portrait] [-zoom 1.5] [-panx 10 -pany 10] [-script events.json] [-out outdir] [-ext jpg|png|webp]", filepath.Base(os.Args[0]))
	}

	if utils.FileExists(in) && !utils.IsImageFile(in) {
		log.Printf("warning: %s does not have an image extension, trying to decode anyway", in)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if preset != "" {
		if err := cfg.ApplyPreset(preset); err != nil {
			log.Fatal(err)
		}
	}
	if width > 0 {
		cfg.Cropper.Width = width
	}
	if height > 0 {
		cfg.Cropper.Height = height
	}
	if ext != "" {
		cfg.Output.Format = ext
	}
	if quality > 0 {
		cfg.Output.Quality = quality
	}
	if outDir != "" {
		cfg.Output.OutputDir = outDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	cropperConfig, err := cfg.CropperSettings()
	if err != nil {
		log.Fatal(err)
	}
	editor := photocropper.NewWithConfig(cfg.IntakeSettings(), cropperConfig)
	ctx := context.Background()

	if quick {
		bitmap, err := editor.Downscaler().BoundSource(ctx, in)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("working bitmap %dx%d (%s)", bitmap.Width, bitmap.Height, utils.FormatFileSize(int64(len(bitmap.Data))))
		fmt.Println(bitmap.DataURI())
		return
	}

	if err := editor.OpenSource(ctx, in); err != nil {
		log.Fatal(err)
	}
	engine := editor.Engine()
	bitmap := engine.Bitmap()
	log.Printf("working bitmap %dx%d (%s)", bitmap.Width, bitmap.Height, utils.FormatFileSize(int64(len(bitmap.Data))))

	center := types.Point{X: float64(cropperConfig.Width) / 2, Y: float64(cropperConfig.Height) / 2}
	events := []cropper.Event{}
	if zoom != 1 {
		events = append(events, cropper.PinchScript(center, zoom)...)
	}
	if panX != 0 || panY != 0 {
		events = append(events, cropper.DragScript(center, panX, panY, cropperConfig.DragDamping)...)
	}
	if script != "" {
		f, err := os.Open(script)
		if err != nil {
			log.Fatal(err)
		}
		recorded, err := cropper.ReadScript(f)
		f.Close()
		if err != nil {
			log.Fatal(err)
		}
		events = append(events, recorded...)
	}

	if err := engine.Replay(events); err != nil {
		log.Fatal(err)
	}
	t := engine.Transform()
	log.Printf("transform zoom=%.3f (%d%%) pan=%.2f,%.2f", t.Zoom, engine.ZoomPercent(), t.PanX, t.PanY)

	if err := utils.EnsureDir(cfg.Output.OutputDir); err != nil {
		log.Fatal(err)
	}

	if preview {
		previewPath := utils.GenerateOutputFilename(in, cfg.Output.OutputDir, "_preview", "png")
		if err := codec.Save(engine.Preview(), previewPath, codec.PNG, 0); err != nil {
			log.Printf("preview save failed: %v", err)
		} else {
			log.Printf("wrote %s", previewPath)
		}
	}

	result, err := editor.Confirm()
	if err != nil {
		log.Fatal(err)
	}

	outPath := utils.GenerateOutputFilename(in, cfg.Output.OutputDir, cfg.Output.Suffix, result.Format.Extension())
	if err := os.WriteFile(outPath, result.Data, 0o644); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s (%dx%d, %s)", outPath, result.Width, result.Height, utils.FormatFileSize(int64(len(result.Data))))

	if printURI {
		fmt.Println(result.DataURI())
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.GetConfigPath()
		if !utils.FileExists(path) {
			return config.Default(), nil
		}
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	log.Printf("loaded config %s", path)
	return cfg, nil
}
