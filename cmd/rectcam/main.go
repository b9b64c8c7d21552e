package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/menta2k/rectcam"
	"github.com/menta2k/rectcam/internal/logger"
	"github.com/menta2k/rectcam/internal/utils"
	"github.com/menta2k/rectcam/pkg/capture"
	"github.com/menta2k/rectcam/pkg/config"
	"github.com/menta2k/rectcam/pkg/match"
	"github.com/menta2k/rectcam/pkg/types"
)

type result struct {
	Session string                 `json:"session"`
	Images  []types.ProcessedImage `json:"images"`
	Label   string                 `json:"label,omitempty"`
	Scale   float64                `json:"scale,omitempty"`
}

func main() {
	var configPath, in, outDir, rectType, view, overlay, confirm, label string
	var crop, preview bool
	var quality float64

	flag.StringVar(&configPath, "config", "", "config file (json|yaml), defaults to "+config.GetConfigPath())
	flag.StringVar(&in, "in", "", "comma separated photo sources, file paths or URLs (jpg/png/webp)")
	flag.StringVar(&outDir, "out", "output", "output directory")
	flag.StringVar(&rectType, "rect", "none", "guide rectangle: none|A4|A5|custom")
	flag.BoolVar(&crop, "crop", false, "crop captured photos to the guide rectangle")
	flag.BoolVar(&preview, "preview", true, "hold each photo for confirmation before delivering it")
	flag.Float64Var(&quality, "quality", 0, "output quality (0..1), unset uses 0.95 when cropping and 0.6 otherwise")
	flag.StringVar(&view, "view", "360x640", "overlay view size WxH")
	flag.StringVar(&overlay, "overlay", "", "write the first source with the guide drawn on it to this path")
	flag.StringVar(&confirm, "confirm", "accept", "confirmation answer: accept|retake|ask")
	flag.StringVar(&label, "label", "", "crop label to resolve against the known labels")
	flag.Parse()

	if in == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -in photo.jpg[,photo2.png] [-rect A4] [-crop] [-confirm accept|retake|ask] [-out outdir]\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Flags only override the config when given explicitly
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			cfg.Output.Dir = outDir
		case "rect":
			cfg.Guide.RectType = rectType
		case "crop":
			cfg.Capture.EnableCrop = crop
		case "preview":
			cfg.Capture.EnablePreviewConfirmation = preview
		case "quality":
			cfg.Capture.ImageQuality = capture.Quality(quality)
		case "view":
			w, h, err := parseSize(view)
			if err != nil {
				flagErr = err
				return
			}
			cfg.Guide.ViewWidth, cfg.Guide.ViewHeight = w, h
		}
	})
	if flagErr != nil {
		fmt.Fprintf(os.Stderr, "%v\n", flagErr)
		os.Exit(2)
	}

	log := logger.New("rectcam-cli", cfg.Log.Environment, cfg.Log.Level)
	sources := splitSources(in)

	out := result{}
	m, err := rectcam.New(cfg, sources, rectcam.Handlers{
		OnSuccess: func(img types.ProcessedImage) {
			out.Images = append(out.Images, img)
			size := ""
			if st, err := os.Stat(img.URI); err == nil {
				size = utils.FormatFileSize(st.Size())
			}
			log.Info().Str("uri", img.URI).Int("width", img.Width).Int("height", img.Height).
				Bool("cropped", img.Cropped).Str("size", size).Msg("photo delivered")
		},
		OnError: func(err error) {
			log.WithError(err).Warn().Msg("capture failed")
		},
		OnStateChange: func(from, to capture.State) {
			log.Debug().Str("from", from.String()).Str("to", to.String()).Msg("state changed")
		},
	})
	if err != nil {
		log.WithError(err).Fatal().Msg("failed to create capture module")
	}
	out.Session = m.SessionID()

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		if errors.Is(err, capture.ErrPermission) {
			fmt.Fprintln(os.Stderr, m.PermissionState().Error)
			os.Exit(1)
		}
		log.WithError(err).Fatal().Msg("failed to start")
	}

	if overlay != "" {
		if err := writeOverlay(m, sources[0], overlay); err != nil {
			log.WithError(err).Error().Str("path", overlay).Msg("overlay failed")
		} else {
			log.Info().Str("path", overlay).Msg("wrote overlay")
		}
	}

	stdin := bufio.NewReader(os.Stdin)
	for range sources {
		if err := m.Capture(ctx); err != nil {
			continue
		}
		pending, ok := m.Pending()
		if !ok {
			continue
		}
		accept, err := answer(confirm, pending, stdin)
		if err != nil {
			log.WithError(err).Fatal().Msg("failed to read confirmation")
		}
		if accept {
			err = m.Accept()
		} else {
			err = m.Retake()
		}
		if err != nil {
			log.WithError(err).Error().Msg("confirmation failed")
		}
	}

	if label != "" {
		out.Label = match.FindBestMatch(label, nil)
		out.Scale = match.ScaleFor(out.Label)
	}

	if err := m.Close(); err != nil {
		log.WithError(err).Warn().Msg("close failed")
	}

	js, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(js))
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func splitSources(in string) []string {
	var sources []string
	for _, s := range strings.Split(in, ",") {
		if s = strings.TrimSpace(s); s != "" {
			sources = append(sources, s)
		}
	}
	return sources
}

func parseSize(s string) (float64, float64, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid view size %q, expected WxH", s)
	}
	w, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid view width %q: %w", parts[0], err)
	}
	h, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid view height %q: %w", parts[1], err)
	}
	return w, h, nil
}

func answer(mode string, pending types.ProcessedImage, r *bufio.Reader) (bool, error) {
	switch mode {
	case "accept":
		return true, nil
	case "retake":
		return false, nil
	case "ask":
		fmt.Fprintf(os.Stderr, "keep %s (%dx%d)? [y/N] ", pending.URI, pending.Width, pending.Height)
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return false, err
		}
		line = strings.ToLower(strings.TrimSpace(line))
		return line == "y" || line == "yes", nil
	default:
		return false, fmt.Errorf("unknown confirm mode %q", mode)
	}
}

func writeOverlay(m *rectcam.Module, source, path string) error {
	frame, err := m.Processor().LoadImageSmart(context.Background(), source)
	if err != nil {
		return err
	}
	drawn, err := m.RenderGuide(frame)
	if err != nil {
		return err
	}
	ext := utils.GetFileExtension(path)
	if ext == "" {
		ext = "png"
	}
	return m.Processor().SaveImage(drawn, path, ext, 92, false)
}
