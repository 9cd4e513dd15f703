package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/binzume/motiontrace/config"
	"github.com/binzume/motiontrace/converter"
	"github.com/binzume/motiontrace/kinematics"
	"github.com/binzume/motiontrace/mmd"
	"github.com/binzume/motiontrace/reduce"
	"github.com/binzume/motiontrace/skeleton"
	"github.com/rs/zerolog"
)

// parseLevel falls back to info for empty or unknown names.
func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func newLogger(level string) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

func withoutExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// reduceFile writes <input>_reduce.vmd next to an existing motion.
func reduceFile(ctx context.Context, input string, cfg *config.Config, logger zerolog.Logger) error {
	m, err := mmd.ReadVMD(input)
	if err != nil {
		return err
	}
	reduced, err := reduce.Motion(ctx, m, cfg.ReduceOptions())
	if err != nil {
		return err
	}
	output := withoutExt(input) + cfg.Output.ReduceSuffix
	logger.Info().Str("output", output).Int("before", m.BoneFrames.Count()).Int("after", reduced.BoneFrames.Count()).Msg("reduced")
	if err := mmd.WriteVMD(output, reduced, m.ModelName, logger); err != nil {
		os.Remove(output)
		return err
	}
	return nil
}

// previewFile plays an existing motion on the model and writes <input>.glb.
func previewFile(ctx context.Context, modelPath, input string, logger zerolog.Logger) error {
	sk, err := skeleton.LoadFile(modelPath)
	if err != nil {
		return err
	}
	m, err := mmd.ReadVMD(input)
	if err != nil {
		return err
	}
	output := withoutExt(input) + ".glb"
	logger.Info().Str("output", output).Msg("preview")
	return converter.ExportGLB(ctx, output, sk, m, &converter.GLBOptions{
		SolveIk:    true,
		Kinematics: kinematics.Options{Logger: logger},
	})
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -modelPath model.pmx -dirPath workdir\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s -reduce motion.vmd\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s -modelPath model.pmx -preview motion.vmd\n", os.Args[0])
		flag.PrintDefaults()
	}
	modelPath := flag.String("modelPath", "", "PMX or PMD model")
	dirPath := flag.String("dirPath", "", "directory containing *_smooth.json traces")
	configDir := flag.String("config", "", "directory containing motiontrace.yaml (default: dirPath)")
	profilePath := flag.String("profile", "", "rig profile yaml (overrides config)")
	logLevel := flag.String("logLevel", "", "TRACE, DEBUG, INFO, WARN or ERROR")
	preview := flag.String("preview", "", "write a glb preview of this vmd")
	reduceInput := flag.String("reduce", "", "reduce this vmd")
	progress := flag.Bool("progress", true, "show progress bar")
	flag.Parse()

	if *configDir == "" {
		*configDir = *dirPath
	}
	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *profilePath != "" {
		cfg.Profile = *profilePath
	}
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case *reduceInput != "":
		err = reduceFile(ctx, *reduceInput, cfg, logger)
	case *preview != "":
		if *modelPath == "" {
			flag.Usage()
			os.Exit(2)
		}
		err = previewFile(ctx, *modelPath, *preview, logger)
	default:
		if *modelPath == "" || *dirPath == "" {
			flag.Usage()
			os.Exit(2)
		}
		var profile *config.Profile
		profile, err = config.LoadProfile(cfg.Profile)
		if err != nil {
			break
		}
		opts := &converter.Options{
			ModelPath: *modelPath,
			Dir:       *dirPath,
			Config:    cfg,
			Profile:   profile,
			Logger:    logger,
		}
		if *progress {
			opts.Progress = os.Stderr
		}
		_, err = converter.Run(ctx, opts)
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed")
		os.Exit(1)
	}
}
