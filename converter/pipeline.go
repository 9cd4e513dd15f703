package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/binzume/motiontrace/config"
	"github.com/binzume/motiontrace/kinematics"
	"github.com/binzume/motiontrace/mmd"
	"github.com/binzume/motiontrace/motion"
	"github.com/binzume/motiontrace/reduce"
	"github.com/binzume/motiontrace/skeleton"
	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotReady = errors.New("end of frame marker not found")
	ErrNoTrace  = errors.New("no trace found")
)

const progressTemplate = `{{ string . "prefix" }} {{counters . "%s/%s" "%s/?"}} {{bar . }} {{percent . "%.03f%%" "?"}} {{etime . "%s elapsed"}}`

// stages per trace counted by the progress bar
const stageCount = 5

type Options struct {
	ModelPath string
	Dir       string
	Config    *config.Config
	Profile   *config.Profile
	Logger    zerolog.Logger
	// Progress receives the progress bar. nil disables it.
	Progress io.Writer
}

// Output lists the files written for one trace.
type Output struct {
	Name       string
	Full       string
	Reduced    string
	Preview    string
	Shortfalls int
}

type Result struct {
	RunID   string
	Outputs []*Output
}

type pipeline struct {
	*Options
	sk     *skeleton.Skeleton
	logger zerolog.Logger
	bar    *pb.ProgressBar
}

func (p *pipeline) kinematicsOptions() kinematics.Options {
	return kinematics.Options{
		Tolerance: p.Config.Ik.Tolerance,
		Workers:   p.Config.Workers,
		Logger:    p.logger,
	}
}

// Run converts every trace in opts.Dir once the end of frame marker is
// present and writes the complete marker when all traces succeeded.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	if opts.Config == nil {
		c, err := config.Load("")
		if err != nil {
			return nil, err
		}
		opts.Config = c
	}
	if opts.Profile == nil {
		opts.Profile = config.DefaultProfile()
	}
	cfg := opts.Config

	if _, err := os.Stat(filepath.Join(opts.Dir, cfg.Sentinel.EndOfFrame)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotReady, opts.Dir)
		}
		return nil, err
	}

	runID := uuid.NewString()
	logger := opts.Logger.With().Str("run", runID).Logger()

	sk, err := skeleton.LoadFile(opts.ModelPath)
	if err != nil {
		return nil, err
	}
	n := opts.Profile.ApplyIkConstraints(sk, cfg.Ik.MaxLoop)
	logger.Debug().Str("model", sk.Name).Int("bones", sk.Len()).Int("constrained", n).Msg("model loaded")

	paths, err := FindTraces(opts.Dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoTrace, opts.Dir)
	}
	traces := make([]*Trace, len(paths))
	for i, path := range paths {
		if traces[i], err = LoadTrace(path); err != nil {
			return nil, err
		}
	}
	var origin Position
	if idx := traces[0].Indexes(); len(idx) > 0 {
		origin = traces[0].Frames[idx[0]].Camera
	}

	w := opts.Progress
	if w == nil {
		w = io.Discard
	}
	bar := pb.ProgressBarTemplate(progressTemplate).New(len(traces) * stageCount).SetWriter(w)
	bar.Set("prefix", "trace")
	bar.Start()
	defer bar.Finish()

	p := &pipeline{Options: opts, sk: sk, logger: logger, bar: bar}
	outputs := make([]*Output, len(traces))
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, trace := range traces {
		i, trace := i, trace
		g.Go(func() error {
			out, err := p.convert(gctx, trace, origin)
			if err != nil {
				return fmt.Errorf("%s: %w", trace.Name(), err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	complete := filepath.Join(opts.Dir, cfg.Sentinel.Complete)
	if err := os.WriteFile(complete, nil, 0644); err != nil {
		return nil, err
	}
	logger.Info().Int("traces", len(traces)).Msg("complete")
	return &Result{RunID: runID, Outputs: outputs}, nil
}

func (p *pipeline) outputPath(name, suffix string) string {
	return filepath.Join(p.Dir, name+suffix)
}

func (p *pipeline) modelName() string {
	if p.Config.Output.ModelName != "" {
		return p.Config.Output.ModelName
	}
	return p.sk.Name
}

// writeMotion removes the partially written file when the write fails.
func (p *pipeline) writeMotion(path string, m *motion.Motion, logger zerolog.Logger) error {
	if err := mmd.WriteVMD(path, m, p.modelName(), logger); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func (p *pipeline) convert(ctx context.Context, trace *Trace, origin Position) (*Output, error) {
	logger := p.logger.With().Str("trace", trace.Name()).Logger()
	out := &Output{Name: trace.Name()}

	tracked, err := Move(ctx, trace, p.Profile, origin)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("frames", len(tracked.Frames)).Float64("ground", tracked.Ground).Msg("moved")
	p.bar.Increment()

	kopts := p.kinematicsOptions()
	kopts.Logger = logger

	rotated, err := Rotate(ctx, tracked, p.sk, p.Profile, logger)
	if err != nil {
		return nil, err
	}
	if rotated, err = SeparateTwist(ctx, rotated, p.sk, kopts); err != nil {
		return nil, err
	}
	p.bar.Increment()

	full, shortfalls, err := SolveLegIk(ctx, rotated, p.sk, p.Profile, kopts)
	if err != nil {
		return nil, err
	}
	out.Shortfalls = len(shortfalls)
	if len(shortfalls) > 0 {
		logger.Info().Int("frames", len(shortfalls)).Msg("leg IK did not converge on some frames")
	}
	p.bar.Increment()

	out.Full = p.outputPath(out.Name, p.Config.Output.FullSuffix)
	if err := p.writeMotion(out.Full, full, logger); err != nil {
		return nil, err
	}
	p.bar.Increment()

	reduced, err := reduce.Motion(ctx, full, p.Config.ReduceOptions())
	if err != nil {
		return nil, err
	}
	out.Reduced = p.outputPath(out.Name, p.Config.Output.ReduceSuffix)
	if err := p.writeMotion(out.Reduced, reduced, logger); err != nil {
		return nil, err
	}
	logger.Info().
		Int("full", full.BoneFrames.Count()).
		Int("reduced", reduced.BoneFrames.Count()).
		Msg("motion written")

	if p.Config.Output.Preview {
		out.Preview = strings.TrimSuffix(out.Reduced, filepath.Ext(out.Reduced)) + ".glb"
		if err := ExportGLB(ctx, out.Preview, p.sk, reduced, &GLBOptions{SolveIk: true, Kinematics: kopts}); err != nil {
			return nil, err
		}
	}
	p.bar.Increment()
	return out, nil
}
