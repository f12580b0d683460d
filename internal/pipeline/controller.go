// Package pipeline orchestrates the job state machine. Triggers validate the
// record's current status, flip it into the stage's in-progress state, and
// detach the stage work into a tracked goroutine; the goroutine reports back
// through Advance, the sole mutation primitive.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pwaforge/internal/config"
	"pwaforge/internal/entity"
	"pwaforge/internal/job"
	"pwaforge/internal/logging"
	"pwaforge/internal/pwagen"
)

// Controller owns the job collection and drives stage transitions.
type Controller struct {
	logger    *slog.Logger
	jobs      *entity.Collection[job.State]
	store     *entity.Store
	analyzer  *pwagen.Analyzer
	generator *pwagen.Generator
	validator *pwagen.Validator
	exporter  *pwagen.Exporter

	wg sync.WaitGroup
}

// AnalyzeRequest describes the input handed to StartAnalyze.
type AnalyzeRequest struct {
	InputType   job.InputType
	ArchiveName string
	Archive     []byte
	RepoURL     string
}

// NewController wires the pipeline against the entity store.
func NewController(cfg *config.Config, store *entity.Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		jobs:      entity.NewCollection(store, entity.Config[job.State]{Kind: "job"}),
		store:     store,
		analyzer:  pwagen.NewAnalyzer(cfg, logger),
		generator: pwagen.NewGenerator(logger),
		validator: pwagen.NewValidator(cfg, logger),
		exporter:  pwagen.NewExporter(logger),
	}
}

// Jobs exposes the job collection for read paths.
func (c *Controller) Jobs() *entity.Collection[job.State] {
	return c.jobs
}

// Job returns the current record state, or entity.ErrNotFound.
func (c *Controller) Job(ctx context.Context, id string) (job.State, error) {
	return c.jobs.Get(ctx, id)
}

// Wait blocks until every detached background unit has reported back. Used
// by server shutdown and tests; new triggers may still detach units while
// Wait is running.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// StartAnalyze creates a new job in pending, flips it to analyzing, detaches
// the analysis work, and returns the record without waiting for completion.
func (c *Controller) StartAnalyze(ctx context.Context, req AnalyzeRequest) (job.State, error) {
	input, err := req.validate()
	if err != nil {
		return job.State{}, err
	}

	state := job.State{
		ID:        c.store.NewID(),
		Input:     input,
		InputType: req.InputType,
		Status:    job.StatusPending,
		CreatedAt: time.Now().UnixMilli(),
	}
	if _, err := c.jobs.Create(ctx, state); err != nil {
		return job.State{}, err
	}
	state, err = c.Advance(ctx, state.ID, job.StartResult(job.StatusAnalyzing))
	if err != nil {
		return job.State{}, err
	}

	archive := req.Archive
	c.detach(state.ID, "analyze", func(ctx context.Context) (job.StageResult, error) {
		var (
			analysis job.Analysis
			err      error
		)
		if req.InputType == job.InputZip {
			analysis, err = c.analyzer.AnalyzeArchive(ctx, req.ArchiveName, archive)
		} else {
			analysis, err = c.analyzer.AnalyzeRepo(ctx, req.RepoURL)
		}
		if err != nil {
			return job.StageResult{}, err
		}
		return job.AnalysisResult(analysis), nil
	})

	return state, nil
}

// StartGenerate runs the generate stage synchronously. The job must be in
// complete with an analysis result attached.
func (c *Controller) StartGenerate(ctx context.Context, jobID string, opts pwagen.GenerateOptions) (job.State, error) {
	state, err := c.jobs.Get(ctx, jobID)
	if err != nil {
		return job.State{}, err
	}
	if state.Status != job.StatusComplete || state.Analysis == nil {
		return job.State{}, fmt.Errorf("generate requires an analyzed job, status is %s: %w", state.Status, ErrPreconditionFailed)
	}

	files, err := c.generator.Generate(ctx, state, opts)
	if err != nil {
		c.recordFailure(ctx, jobID, "generate", err)
		return job.State{}, err
	}
	return c.Advance(ctx, jobID, job.GenerationResult(files))
}

// StartValidate flips a generated job to validating and detaches the audit.
func (c *Controller) StartValidate(ctx context.Context, jobID string) (job.State, error) {
	state, err := c.jobs.Get(ctx, jobID)
	if err != nil {
		return job.State{}, err
	}
	if state.Status != job.StatusGenerated {
		return job.State{}, fmt.Errorf("validate requires a generated job, status is %s: %w", state.Status, ErrPreconditionFailed)
	}

	state, err = c.Advance(ctx, jobID, job.StartResult(job.StatusValidating))
	if err != nil {
		return job.State{}, err
	}

	c.detach(jobID, "validate", func(ctx context.Context) (job.StageResult, error) {
		current, err := c.jobs.Get(ctx, jobID)
		if err != nil {
			return job.StageResult{}, err
		}
		report, err := c.validator.Validate(ctx, current)
		if err != nil {
			return job.StageResult{}, err
		}
		return job.ValidationResult(report), nil
	})

	return state, nil
}

// StartExport runs the export stage synchronously. The job must be validated
// with a perfect score; anything less keeps the export gate shut.
func (c *Controller) StartExport(ctx context.Context, jobID string, exportType job.ExportType, opts pwagen.ExportOptions) (job.State, error) {
	state, err := c.jobs.Get(ctx, jobID)
	if err != nil {
		return job.State{}, err
	}
	if state.Status != job.StatusValidated || state.Validation == nil {
		return job.State{}, fmt.Errorf("export requires a validated job, status is %s: %w", state.Status, ErrPreconditionFailed)
	}
	if state.Validation.Score != job.PerfectScore {
		return job.State{}, fmt.Errorf("export requires score %s, job scored %s: %w", job.PerfectScore, state.Validation.Score, ErrPreconditionFailed)
	}

	artifact, err := c.exporter.Export(ctx, state, exportType, opts)
	if err != nil {
		c.recordFailure(ctx, jobID, "export", err)
		return job.State{}, err
	}
	return c.Advance(ctx, jobID, job.ExportResult(artifact))
}

// Rerun starts a fresh analysis for an existing job's input. The original
// record is left untouched; the new record gets its own id and starts at
// pending like any other job.
func (c *Controller) Rerun(ctx context.Context, jobID string) (job.State, error) {
	original, err := c.jobs.Get(ctx, jobID)
	if err != nil {
		return job.State{}, err
	}

	state := job.State{
		ID:        c.store.NewID(),
		Input:     original.Input,
		InputType: original.InputType,
		Status:    job.StatusPending,
		CreatedAt: time.Now().UnixMilli(),
	}
	if _, err := c.jobs.Create(ctx, state); err != nil {
		return job.State{}, err
	}
	state, err = c.Advance(ctx, state.ID, job.StartResult(job.StatusAnalyzing))
	if err != nil {
		return job.State{}, err
	}

	c.detach(state.ID, "analyze", func(ctx context.Context) (job.StageResult, error) {
		analysis, err := c.analyzer.Reanalyze(ctx, original)
		if err != nil {
			return job.StageResult{}, err
		}
		return job.AnalysisResult(analysis), nil
	})

	return state, nil
}

// Advance applies a stage result through the store's serialized mutate. The
// legality check runs against the status read under the same lock as the
// write, so a stale completion can never clobber a newer transition.
func (c *Controller) Advance(ctx context.Context, jobID string, result job.StageResult) (job.State, error) {
	return c.jobs.MutateChecked(ctx, jobID, func(state job.State) (job.State, error) {
		if !job.CanTransition(state.Status, result.Target) {
			return job.State{}, fmt.Errorf("advance %s from %s to %s: %w", jobID, state.Status, result.Target, ErrIllegalTransition)
		}
		return job.Apply(state, result)
	})
}

// detach launches a background unit for one stage. The unit's outcome is
// delivered through exactly one Advance call; failures, including panics,
// are recovered into status=error instead of escaping to nobody.
func (c *Controller) detach(jobID, stage string, unit func(ctx context.Context) (job.StageResult, error)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx := logging.WithStage(logging.WithJobID(context.Background(), jobID), stage)
		logger := logging.WithContext(ctx, c.logger)

		defer func() {
			if r := recover(); r != nil {
				logger.Error("stage panicked", logging.Any("panic", r))
				c.complete(ctx, jobID, job.FailureResult(fmt.Errorf("stage %s panicked: %v", stage, r)))
			}
		}()

		result, err := unit(ctx)
		if err != nil {
			logger.Warn("stage failed", logging.Error(err))
			result = job.FailureResult(err)
		}
		c.complete(ctx, jobID, result)
	}()
}

// complete records a background unit's outcome. A duplicate or stale
// completion loses the legality check inside Advance and is dropped here
// with a log line; there is no caller left to raise it to.
func (c *Controller) complete(ctx context.Context, jobID string, result job.StageResult) {
	logger := logging.WithContext(ctx, c.logger)
	if _, err := c.Advance(ctx, jobID, result); err != nil {
		if errors.Is(err, ErrIllegalTransition) {
			logger.Warn("stale stage completion ignored",
				logging.String("target", string(result.Target)),
				logging.Error(err))
			return
		}
		logger.Error("record stage completion", logging.Error(err))
	}
}

func (c *Controller) recordFailure(ctx context.Context, jobID, stage string, cause error) {
	if _, err := c.Advance(ctx, jobID, job.FailureResult(cause)); err != nil {
		c.logger.Error("record stage failure",
			logging.String(logging.FieldJobID, jobID),
			logging.String(logging.FieldStage, stage),
			logging.Error(err))
	}
}

func (r AnalyzeRequest) validate() (string, error) {
	switch r.InputType {
	case job.InputZip:
		if r.ArchiveName == "" || len(r.Archive) == 0 {
			return "", fmt.Errorf("zip analysis requires an archive: %w", ErrPreconditionFailed)
		}
		return r.ArchiveName, nil
	case job.InputGitHub:
		if r.RepoURL == "" {
			return "", fmt.Errorf("github analysis requires a repository url: %w", ErrPreconditionFailed)
		}
		return r.RepoURL, nil
	default:
		return "", fmt.Errorf("unsupported input type %q: %w", r.InputType, ErrPreconditionFailed)
	}
}
