package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/classifier"
	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/events"
	"github.com/spec-kit/dispatch-service/internal/observability"
	"github.com/spec-kit/dispatch-service/internal/repository"
)

// Classifier produces a verdict for a description; it never fails.
type Classifier interface {
	AnalyzeCategory(ctx context.Context, categoryID, description string) classifier.Result
}

// NotificationSink receives safety advice. Delivery is best effort.
type NotificationSink interface {
	PublishSafetyAdvice(ctx context.Context, advice events.SafetyAdvicePayload) error
}

// SweepReport summarizes one pass over the awaiting-analysis queue.
type SweepReport struct {
	Fetched  int  `json:"fetched"`
	Analyzed int  `json:"analyzed"`
	Skipped  int  `json:"skipped"`
	Failed   int  `json:"failed"`
	Aborted  bool `json:"aborted"`
}

// DispatcherOptions tunes the polling loop.
type DispatcherOptions struct {
	PollInterval time.Duration
	BatchSize    int
	Concurrency  int
}

// AnalysisDispatcher polls requests awaiting analysis, classifies them and records the result.
type AnalysisDispatcher struct {
	requests   repository.ServiceRequestRepository
	recorder   repository.AnalysisRecorder
	classifier Classifier
	sink       NotificationSink
	opts       DispatcherOptions
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// AnalysisDependencies bundles collaborators for the dispatcher.
type AnalysisDependencies struct {
	Requests   repository.ServiceRequestRepository
	Recorder   repository.AnalysisRecorder
	Classifier Classifier
	Sink       NotificationSink
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewAnalysisDispatcher constructs the dispatcher, filling unset options with defaults.
func NewAnalysisDispatcher(deps AnalysisDependencies, opts DispatcherOptions) *AnalysisDispatcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Concurrency <= 0 || opts.Concurrency > opts.BatchSize {
		opts.Concurrency = opts.BatchSize
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisDispatcher{
		requests:   deps.Requests,
		recorder:   deps.Recorder,
		classifier: deps.Classifier,
		sink:       deps.Sink,
		opts:       opts,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// Run sweeps immediately and then once per poll interval until ctx is done.
// Sweeps never overlap.
func (d *AnalysisDispatcher) Run(ctx context.Context) {
	d.logger.Info("analysis dispatcher started",
		zap.Duration("poll_interval", d.opts.PollInterval),
		zap.Int("batch_size", d.opts.BatchSize),
		zap.Int("concurrency", d.opts.Concurrency))

	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	for {
		d.Sweep(ctx)
		select {
		case <-ctx.Done():
			d.logger.Info("analysis dispatcher stopped")
			return
		case <-ticker.C:
		}
	}
}

type outcome int

const (
	outcomeNotStarted outcome = iota
	outcomeAnalyzed
	outcomeSkipped
	outcomeFailed
)

// Sweep processes one batch. Errors are logged per request and never returned.
func (d *AnalysisDispatcher) Sweep(ctx context.Context) SweepReport {
	var report SweepReport
	if ctx.Err() != nil {
		report.Aborted = true
		return report
	}

	batch, err := d.requests.ListAwaitingAnalysis(ctx, d.opts.BatchSize)
	if err != nil {
		d.logger.Error("list awaiting analysis failed", zap.Error(err))
		report.Aborted = ctx.Err() != nil
		d.metrics.RecordSweep(true, 0, 0, 0)
		return report
	}
	report.Fetched = len(batch)

	outcomes := make([]outcome, len(batch))
	sem := make(chan struct{}, d.opts.Concurrency)
	var wg sync.WaitGroup

dispatch:
	for i, req := range batch {
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			<-sem
			break dispatch
		}

		wg.Add(1)
		go func(i int, req *domain.ServiceRequest) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = d.process(ctx, req)
		}(i, req)
	}
	wg.Wait()

	for _, o := range outcomes {
		switch o {
		case outcomeAnalyzed:
			report.Analyzed++
		case outcomeSkipped:
			report.Skipped++
		case outcomeFailed:
			report.Failed++
		case outcomeNotStarted:
			report.Aborted = true
		}
	}
	d.metrics.RecordSweep(report.Aborted, report.Analyzed, report.Skipped, report.Failed)
	if report.Fetched > 0 {
		d.logger.Info("analysis sweep finished",
			zap.Int("fetched", report.Fetched),
			zap.Int("analyzed", report.Analyzed),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed),
			zap.Bool("aborted", report.Aborted))
	}
	return report
}

// process classifies one request and commits the analysis with its transition.
// A panic is contained to the request.
func (d *AnalysisDispatcher) process(ctx context.Context, req *domain.ServiceRequest) (result outcome) {
	log := d.logger.With(zap.String("request_id", req.ID()))
	defer func() {
		if r := recover(); r != nil {
			log.Error("analysis panicked", zap.Any("panic", r))
			result = outcomeFailed
		}
	}()

	if strings.TrimSpace(req.Description()) == "" {
		log.Warn("skipping request with blank description")
		return outcomeSkipped
	}

	verdict := d.classifier.AnalyzeCategory(ctx, req.CategoryID(), req.Description())
	if ctx.Err() != nil {
		log.Info("analysis abandoned on shutdown")
		return outcomeFailed
	}

	analysis, err := domain.NewServiceAnalysis(domain.NewServiceAnalysisInput{
		ServiceRequestID: req.ID(),
		ComplexityLevel:  domain.ClampLevel(verdict.RequiredSkillLevel),
		UrgencyLevel:     domain.ClampLevel(verdict.UrgencyLevel),
		SafetyAdvice:     verdict.SafetyAdvice,
		Summary:          verdict.Summary,
		RiskExplanation:  verdict.RiskExplanation,
	})
	if err != nil {
		log.Error("building analysis failed", zap.Error(err))
		return outcomeFailed
	}
	if err := req.MarkAsAnalyzed(analysis.UrgencyLevel); err != nil {
		log.Error("transition rejected", zap.Error(err))
		return outcomeFailed
	}

	if err := d.recorder.RecordAnalysis(ctx, req, analysis); err != nil {
		switch {
		case errors.Is(err, repository.ErrAnalysisExists), errors.Is(err, repository.ErrVersionConflict):
			log.Info("request changed concurrently; leaving it", zap.Error(err))
		default:
			log.Error("recording analysis failed", zap.Error(err))
		}
		return outcomeFailed
	}
	log.Info("request analyzed",
		zap.String("status", string(req.Status())),
		zap.Int("urgency_level", analysis.UrgencyLevel),
		zap.Int("complexity_level", analysis.ComplexityLevel),
		zap.Bool("fallback", verdict.Fallback))

	if analysis.SafetyAdvice != nil && d.sink != nil {
		advice := events.SafetyAdvicePayload{
			ServiceRequestID: req.ID(),
			SafetyAdvice:     *analysis.SafetyAdvice,
			UrgencyLevel:     analysis.UrgencyLevel,
			IsCritical:       analysis.IsCritical(),
		}
		if err := d.sink.PublishSafetyAdvice(ctx, advice); err != nil {
			log.Warn("safety advice notification failed", zap.Error(err))
		}
	}
	return outcomeAnalyzed
}
