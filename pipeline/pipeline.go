// Package pipeline drives a narration job from intake to terminal state:
// validate, translate, synthesize, reconcile durations, mux, finalize.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"narravid/config"
	"narravid/media"
	"narravid/store"

	"github.com/lithammer/shortuuid/v4"
)

// Progress checkpoints written at each stage entry. A run that reaches a
// terminal state always lands on 100.
const (
	progressValidating      = 5
	progressTextProcessing  = 15
	progressTTSGeneration   = 35
	progressAudioProcessing = 65
	progressVideoMerging    = 85
)

// ValidationError is a user-fixable input problem found before any external
// call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// JobStore is the durable job record the pipeline writes through.
type JobStore interface {
	Get(id string) (*store.Job, error)
	SetStatus(id, status string, progress int) error
	Complete(id, outputPath string) error
	Fail(id, message string) error
}

// Synthesizer produces narration audio, translating first when needed.
type Synthesizer interface {
	Generate(ctx context.Context, text, languageCode string) ([]byte, error)
}

// Inspector reports a media file's duration and stream metadata.
type Inspector interface {
	Inspect(ctx context.Context, path string) (media.Info, error)
}

// Reconciler aligns narration duration to the video duration.
type Reconciler interface {
	Reconcile(ctx context.Context, audioPath string, videoDuration float64) (string, error)
}

// Muxer combines the video with the reconciled narration track.
type Muxer interface {
	Mux(ctx context.Context, videoPath, audioPath, outputPath string, policy media.MixPolicy, sourceHasAudio bool) (string, error)
}

// runState carries everything a later stage may need, constructed once per
// run and threaded through each stage.
type runState struct {
	jobID          string
	inputPath      string
	description    string
	targetLanguage string

	processedText string
	videoInfo     media.Info
	audioPath     string
	outputPath    string

	tempFiles []string
}

// Pipeline executes the job state machine. One Pipeline value serves all
// runs; per-run state lives in runState.
type Pipeline struct {
	store      JobStore
	synth      Synthesizer
	inspector  Inspector
	reconciler Reconciler
	muxer      Muxer

	workDir              string
	outputDir            string
	allowedExts          map[string]bool
	maxDescriptionLength int
	mixPolicy            media.MixPolicy
}

func New(cfg *config.Config, js JobStore, synth Synthesizer, inspector Inspector, reconciler Reconciler, muxer Muxer) (*Pipeline, error) {
	policy, err := media.ParseMixPolicy(cfg.MixPolicy)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(cfg.AllowedVideoExts))
	for _, ext := range cfg.AllowedVideoExts {
		allowed["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	return &Pipeline{
		store:                js,
		synth:                synth,
		inspector:            inspector,
		reconciler:           reconciler,
		muxer:                muxer,
		workDir:              cfg.TempDir,
		outputDir:            cfg.OutputDir,
		allowedExts:          allowed,
		maxDescriptionLength: cfg.MaxDescriptionLength,
		mixPolicy:            policy,
	}, nil
}

// Run advances the job through every stage and finalizes it exactly once.
// Temporary narration artifacts are released on success and failure alike.
func (p *Pipeline) Run(ctx context.Context, job *store.Job) {
	st := &runState{
		jobID:          job.ID,
		inputPath:      job.InputPath,
		description:    job.Description,
		targetLanguage: job.TargetLanguage,
	}
	defer p.releaseTempFiles(st)

	if err := p.execute(ctx, st); err != nil {
		log.Printf("Job %s failed: %v", st.jobID, err)
		if storeErr := p.store.Fail(st.jobID, err.Error()); storeErr != nil {
			log.Printf("Could not record failure for job %s: %v", st.jobID, storeErr)
		}
		return
	}

	if err := p.store.Complete(st.jobID, st.outputPath); err != nil {
		log.Printf("Could not record completion for job %s: %v", st.jobID, err)
		return
	}
	log.Printf("Job %s completed: %s", st.jobID, st.outputPath)
}

// execute runs the stages in order. Each stage's store write completes
// before the next stage starts, so observers see monotonically advancing
// status. The first error short-circuits to finalization.
func (p *Pipeline) execute(ctx context.Context, st *runState) error {
	type stage struct {
		status   string
		progress int
		run      func(context.Context, *runState) error
	}

	stages := []stage{
		{store.StatusValidating, progressValidating, p.validate},
		{store.StatusTextProcessing, progressTextProcessing, p.processText},
		{store.StatusTTSGeneration, progressTTSGeneration, p.generateAudio},
		{store.StatusAudioProcessing, progressAudioProcessing, p.processAudio},
		{store.StatusVideoMerging, progressVideoMerging, p.mergeVideo},
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run aborted: %w", err)
		}
		if err := p.store.SetStatus(st.jobID, s.status, s.progress); err != nil {
			return fmt.Errorf("could not persist %s transition: %w", s.status, err)
		}
		if err := s.run(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) validate(_ context.Context, st *runState) error {
	if _, err := os.Stat(st.inputPath); os.IsNotExist(err) {
		return &ValidationError{Message: "video file does not exist"}
	}

	ext := strings.ToLower(filepath.Ext(st.inputPath))
	if !p.allowedExts[ext] {
		return &ValidationError{Message: fmt.Sprintf("unsupported video format: %s", ext)}
	}

	if strings.TrimSpace(st.description) == "" {
		return &ValidationError{Message: "description text is required"}
	}
	if len(st.description) > p.maxDescriptionLength {
		return &ValidationError{Message: fmt.Sprintf(
			"description text exceeds maximum length of %d characters", p.maxDescriptionLength)}
	}

	if st.targetLanguage == "" {
		return &ValidationError{Message: "target language is required"}
	}
	return nil
}

// processText normalizes whitespace. Translation itself is the synthesis
// manager's pre-step, not duplicated here.
func (p *Pipeline) processText(_ context.Context, st *runState) error {
	st.processedText = strings.Join(strings.Fields(st.description), " ")
	return nil
}

func (p *Pipeline) generateAudio(ctx context.Context, st *runState) error {
	audio, err := p.synth.Generate(ctx, st.processedText, st.targetLanguage)
	if err != nil {
		return err
	}

	audioPath := filepath.Join(p.workDir, fmt.Sprintf("%s_narration.mp3", shortuuid.New()))
	if err := os.WriteFile(audioPath, audio, 0o644); err != nil {
		return fmt.Errorf("could not write narration audio: %w", err)
	}
	st.tempFiles = append(st.tempFiles, audioPath)
	st.audioPath = audioPath
	return nil
}

func (p *Pipeline) processAudio(ctx context.Context, st *runState) error {
	info, err := p.inspector.Inspect(ctx, st.inputPath)
	if err != nil {
		return err
	}
	st.videoInfo = info

	adjustedPath, err := p.reconciler.Reconcile(ctx, st.audioPath, info.Duration)
	if err != nil {
		return err
	}
	if adjustedPath != st.audioPath {
		st.tempFiles = append(st.tempFiles, adjustedPath)
		st.audioPath = adjustedPath
	}
	return nil
}

func (p *Pipeline) mergeVideo(ctx context.Context, st *runState) error {
	outputPath := filepath.Join(p.outputDir, fmt.Sprintf("%s_narrated.mp4", st.jobID))
	merged, err := p.muxer.Mux(ctx, st.inputPath, st.audioPath, outputPath, p.mixPolicy, st.videoInfo.HasAudio)
	if err != nil {
		return err
	}
	st.outputPath = merged
	return nil
}

func (p *Pipeline) releaseTempFiles(st *runState) {
	for _, f := range st.tempFiles {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			log.Printf("Failed to clean up temp file %s: %v", f, err)
		}
	}
}
