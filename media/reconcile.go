package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"narravid/config"

	"github.com/lithammer/shortuuid/v4"
)

type adjustment int

const (
	adjustNone adjustment = iota
	adjustTrim
	adjustPad
)

// decideAdjustment is the pure core of reconciliation: given both durations
// and a tolerance, it returns the operation and the second count it applies to.
// Trim cuts the audio at the video duration; pad appends that much silence.
func decideAdjustment(audioDuration, videoDuration, tolerance float64) (adjustment, float64) {
	delta := videoDuration - audioDuration
	if delta < tolerance && delta > -tolerance {
		return adjustNone, 0
	}
	if delta < 0 {
		return adjustTrim, videoDuration
	}
	return adjustPad, delta
}

// Reconciler aligns a narration track's duration to the video's duration.
type Reconciler struct {
	inspector *Inspector
	bin       string
	timeout   time.Duration
	tolerance float64
}

func NewReconciler(cfg *config.Config, inspector *Inspector) (*Reconciler, error) {
	if _, err := exec.LookPath(cfg.FFBin); err != nil {
		return nil, fmt.Errorf("ffmpeg binary not found or not in PATH: %s", cfg.FFBin)
	}
	return &Reconciler{
		inspector: inspector,
		bin:       cfg.FFBin,
		timeout:   cfg.FFTimeout,
		tolerance: cfg.DurationTolerance,
	}, nil
}

// Reconcile returns a path to audio whose duration matches videoDuration
// within the tolerance. Within tolerance the original path comes back
// untouched; otherwise a new adjusted file is written next to it and the
// caller owns both.
func (r *Reconciler) Reconcile(ctx context.Context, audioPath string, videoDuration float64) (string, error) {
	audioDuration, err := r.inspector.Duration(ctx, audioPath)
	if err != nil {
		return "", err
	}

	op, amount := decideAdjustment(audioDuration, videoDuration, r.tolerance)
	if op == adjustNone {
		return audioPath, nil
	}

	adjustedPath := filepath.Join(filepath.Dir(audioPath),
		fmt.Sprintf("%s_adjusted.mp3", shortuuid.New()))

	var args []string
	switch op {
	case adjustTrim:
		args = []string{"-y", "-i", audioPath, "-t", formatSeconds(amount), adjustedPath}
	case adjustPad:
		args = []string{"-y", "-i", audioPath, "-af",
			"apad=pad_dur=" + formatSeconds(amount), adjustedPath}
	}

	output, err := runTool(ctx, r.timeout, r.bin, args)
	if err != nil {
		os.Remove(adjustedPath)
		return "", &MuxError{Output: output, Err: fmt.Errorf("audio adjustment failed: %w", err)}
	}
	return adjustedPath, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
