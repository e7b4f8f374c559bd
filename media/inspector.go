package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"narravid/config"
)

// Info is what the probing tool reports about a media file.
type Info struct {
	Duration float64
	HasAudio bool
	HasVideo bool
}

// Inspector reports duration and stream metadata via ffprobe.
type Inspector struct {
	bin     string
	timeout time.Duration
}

func NewInspector(cfg *config.Config) (*Inspector, error) {
	if _, err := exec.LookPath(cfg.FFProbeBin); err != nil {
		return nil, fmt.Errorf("ffprobe binary not found or not in PATH: %s", cfg.FFProbeBin)
	}
	return &Inspector{bin: cfg.FFProbeBin, timeout: cfg.FFTimeout}, nil
}

// Duration returns the file's duration in seconds. A bad or missing file is
// not transient, so there are no retries.
func (i *Inspector) Duration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	}

	output, err := runTool(ctx, i.timeout, i.bin, args)
	if err != nil {
		return 0, &InspectionError{Path: path, Output: output, Err: err}
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(output), 64)
	if err != nil {
		return 0, &InspectionError{Path: path, Output: output,
			Err: fmt.Errorf("unparseable duration %q: %w", strings.TrimSpace(output), err)}
	}
	if duration < 0 {
		return 0, &InspectionError{Path: path, Output: output,
			Err: fmt.Errorf("negative duration %f", duration)}
	}
	return duration, nil
}

type probeReport struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
}

// Inspect returns duration plus stream metadata in one probe call.
func (i *Inspector) Inspect(ctx context.Context, path string) (Info, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	output, err := runTool(ctx, i.timeout, i.bin, args)
	if err != nil {
		return Info{}, &InspectionError{Path: path, Output: output, Err: err}
	}

	var report probeReport
	if err := json.Unmarshal([]byte(output), &report); err != nil {
		return Info{}, &InspectionError{Path: path, Output: output, Err: err}
	}

	info, err := parseProbeReport(report)
	if err != nil {
		return Info{}, &InspectionError{Path: path, Output: output, Err: err}
	}
	return info, nil
}

func parseProbeReport(report probeReport) (Info, error) {
	duration, err := strconv.ParseFloat(strings.TrimSpace(report.Format.Duration), 64)
	if err != nil {
		return Info{}, fmt.Errorf("unparseable duration %q: %w", report.Format.Duration, err)
	}
	if duration < 0 {
		return Info{}, fmt.Errorf("negative duration %f", duration)
	}

	info := Info{Duration: duration}
	for _, s := range report.Streams {
		switch s.CodecType {
		case "audio":
			info.HasAudio = true
		case "video":
			info.HasVideo = true
		}
	}
	return info, nil
}
