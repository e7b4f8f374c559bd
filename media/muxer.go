package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"narravid/config"
)

// MixPolicy decides how narration combines with the video's own audio track.
type MixPolicy string

const (
	// PolicyReplace keeps only the narration.
	PolicyReplace MixPolicy = "replace"
	// PolicyMix sums narration with the original audio, clipped to video duration.
	PolicyMix MixPolicy = "mix"
)

// ParseMixPolicy maps a config string to a MixPolicy.
func ParseMixPolicy(s string) (MixPolicy, error) {
	switch MixPolicy(s) {
	case PolicyReplace, PolicyMix:
		return MixPolicy(s), nil
	}
	return "", fmt.Errorf("unknown mix policy %q", s)
}

// Muxer combines a video stream with a narration audio stream using ffmpeg.
// The video stream is copied unmodified; audio is encoded to AAC.
type Muxer struct {
	bin        string
	timeout    time.Duration
	globalArgs []string
	bitrate    string
}

func NewMuxer(cfg *config.Config) (*Muxer, error) {
	if _, err := exec.LookPath(cfg.FFBin); err != nil {
		return nil, fmt.Errorf("ffmpeg binary not found or not in PATH: %s", cfg.FFBin)
	}
	globalArgs, err := SplitArgs(cfg.FFGlobalArgs)
	if err != nil {
		return nil, err
	}
	return &Muxer{
		bin:        cfg.FFBin,
		timeout:    cfg.FFTimeout,
		globalArgs: globalArgs,
		bitrate:    cfg.AudioBitrate,
	}, nil
}

// buildMuxArgs constructs the ffmpeg argument list for a mux invocation.
// sourceHasAudio gates the MIX filter: a source without an audio track has
// nothing to mix, so MIX degrades to REPLACE.
func buildMuxArgs(videoPath, audioPath, outputPath string, policy MixPolicy, sourceHasAudio bool, bitrate string) []string {
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
	}

	if policy == PolicyMix && sourceHasAudio {
		args = append(args,
			"-filter_complex", "[0:a][1:a]amix=inputs=2:duration=first[aout]",
			"-map", "0:v:0",
			"-map", "[aout]",
		)
	} else {
		args = append(args,
			"-map", "0:v:0",
			"-map", "1:a:0",
		)
	}

	args = append(args,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", bitrate,
		"-shortest",
		outputPath,
	)
	return args
}

// Mux writes the combined file to a temporary sibling path first and renames
// it into place on success, so readers never observe a partial output.
func (m *Muxer) Mux(ctx context.Context, videoPath, audioPath, outputPath string, policy MixPolicy, sourceHasAudio bool) (string, error) {
	partialPath := outputPath + ".partial.mp4"

	args := append(append([]string{}, m.globalArgs...),
		buildMuxArgs(videoPath, audioPath, partialPath, policy, sourceHasAudio, m.bitrate)...)

	output, err := runTool(ctx, m.timeout, m.bin, args)
	if err != nil {
		os.Remove(partialPath)
		return "", &MuxError{Output: output, Err: fmt.Errorf("ffmpeg execution failed: %w", err)}
	}

	if err := os.Rename(partialPath, outputPath); err != nil {
		os.Remove(partialPath)
		return "", &MuxError{Output: output, Err: err}
	}
	return outputPath, nil
}
