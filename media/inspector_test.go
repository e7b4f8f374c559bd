package media

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbeReport(t *testing.T) {
	t.Run("video with audio track", func(t *testing.T) {
		var report probeReport
		raw := `{"format":{"duration":"10.500000"},"streams":[{"codec_type":"video"},{"codec_type":"audio"}]}`
		require.NoError(t, json.Unmarshal([]byte(raw), &report))

		info, err := parseProbeReport(report)
		require.NoError(t, err)
		assert.InDelta(t, 10.5, info.Duration, 1e-9)
		assert.True(t, info.HasAudio)
		assert.True(t, info.HasVideo)
	})

	t.Run("video without audio track", func(t *testing.T) {
		var report probeReport
		raw := `{"format":{"duration":"3.2"},"streams":[{"codec_type":"video"}]}`
		require.NoError(t, json.Unmarshal([]byte(raw), &report))

		info, err := parseProbeReport(report)
		require.NoError(t, err)
		assert.False(t, info.HasAudio)
		assert.True(t, info.HasVideo)
	})

	t.Run("unparseable duration", func(t *testing.T) {
		var report probeReport
		raw := `{"format":{"duration":"N/A"},"streams":[]}`
		require.NoError(t, json.Unmarshal([]byte(raw), &report))

		_, err := parseProbeReport(report)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unparseable duration")
	})

	t.Run("negative duration", func(t *testing.T) {
		var report probeReport
		raw := `{"format":{"duration":"-1.0"},"streams":[]}`
		require.NoError(t, json.Unmarshal([]byte(raw), &report))

		_, err := parseProbeReport(report)
		assert.Error(t, err)
	})
}
