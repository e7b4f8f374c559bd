// narravid/config/config.go
package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	// External tool binaries and limits
	FFBin        string        `mapstructure:"FF_BIN"`
	FFProbeBin   string        `mapstructure:"FFPROBE_BIN"`
	FFTimeout    time.Duration `mapstructure:"FF_TIMEOUT"`
	FFGlobalArgs string        `mapstructure:"FF_GLOBAL_ARGS"`

	// Pipeline behavior
	RunTimeout           time.Duration `mapstructure:"RUN_TIMEOUT"`
	MaxConcurrency       int           `mapstructure:"MAX_CONCURRENCY"`
	MaxDescriptionLength int           `mapstructure:"MAX_DESCRIPTION_LENGTH"`
	AllowedVideoExts     []string      `mapstructure:"ALLOWED_VIDEO_EXTS"`
	SourceLanguage       string        `mapstructure:"SOURCE_LANGUAGE"`
	DurationTolerance    float64       `mapstructure:"DURATION_TOLERANCE"`
	MixPolicy            string        `mapstructure:"MIX_POLICY"`
	AudioBitrate         string        `mapstructure:"AUDIO_BITRATE"`

	// Storage
	DBPath              string        `mapstructure:"DB_PATH"`
	OutputDir           string        `mapstructure:"OUTPUT_DIR"`
	OutputLocalLifetime time.Duration `mapstructure:"OUTPUT_LOCAL_LIFETIME"`
	MaxInputSize        int64         `mapstructure:"MAX_INPUT_SIZE"`

	// Speech synthesis
	ProviderOrder  []string      `mapstructure:"TTS_PROVIDER_ORDER"`
	OpenAIAPIKey   string        `mapstructure:"OPENAI_API_KEY"`
	OpenAITTSModel string        `mapstructure:"OPENAI_TTS_MODEL"`
	OpenAITTSVoice string        `mapstructure:"OPENAI_TTS_VOICE"`
	GoogleTTSKey   string        `mapstructure:"GOOGLE_TTS_API_KEY"`
	GeminiAPIKey   string        `mapstructure:"GEMINI_API_KEY"`
	CacheTTL       time.Duration `mapstructure:"CACHE_TTL"`
	CacheSize      int           `mapstructure:"CACHE_SIZE"`
	CacheKeyLength int           `mapstructure:"CACHE_KEY_LENGTH"`

	// Admission control thresholds
	ThrottleCPU      float64 `mapstructure:"THROTTLE_CPU"`
	ThrottleFreeMem  int64   `mapstructure:"THROTTLE_FREEMEM"`
	ThrottleFreeDisk int64   `mapstructure:"THROTTLE_FREEDISK"`

	// HTTP surface
	AuthEnable bool   `mapstructure:"AUTH_ENABLE"`
	AuthKey    string `mapstructure:"AUTH_KEY"`
	Port       string `mapstructure:"PORT"`
	BaseURL    string `mapstructure:"BASE"`

	TempDir string
}

// stringToDurationHookFunc is a custom Viper hook for parsing Go's duration strings.
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		return time.ParseDuration(data.(string))
	}
}

// stringToByteSizeHookFunc is a custom Viper hook for parsing human-readable size strings.
func stringToByteSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Int64 {
			return data, nil
		}

		var size datasize.ByteSize
		err := size.UnmarshalText([]byte(data.(string)))
		if err != nil {
			// Not a valid size string, let other parsers handle it.
			return data, nil
		}

		return int64(size.Bytes()), nil
	}
}

func Load() (*Config, error) {
	vp := viper.New()

	// Set default values as strings, the hooks will handle them.
	vp.SetDefault("FF_BIN", "ffmpeg")
	vp.SetDefault("FFPROBE_BIN", "ffprobe")
	vp.SetDefault("FF_TIMEOUT", "5m")
	vp.SetDefault("FF_GLOBAL_ARGS", "-hide_banner -nostdin")
	vp.SetDefault("RUN_TIMEOUT", "20m")
	vp.SetDefault("MAX_CONCURRENCY", 2)
	vp.SetDefault("MAX_DESCRIPTION_LENGTH", 5000)
	vp.SetDefault("ALLOWED_VIDEO_EXTS", []string{"mp4", "avi", "mov", "mkv", "webm"})
	vp.SetDefault("SOURCE_LANGUAGE", "en")
	vp.SetDefault("DURATION_TOLERANCE", 0.1)
	vp.SetDefault("MIX_POLICY", "replace")
	vp.SetDefault("AUDIO_BITRATE", "192k")
	vp.SetDefault("DB_PATH", "narravid.db")
	vp.SetDefault("OUTPUT_DIR", "")
	vp.SetDefault("OUTPUT_LOCAL_LIFETIME", "24h")
	vp.SetDefault("MAX_INPUT_SIZE", "200MB")
	vp.SetDefault("TTS_PROVIDER_ORDER", []string{"openai", "google"})
	vp.SetDefault("OPENAI_API_KEY", "")
	vp.SetDefault("OPENAI_TTS_MODEL", "tts-1")
	vp.SetDefault("OPENAI_TTS_VOICE", "nova")
	vp.SetDefault("GOOGLE_TTS_API_KEY", "")
	vp.SetDefault("GEMINI_API_KEY", "")
	vp.SetDefault("CACHE_TTL", "1h")
	vp.SetDefault("CACHE_SIZE", 100)
	vp.SetDefault("CACHE_KEY_LENGTH", 50)
	vp.SetDefault("THROTTLE_CPU", 50.0)
	vp.SetDefault("THROTTLE_FREEMEM", "200MB")
	vp.SetDefault("THROTTLE_FREEDISK", "500MB")
	vp.SetDefault("AUTH_ENABLE", false)
	vp.SetDefault("AUTH_KEY", "")
	vp.SetDefault("PORT", "8080")
	vp.SetDefault("BASE", "")

	// Load from config file
	vp.SetConfigName("narravid_config")
	vp.SetConfigType("yaml")
	vp.AddConfigPath(".")
	vp.AddConfigPath("/etc/narravid/")

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Load from environment variables
	vp.SetEnvPrefix("NARRAVID")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	var cfg Config
	// Unmarshal the config, providing our custom composed hooks.
	// The order matters: the first hook that succeeds is used.
	err := vp.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			stringToByteSizeHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
