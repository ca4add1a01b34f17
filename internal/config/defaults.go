package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultAPIBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	DefaultVideoModel   = "veo-3.1-generate-preview"
	DefaultImageModel   = "gemini-2.5-flash-image"
	DefaultMediaBaseURL = "https://app.lc.test"

	DefaultImageBasePath  = "pub/media"
	DefaultImageOutputDir = "genai"

	ImageBackendSDK  = "sdk"
	ImageBackendHTTP = "http"
)

var (
	ErrConfigNotLoaded     = errors.New("config not loaded")
	ErrConfigAlreadyLoaded = errors.New("config already loaded")
	ErrAPIKeyMissing       = errors.New("API key is required. Use --api-key or set GEMINI_API_KEY environment variable.")
)

func SetDefaults() {
	viper.SetDefault("environment", "dev")
	viper.SetDefault("base_path", ".")

	viper.SetDefault("gemini.api_base_url", DefaultAPIBaseURL)
	viper.SetDefault("gemini.video_model", DefaultVideoModel)
	viper.SetDefault("gemini.image_model", DefaultImageModel)

	viper.SetDefault("video.max_wait", 300*time.Second)
	viper.SetDefault("video.poll_interval", 10*time.Second)
	viper.SetDefault("video.max_download_bytes", int64(512<<20))
	viper.SetDefault("video.concurrency", 2)

	viper.SetDefault("image.backend", ImageBackendSDK)
	viper.SetDefault("image.base_path", DefaultImageBasePath)
	viper.SetDefault("image.output_dir", DefaultImageOutputDir)
	viper.SetDefault("image.max_wait", 120*time.Second)
	viper.SetDefault("image.poll_interval", 2*time.Second)
	viper.SetDefault("image.max_input_dimension", 0)

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.debug", false)

	viper.SetDefault("mock.host", "127.0.0.1")
	viper.SetDefault("mock.port", 8080)
	viper.SetDefault("mock.complete_after", 5*time.Second)
}
