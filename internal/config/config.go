package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/genaker/agento/internal/utils/pathutil"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const agentoPrefix = "AGENTO"

type Config struct {
	Environment string        `mapstructure:"environment"`
	BasePath    string        `mapstructure:"base_path"`
	Verbose     bool          `mapstructure:"verbose"`
	Gemini      *GeminiConfig `mapstructure:"gemini"`
	Media       *MediaConfig  `mapstructure:"media"`
	Video       *VideoConfig  `mapstructure:"video"`
	Image       *ImageConfig  `mapstructure:"image"`
	Server      *ServerConfig `mapstructure:"server"`
	Mock        *MockConfig   `mapstructure:"mock"`
	S3          *S3Config     `mapstructure:"s3"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api_key"`
	APIBaseURL string `mapstructure:"api_base_url"`
	VideoModel string `mapstructure:"video_model"`
	ImageModel string `mapstructure:"image_model"`
}

type MediaConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type VideoConfig struct {
	MaxWait          time.Duration `mapstructure:"max_wait"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	MaxDownloadBytes int64         `mapstructure:"max_download_bytes"`
	Concurrency      int           `mapstructure:"concurrency"`
}

type ImageConfig struct {
	Backend           string        `mapstructure:"backend"`
	BasePath          string        `mapstructure:"base_path"`
	OutputDir         string        `mapstructure:"output_dir"`
	MaxWait           time.Duration `mapstructure:"max_wait"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	MaxInputDimension int           `mapstructure:"max_input_dimension"`
}

type ServerConfig struct {
	Host  string `mapstructure:"host"`
	Port  int    `mapstructure:"port"`
	Debug bool   `mapstructure:"debug"`
}

type MockConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	CompleteAfter time.Duration `mapstructure:"complete_after"`
}

type S3Config struct {
	EndpointURL  string `mapstructure:"endpoint_url"`
	Folder       string `mapstructure:"folder"`
	Region       string `mapstructure:"region_name"`
	Bucket       string `mapstructure:"bucket_name"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	PublicURL    string `mapstructure:"public_url"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

var config *Config

// BindEnvs wires config keys to their environment variables. Keys with a
// well-known legacy name accept it as well as the AGENTO_ prefixed form.
func BindEnvs() {
	viper.SetEnvPrefix(agentoPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(
		`-`, `_`,
		`.`, `_`,
	))
	viper.AutomaticEnv()

	viper.BindEnv("environment")
	viper.BindEnv("verbose")
	viper.BindEnv("base_path", "AGENTO_BASE_PATH", "BASE_PATH")

	viper.BindEnv("gemini.api_key", "AGENTO_GEMINI_API_KEY", "GEMINI_API_KEY")
	viper.BindEnv("gemini.api_base_url", "AGENTO_GEMINI_API_BASE_URL", "GOOGLE_API_DOMAIN")
	viper.BindEnv("gemini.video_model")
	viper.BindEnv("gemini.image_model", "AGENTO_GEMINI_IMAGE_MODEL", "MODEL_NAME")

	viper.BindEnv("media.base_url", "AGENTO_MEDIA_BASE_URL", "MAGENTO_BASE_URL", "BASE_URL")

	viper.BindEnv("video.max_wait")
	viper.BindEnv("video.poll_interval")
	viper.BindEnv("video.max_download_bytes")
	viper.BindEnv("video.concurrency")

	viper.BindEnv("image.backend")
	viper.BindEnv("image.base_path")
	viper.BindEnv("image.output_dir")
	viper.BindEnv("image.max_wait")
	viper.BindEnv("image.poll_interval")
	viper.BindEnv("image.max_input_dimension")

	viper.BindEnv("server.host", "AGENTO_SERVER_HOST", "HOST")
	viper.BindEnv("server.port", "AGENTO_SERVER_PORT", "PORT")
	viper.BindEnv("server.debug", "AGENTO_SERVER_DEBUG", "DEBUG")

	viper.BindEnv("mock.host")
	viper.BindEnv("mock.port")
	viper.BindEnv("mock.complete_after")

	viper.BindEnv("s3.endpoint_url")
	viper.BindEnv("s3.region_name")
	viper.BindEnv("s3.bucket_name")
	viper.BindEnv("s3.access_key")
	viper.BindEnv("s3.secret_key")
	viper.BindEnv("s3.folder")
	viper.BindEnv("s3.public_url")
	viper.BindEnv("s3.use_path_style")
}

// LoadEnvAndConfigFiles loads the optional .env and YAML config files named by
// the env_file and config_file keys, then unmarshals the result.
func LoadEnvAndConfigFiles() error {
	envFile := viper.GetString("env_file")
	if envFile == "" {
		if _, err := os.Stat(".env"); err == nil {
			envFile = ".env"
		}
	}

	if envFile != "" {
		envFile, err := pathutil.ExpandPath(envFile)
		if err != nil {
			return fmt.Errorf("failed to expand env file path: %w", err)
		}

		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	configFile := viper.GetString("config_file")
	if configFile != "" {
		configFile, err := pathutil.ExpandPath(configFile)
		if err != nil {
			return fmt.Errorf("failed to expand config file path: %w", err)
		}

		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config: %w", err)
		}
	}

	return LoadConfig(true)
}

func LoadConfig(reload bool) error {
	if config != nil && !reload {
		return ErrConfigAlreadyLoaded
	}

	SetDefaults()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.finalize(os.Getenv); err != nil {
		return err
	}

	config = cfg
	return nil
}

func (cfg *Config) finalize(lookup func(string) string) error {
	basePath, err := pathutil.ExpandPath(cfg.BasePath)
	if err != nil {
		return fmt.Errorf("failed to expand base path: %w", err)
	}
	if basePath == "" {
		basePath = "."
	}
	cfg.BasePath = basePath

	if cfg.Media == nil {
		cfg.Media = &MediaConfig{}
	}
	cfg.Media.BaseURL = ResolveMediaBaseURL(cfg.Media.BaseURL, lookup)

	if cfg.Gemini != nil {
		cfg.Gemini.APIBaseURL = strings.TrimRight(cfg.Gemini.APIBaseURL, "/")
	}

	if cfg.S3 != nil && cfg.S3.Bucket == "" {
		cfg.S3 = nil
	}

	return nil
}

// ResolveMediaBaseURL picks the public base URL used to build media links.
// An explicit value wins; otherwise HTTP_HOST or SERVER_NAME are used, with
// HTTPS=on selecting the https scheme.
func ResolveMediaBaseURL(explicit string, lookup func(string) string) string {
	if explicit != "" {
		base := strings.ReplaceAll(strings.TrimRight(explicit, "/")+"/", "/default/", "/")
		return strings.TrimRight(base, "/")
	}

	host := lookup("HTTP_HOST")
	if host == "" {
		host = lookup("SERVER_NAME")
	}
	if host != "" {
		scheme := "http"
		if lookup("HTTPS") == "on" {
			scheme = "https"
		}
		return fmt.Sprintf("%s://%s", scheme, host)
	}

	return DefaultMediaBaseURL
}

func GetConfig() (*Config, error) {
	if config == nil {
		return nil, ErrConfigNotLoaded
	}

	return config, nil
}

func MustGetConfig() *Config {
	cfg, err := GetConfig()
	if err != nil {
		panic(err)
	}

	return cfg
}
