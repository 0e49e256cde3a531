package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// デフォルト値の定義
const (
	DefaultCount          = 10
	DefaultOutputDir      = "nft_output"
	DefaultBackend        = BackendSDWebUI
	DefaultSteps          = 25
	DefaultGuidanceScale  = 7.5
	DefaultImageSize      = 1024
	DefaultAspectRatio    = "1:1"
	DefaultSDWebUIURL     = "http://127.0.0.1:7860"
	DefaultImageModel     = "gemini-2.5-flash-image"
	DefaultHTTPTimeout    = 5 * time.Minute
	DefaultCacheTTL       = 30 * time.Minute
	DefaultCacheCleanup   = 1 * time.Hour
	DefaultLogLevel       = "info"
	DefaultPreviewCount   = 5
	BackendSDWebUI        = "sdwebui"
	BackendGemini         = "gemini"
	envFileName           = ".env"
	maxRecommendedAttempt = 1000
)

// Config は環境変数 (および .env) から読み込むアプリケーション設定です。
// 既定値は defaultConfig が持ち、CLI フラグが明示的に指定された場合はそちらが優先されます。
type Config struct {
	OutputDir         string        `env:"NFT_OUTPUT_DIR"`
	TraitsFile        string        `env:"NFT_TRAITS_FILE"`
	Backend           string        `env:"IMAGE_BACKEND"`
	Steps             int           `env:"NFT_INFERENCE_STEPS"`
	GuidanceScale     float64       `env:"NFT_GUIDANCE_SCALE"`
	StyleReferenceURL string        `env:"NFT_STYLE_REFERENCE_URL"`
	MaxAttempts       int           `env:"NFT_MAX_ATTEMPTS"`
	RequestInterval   time.Duration `env:"NFT_REQUEST_INTERVAL"`

	ImageWidth  int    `env:"NFT_IMAGE_WIDTH"`
	ImageHeight int    `env:"NFT_IMAGE_HEIGHT"`
	AspectRatio string `env:"NFT_ASPECT_RATIO"`

	SDWebUIURL string `env:"SD_WEBUI_URL"`
	SDSampler  string `env:"SD_SAMPLER"`

	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	GeminiImageModel string `env:"GEMINI_IMAGE_MODEL"`

	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT"`
	LogLevel    string        `env:"LOG_LEVEL"`
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータです。
type GenerateOptions struct {
	Count int    // --count
	Seed  *int64 // --seed (未指定なら nil)
}

// LoadConfig は .env を読み込んだ上で環境変数から設定を構築します。
// .env が無いことはエラーにしません。
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(envFileName); err != nil {
		slog.Debug(".env を読み込みませんでした。環境変数のみを使用します", "error", err)
	}
	return Parse()
}

// defaultConfig は環境変数が未設定または空のときに残る値です。
func defaultConfig() Config {
	return Config{
		OutputDir:        DefaultOutputDir,
		Backend:          DefaultBackend,
		Steps:            DefaultSteps,
		GuidanceScale:    DefaultGuidanceScale,
		ImageWidth:       DefaultImageSize,
		ImageHeight:      DefaultImageSize,
		AspectRatio:      DefaultAspectRatio,
		SDWebUIURL:       DefaultSDWebUIURL,
		GeminiImageModel: DefaultImageModel,
		HTTPTimeout:      DefaultHTTPTimeout,
		LogLevel:         DefaultLogLevel,
	}
}

// Parse は現在の環境変数から設定を構築します。
// caarlos0/env は空の値ではフィールドを上書きしないため、defaultConfig の値がそのまま残ります。
func Parse() (*Config, error) {
	cfg := defaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("環境変数の解析に失敗しました: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	return &cfg, nil
}

// Validate は生成開始前に設定の整合性を確認します。
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSDWebUI:
		if strings.TrimSpace(c.SDWebUIURL) == "" {
			return fmt.Errorf("SD_WEBUI_URL が空です")
		}
	case BackendGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("環境変数 GEMINI_API_KEY が設定されていません。gemini バックエンドには必須です")
		}
		if c.GeminiImageModel == "" {
			return fmt.Errorf("GEMINI_IMAGE_MODEL が空です")
		}
	default:
		return fmt.Errorf("未知のバックエンドです: %q (%s または %s を指定してください)", c.Backend, BackendSDWebUI, BackendGemini)
	}

	if c.Steps <= 0 {
		return fmt.Errorf("推論ステップ数は正の整数である必要があります: %d", c.Steps)
	}
	if c.GuidanceScale <= 0 {
		return fmt.Errorf("guidance scale は正の値である必要があります: %v", c.GuidanceScale)
	}
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		return fmt.Errorf("画像サイズは正の整数である必要があります: %dx%d", c.ImageWidth, c.ImageHeight)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("max attempts は 0 以上である必要があります: %d", c.MaxAttempts)
	}
	if c.RequestInterval < 0 {
		return fmt.Errorf("request interval は 0 以上である必要があります: %s", c.RequestInterval)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT は正の値である必要があります: %s", c.HTTPTimeout)
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("出力ディレクトリが空です")
	}
	if strings.HasPrefix(c.OutputDir, "s3://") {
		return fmt.Errorf("s3:// の出力先には対応していません: %s", c.OutputDir)
	}
	if c.MaxAttempts > maxRecommendedAttempt {
		slog.Warn("max attempts が非常に大きな値です", "max_attempts", c.MaxAttempts)
	}
	return nil
}

// SlogLevel は LOG_LEVEL を slog.Level に変換します。不明な値は Info として扱います。
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}
