package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/nft-forge/internal/config"
	"github.com/shouni/nft-forge/pkg/generator"
	"github.com/shouni/nft-forge/pkg/prompt"
	"github.com/shouni/nft-forge/pkg/publisher"
	"github.com/shouni/nft-forge/pkg/runner"
	"github.com/shouni/nft-forge/pkg/sampler"
	"github.com/shouni/nft-forge/pkg/traits"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// generationApp は 1 回の生成実行に必要な部品一式です。
type generationApp struct {
	driver *runner.Driver

	// assets はスタイル参照画像を File API に登録した場合のみ設定されます。
	assets   generator.AssetManager
	styleRef string
	storage  *storage
}

// Close は File API に登録したスタイル参照画像を削除し、ストレージのクライアントを解放します。
func (a *generationApp) Close(ctx context.Context) {
	if a.assets != nil && a.styleRef != "" {
		if err := a.assets.DeleteFile(ctx, a.styleRef); err != nil {
			slog.WarnContext(ctx, "スタイル参照画像の削除に失敗しました", "url", a.styleRef, "error", err)
		} else {
			slog.InfoContext(ctx, "スタイル参照画像を File API から削除しました", "url", a.styleRef)
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			slog.WarnContext(ctx, "ストレージクライアントのクローズに失敗しました", "error", err)
		}
	}
}

// storage は出力先と参照画像の読み込みに使う入出力です。
type storage struct {
	reader  remoteio.InputReader
	writer  remoteio.OutputWriter
	factory remoteio.IOFactory
}

// Close は GCS クライアントを作成していれば解放します。
func (s *storage) Close() error {
	if s.factory == nil {
		return nil
	}
	return s.factory.Close()
}

// initializeStorage はローカル用の入出力を既定とし、gs:// を使う場合だけ GCS クライアントを作成します。
func initializeStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	st := &storage{
		reader: remoteio.NewUniversalInputReader(nil, nil),
		writer: remoteio.NewUniversalIOWriter(nil, nil),
	}

	remoteOut := remoteio.IsGCSURI(cfg.OutputDir)
	remoteRef := remoteio.IsGCSURI(cfg.StyleReferenceURL)
	if !remoteOut && !remoteRef {
		return st, nil
	}

	factory, err := gcsfactory.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("GCS クライアントファクトリの作成に失敗しました: %w", err)
	}
	st.factory = factory

	reader, err := factory.InputReader()
	if err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("GCS リーダーの作成に失敗しました: %w", err)
	}
	writer, err := factory.OutputWriter()
	if err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("GCS ライターの作成に失敗しました: %w", err)
	}
	st.reader, st.writer = reader, writer
	return st, nil
}

// initializeGenerator は設定されたバックエンドを組み立てます。
// gemini の場合、スタイル参照画像の File API 登録を試み、成功すれば AssetManager も返します。
func initializeGenerator(ctx context.Context, cfg *config.Config, st *storage) (generator.ImageGenerator, generator.AssetManager, error) {
	switch cfg.Backend {
	case config.BackendSDWebUI:
		if cfg.StyleReferenceURL != "" {
			slog.WarnContext(ctx, "スタイル参照画像は sdwebui バックエンドでは使用されません", "url", cfg.StyleReferenceURL)
		}
		gen, err := generator.NewStableDiffusionGenerator(generator.NewSDWebUIHTTPClient(cfg.HTTPTimeout), cfg.SDWebUIURL, cfg.SDSampler)
		if err != nil {
			return nil, nil, fmt.Errorf("Stable Diffusion バックエンドの初期化に失敗しました: %w", err)
		}
		return gen, nil, nil

	case config.BackendGemini:
		aiClient, err := gemini.NewClient(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey})
		if err != nil {
			return nil, nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
		}

		// 参照画像の取得は SSRF 検証付きのクライアントで行う
		httpClient := httpkit.New(cfg.HTTPTimeout)
		imgCache := cache.New(config.DefaultCacheTTL, config.DefaultCacheCleanup)
		core, err := generator.NewGeminiImageCore(aiClient, st.reader, httpClient, imgCache, config.DefaultCacheTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("GeminiImageCore の初期化に失敗しました: %w", err)
		}
		gen, err := generator.NewGeminiGenerator(core, aiClient, cfg.GeminiImageModel)
		if err != nil {
			return nil, nil, fmt.Errorf("GeminiGenerator の初期化に失敗しました: %w", err)
		}

		var assets generator.AssetManager
		if cfg.StyleReferenceURL != "" {
			uri, err := core.UploadFile(ctx, cfg.StyleReferenceURL)
			if err != nil {
				slog.WarnContext(ctx, "File API への登録に失敗したため、参照画像をインラインで添付します", "url", cfg.StyleReferenceURL, "error", err)
			} else {
				slog.InfoContext(ctx, "スタイル参照画像を File API に登録しました", "uri", uri)
				assets = core
			}
		}
		return gen, assets, nil

	default:
		return nil, nil, fmt.Errorf("未知のバックエンドです: %s", cfg.Backend)
	}
}

// newSampler は --seed の有無に応じて Sampler を作成します。
func newSampler(seed *int64) *sampler.Sampler {
	if seed != nil {
		return sampler.NewSeeded(uint64(*seed))
	}
	return sampler.NewRandom()
}

// buildGenerationApp は設定とトレイト定義から生成ドライバを組み立てます。
func buildGenerationApp(ctx context.Context, cfg *config.Config, def *traits.Definition, opts config.GenerateOptions) (app *generationApp, err error) {
	st, err := initializeStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = st.Close()
		}
	}()

	pub, err := publisher.NewTokenPublisher(st.writer, cfg.OutputDir, def.Collection)
	if err != nil {
		return nil, err
	}
	if err := pub.Prepare(); err != nil {
		return nil, err
	}

	gen, assets, err := initializeGenerator(ctx, cfg, st)
	if err != nil {
		return nil, err
	}

	driver, err := runner.NewDriver(
		newSampler(opts.Seed),
		prompt.NewAssembler(def.MasterStyle),
		gen,
		pub,
		runner.Params{
			Categories:     def.Categories,
			NegativePrompt: def.NegativePrompt,
			Steps:          cfg.Steps,
			GuidanceScale:  cfg.GuidanceScale,
			Width:          cfg.ImageWidth,
			Height:         cfg.ImageHeight,
			AspectRatio:    cfg.AspectRatio,
			ReferenceURL:   cfg.StyleReferenceURL,
			BaseSeed:       opts.Seed,
			MaxAttempts:    cfg.MaxAttempts,
			Interval:       cfg.RequestInterval,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("生成ドライバの初期化に失敗しました: %w", err)
	}

	return &generationApp{
		driver:   driver,
		assets:   assets,
		styleRef: cfg.StyleReferenceURL,
		storage:  st,
	}, nil
}
