package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/nft-forge/pkg/domain"
	"github.com/shouni/nft-forge/pkg/generator"
	"github.com/shouni/nft-forge/pkg/utils"

	"golang.org/x/time/rate"
)

// TraitRoller は 1 トークン分のトレイトを抽選します。
type TraitRoller interface {
	Roll(categories []domain.TraitCategory) (domain.Selection, error)
}

// PromptBuilder は抽選結果からポジティブプロンプトを組み立てます。
type PromptBuilder interface {
	Build(sel domain.Selection) string
}

// Publisher は生成した画像とメタデータを保存します。
type Publisher interface {
	Publish(ctx context.Context, tokenID int, sel domain.Selection, image []byte) (imagePath, metadataPath string, err error)
}

// Params は全トークン共通の生成パラメータです。
type Params struct {
	Categories     []domain.TraitCategory
	NegativePrompt string
	Steps          int
	GuidanceScale  float64
	Width          int
	Height         int
	AspectRatio    string
	ReferenceURL   string
	BaseSeed       *int64 // nil ならバックエンドに任せる

	// MaxAttempts は同じトークンの連続失敗の上限です。0 なら無制限に再試行します。
	MaxAttempts int
	// Interval はバックエンド呼び出しの最小間隔です。0 なら待機しません。
	Interval time.Duration
}

// Summary は 1 回の実行結果です。
type Summary struct {
	Requested int
	Generated int
	Failures  int
	Tokens    []domain.Token
}

// Driver はトークンを 1 から順に生成し、失敗したトークンは同じ ID で再試行します。
type Driver struct {
	roller    TraitRoller
	prompts   PromptBuilder
	generator generator.ImageGenerator
	publisher Publisher
	params    Params
	limiter   *rate.Limiter
}

// NewDriver は依存関係を注入して Driver を初期化します。
func NewDriver(roller TraitRoller, prompts PromptBuilder, gen generator.ImageGenerator, pub Publisher, params Params) (*Driver, error) {
	if roller == nil || prompts == nil || gen == nil || pub == nil {
		return nil, fmt.Errorf("roller, prompts, generator, publisher are required")
	}
	if len(params.Categories) == 0 {
		return nil, fmt.Errorf("トレイトカテゴリが空です")
	}
	if params.MaxAttempts < 0 {
		return nil, fmt.Errorf("MaxAttempts は 0 以上である必要があります: %d", params.MaxAttempts)
	}

	return &Driver{
		roller:    roller,
		prompts:   prompts,
		generator: gen,
		publisher: pub,
		params:    params,
		limiter:   rate.NewLimiter(rate.Every(params.Interval), 1),
	}, nil
}

// Run は count 枚生成するまでループします。
// キャンセルされた場合は、それまでの結果とコンテキストのエラーを返します。
func (d *Driver) Run(ctx context.Context, count int) (*Summary, error) {
	summary := &Summary{Requested: count}
	if count <= 0 {
		return summary, nil
	}

	slog.InfoContext(ctx, "生成を開始します", "count", count, "categories", len(d.params.Categories))

	tokenID := 1
	attempts := 0
	for tokenID <= count {
		if err := d.limiter.Wait(ctx); err != nil {
			return summary, fmt.Errorf("生成を中断しました (token_id: %d): %w", tokenID, contextErr(ctx, err))
		}

		token, err := d.generateToken(ctx, tokenID)
		if err != nil {
			if ctx.Err() != nil {
				return summary, fmt.Errorf("生成を中断しました (token_id: %d): %w", tokenID, ctx.Err())
			}

			attempts++
			summary.Failures++
			slog.ErrorContext(ctx, "トークンの生成に失敗しました。同じIDで再試行します",
				"token_id", tokenID,
				"attempt", attempts,
				"error", err,
			)
			if d.params.MaxAttempts > 0 && attempts >= d.params.MaxAttempts {
				return summary, fmt.Errorf("token %d が %d 回連続で失敗しました: %w", tokenID, attempts, err)
			}
			continue
		}

		attempts = 0
		summary.Generated++
		summary.Tokens = append(summary.Tokens, *token)
		slog.InfoContext(ctx, "トークンを生成しました",
			"token_id", tokenID,
			"progress", fmt.Sprintf("%d/%d", tokenID, count),
			"traits", token.Selection.String(),
			"image", token.ImagePath,
		)
		tokenID++
	}

	return summary, nil
}

// generateToken は抽選からメタデータ保存までの 1 回分です。再試行の度にトレイトは引き直されます。
func (d *Driver) generateToken(ctx context.Context, tokenID int) (*domain.Token, error) {
	sel, err := d.roller.Roll(d.params.Categories)
	if err != nil {
		return nil, err
	}
	prompt := d.prompts.Build(sel)
	slog.DebugContext(ctx, "プロンプトを組み立てました", "token_id", tokenID, "prompt", prompt)

	resp, err := d.generator.GenerateImage(ctx, domain.ImageGenerationRequest{
		Prompt:         prompt,
		NegativePrompt: d.params.NegativePrompt,
		Steps:          d.params.Steps,
		GuidanceScale:  d.params.GuidanceScale,
		Width:          d.params.Width,
		Height:         d.params.Height,
		AspectRatio:    d.params.AspectRatio,
		ReferenceURL:   d.params.ReferenceURL,
		Seed:           utils.TokenSeed(d.params.BaseSeed, tokenID),
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, errors.New("バックエンドが空の画像を返しました")
	}

	imagePath, metadataPath, err := d.publisher.Publish(ctx, tokenID, sel, resp.Data)
	if err != nil {
		return nil, err
	}

	return &domain.Token{
		ID:           tokenID,
		Selection:    sel,
		Prompt:       prompt,
		ImagePath:    imagePath,
		MetadataPath: metadataPath,
	}, nil
}

// contextErr は limiter が返すエラーより、コンテキスト自体のエラーを優先します。
func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
