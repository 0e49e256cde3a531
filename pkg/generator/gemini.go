package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/nft-forge/pkg/domain"
	"github.com/shouni/nft-forge/pkg/utils"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// GeminiGenerator は Gemini の画像モデルでポートレートを生成するバックエンドです。
// Steps と GuidanceScale に相当する設定は Gemini に無いため無視します。
type GeminiGenerator struct {
	imgCore  imageCore
	aiClient GenerativeModel
	model    string
}

// NewGeminiGenerator は GeminiGenerator を初期化します。
func NewGeminiGenerator(core imageCore, aiClient GenerativeModel, model string) (*GeminiGenerator, error) {
	if core == nil {
		return nil, fmt.Errorf("core is required")
	}
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	return &GeminiGenerator{
		imgCore:  core,
		aiClient: aiClient,
		model:    model,
	}, nil
}

// GenerateImage はプロンプトと任意のスタイル参照画像から 1 枚生成します。
func (g *GeminiGenerator) GenerateImage(ctx context.Context, req domain.ImageGenerationRequest) (*domain.ImageResponse, error) {
	parts := []*genai.Part{{Text: req.Prompt}}

	if req.ReferenceURL != "" {
		imgPart, err := g.imgCore.prepareImagePart(ctx, req.ReferenceURL)
		if err != nil {
			// 参照画像なしでも生成自体は可能なので続行する
			slog.WarnContext(ctx, "スタイル参照画像を添付できませんでした", "url", req.ReferenceURL, "error", err)
		} else {
			parts = append(parts, imgPart)
		}
	}

	opts := gemini.GenerateOptions{
		AspectRatio:  req.AspectRatio,
		SystemPrompt: negativeInstruction(req.NegativePrompt),
		Seed:         req.Seed,
	}

	resp, err := g.aiClient.GenerateWithParts(ctx, g.model, parts, opts)
	if err != nil {
		return nil, fmt.Errorf("Gemini画像生成エラー: %w", err)
	}

	out, err := g.imgCore.parseToResponse(resp, utils.DereferenceSeed(req.Seed))
	if err != nil {
		return nil, fmt.Errorf("Geminiレスポンス解析エラー: %w", err)
	}

	return &domain.ImageResponse{
		Data:     out.Data,
		MimeType: out.MimeType,
		UsedSeed: out.UsedSeed,
	}, nil
}

// negativeInstruction はネガティブプロンプトをシステム指示の文言に変換します。
func negativeInstruction(negative string) string {
	negative = strings.TrimSpace(negative)
	if negative == "" {
		return ""
	}
	return "Do not include: " + negative
}
