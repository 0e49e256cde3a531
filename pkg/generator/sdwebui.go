package generator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shouni/nft-forge/pkg/domain"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

const txt2imgPath = "/sdapi/v1/txt2img"

// txt2imgRequest は Stable Diffusion WebUI の txt2img API リクエストです。
type txt2imgRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Steps          int     `json:"steps"`
	CFGScale       float64 `json:"cfg_scale"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Seed           int64   `json:"seed"`
	BatchSize      int     `json:"batch_size"`
	NIter          int     `json:"n_iter"`
	SamplerName    string  `json:"sampler_name,omitempty"`
}

type txt2imgResponse struct {
	Images []string `json:"images"`
	Info   string   `json:"info"`
}

// StableDiffusionGenerator は Stable Diffusion WebUI 互換 API を呼び出すバックエンドです。
type StableDiffusionGenerator struct {
	httpClient  HTTPClient
	endpoint    string
	samplerName string
}

// NewSDWebUIHTTPClient は txt2img の呼び出しに使う HTTP クライアントを作成します。
// WebUI は 127.0.0.1 や LAN 内のホストで動くため、httpkit の SSRF 検証は無効にします。
// 参照画像の取得には検証付きのクライアントを別に使ってください。
func NewSDWebUIHTTPClient(timeout time.Duration) *httpkit.Client {
	return httpkit.New(timeout, httpkit.WithSkipNetworkValidation(true))
}

// NewStableDiffusionGenerator は baseURL (例: http://127.0.0.1:7860) に対するバックエンドを作成します。
func NewStableDiffusionGenerator(httpClient HTTPClient, baseURL, samplerName string) (*StableDiffusionGenerator, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	return &StableDiffusionGenerator{
		httpClient:  httpClient,
		endpoint:    baseURL + txt2imgPath,
		samplerName: samplerName,
	}, nil
}

// GenerateImage は txt2img を 1 回呼び出し、最初の画像を返します。
func (g *StableDiffusionGenerator) GenerateImage(ctx context.Context, req domain.ImageGenerationRequest) (*domain.ImageResponse, error) {
	body := txt2imgRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Steps:          req.Steps,
		CFGScale:       req.GuidanceScale,
		Width:          req.Width,
		Height:         req.Height,
		Seed:           -1,
		BatchSize:      1,
		NIter:          1,
		SamplerName:    g.samplerName,
	}
	if req.Seed != nil {
		body.Seed = *req.Seed
	}

	raw, err := g.httpClient.PostJSONAndFetchBytes(ctx, g.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("txt2img リクエストに失敗しました: %w", err)
	}

	var resp txt2imgResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("txt2img レスポンスのデコードに失敗しました: %w", err)
	}
	if len(resp.Images) == 0 {
		return nil, fmt.Errorf("txt2img レスポンスに画像が含まれていません")
	}

	data, err := decodeBase64Image(resp.Images[0])
	if err != nil {
		return nil, err
	}

	return &domain.ImageResponse{
		Data:     data,
		MimeType: http.DetectContentType(data),
		UsedSeed: usedSeed(resp.Info, body.Seed),
	}, nil
}

// decodeBase64Image は "data:image/png;base64," 形式の接頭辞があれば取り除いてデコードします。
func decodeBase64Image(s string) ([]byte, error) {
	if i := strings.Index(s, ","); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("画像データの base64 デコードに失敗しました: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("画像データが空です")
	}
	return data, nil
}

// usedSeed は info (JSON 文字列) から実際に使われたシードを取り出します。
// 取り出せない場合、要求したシードが -1 なら 0 を返します。
func usedSeed(info string, requested int64) int64 {
	var parsed struct {
		Seed *int64 `json:"seed"`
	}
	if info != "" && json.Unmarshal([]byte(info), &parsed) == nil && parsed.Seed != nil {
		return *parsed.Seed
	}
	if requested < 0 {
		return 0
	}
	return requested
}
