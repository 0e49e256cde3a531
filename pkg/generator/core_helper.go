package generator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// prepareImagePart は参照画像をリクエストに添付できる Part に変換します。
// File API にアップロード済みならその URI を、そうでなければ圧縮済みのバイト列をインラインで使います。
func (c *GeminiImageCore) prepareImagePart(ctx context.Context, rawURL string) (*genai.Part, error) {
	if uri, ok := c.cachedString(cacheKeyFileAPIURI + rawURL); ok {
		return &genai.Part{FileData: &genai.FileData{FileURI: uri}}, nil
	}
	if c.cache != nil {
		if val, ok := c.cache.Get(cacheKeyImageBytes + rawURL); ok {
			if data, ok := val.([]byte); ok {
				return c.toPart(data)
			}
		}
	}

	data, err := c.loadImage(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	c.remember(cacheKeyImageBytes+rawURL, data)
	return c.toPart(data)
}

// fetchImageData は http(s) を SSRF チェック付きで取得し、それ以外 (gs:// やローカルパス) はリーダーで読み込みます。
func (c *GeminiImageCore) fetchImageData(ctx context.Context, rawURL string) ([]byte, error) {
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		if safe, err := IsSafeURL(rawURL); err != nil || !safe {
			return nil, fmt.Errorf("安全ではないURLが指定されました: %w", err)
		}
		return c.httpClient.FetchBytes(ctx, rawURL)
	}

	if c.reader == nil {
		return nil, fmt.Errorf("参照画像を読み込むリーダーが設定されていません: %s", rawURL)
	}
	rc, err := c.reader.Open(ctx, strings.TrimPrefix(rawURL, "file://"))
	if err != nil {
		return nil, fmt.Errorf("参照画像のオープンに失敗しました: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("参照画像の読み込みに失敗しました: %w", err)
	}
	return data, nil
}

func (c *GeminiImageCore) toPart(data []byte) (*genai.Part, error) {
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("参照データが画像ではありません (mime: %s)", mimeType)
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}, nil
}

func (c *GeminiImageCore) parseToResponse(resp *gemini.Response, seed int64) (*ImageOutput, error) {
	if resp == nil || resp.RawResponse == nil || len(resp.RawResponse.Candidates) == 0 {
		return nil, fmt.Errorf("invalid response")
	}
	candidate := resp.RawResponse.Candidates[0]
	if candidate.Content == nil {
		return nil, fmt.Errorf("no content (finish_reason: %s)", candidate.FinishReason)
	}
	for _, part := range candidate.Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return &ImageOutput{Data: part.InlineData.Data, MimeType: part.InlineData.MIMEType, UsedSeed: seed}, nil
		}
	}
	return nil, fmt.Errorf("no image data (finish_reason: %s)", candidate.FinishReason)
}
