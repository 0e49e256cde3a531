package generator

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/shouni/nft-forge/pkg/imgutil"

	"github.com/patrickmn/go-cache"
)

// GeminiImageCore は AssetManager と参照画像の準備、レスポンス解析を担う基盤です。
type GeminiImageCore struct {
	aiClient   GenerativeModel
	reader     InputReader
	httpClient HTTPClient
	cache      ImageCacher
	expiration time.Duration
}

// NewGeminiImageCore は依存関係を注入して GeminiImageCore を初期化します。
// cache は nil を許容します。cacheTTL は参照画像のバイト列にだけ適用されます。
func NewGeminiImageCore(aiClient GenerativeModel, reader InputReader, httpClient HTTPClient, cache ImageCacher, cacheTTL time.Duration) (*GeminiImageCore, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient is required")
	}
	if reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}

	return &GeminiImageCore{
		aiClient:   aiClient,
		reader:     reader,
		httpClient: httpClient,
		cache:      cache,
		expiration: cacheTTL,
	}, nil
}

// UploadFile は画像を Gemini File API にアップロードし、URI を返します。
// 同じ fileURI の 2 回目以降はキャッシュされた URI を返します。
func (c *GeminiImageCore) UploadFile(ctx context.Context, fileURI string) (string, error) {
	if uri, ok := c.cachedString(cacheKeyFileAPIURI + fileURI); ok {
		return uri, nil
	}

	data, err := c.loadImage(ctx, fileURI)
	if err != nil {
		return "", err
	}

	mimeType := http.DetectContentType(data)
	displayName := filepath.Base(fileURI)

	uri, fileName, err := c.aiClient.UploadFile(ctx, data, mimeType, displayName)
	if err != nil {
		return "", fmt.Errorf("File API へのアップロードに失敗しました: %w", err)
	}

	// 生成時は URI、後始末では Name を使う。実行が長引いても消えないよう期限なしで保持する
	c.rememberFor(cacheKeyFileAPIURI+fileURI, uri, cache.NoExpiration)
	c.rememberFor(cacheKeyFileAPIName+fileURI, fileName, cache.NoExpiration)

	return uri, nil
}

// DeleteFile はキャッシュされたファイル名を使用して Gemini File API からファイルを削除します。
func (c *GeminiImageCore) DeleteFile(ctx context.Context, fileURI string) error {
	if name, ok := c.cachedString(cacheKeyFileAPIName + fileURI); ok {
		return c.aiClient.DeleteFile(ctx, name)
	}
	return fmt.Errorf("cannot determine file name for deletion, file not found in cache: %s", fileURI)
}

// loadImage は参照画像を取得し、設定に応じて JPEG に圧縮します。
// 圧縮に失敗した場合は元のデータをそのまま使います。
func (c *GeminiImageCore) loadImage(ctx context.Context, rawURL string) ([]byte, error) {
	data, err := c.fetchImageData(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if UseImageCompression {
		if compressed, err := imgutil.CompressToJPEG(data, ImageCompressionQuality); err == nil {
			return compressed, nil
		}
	}
	return data, nil
}

func (c *GeminiImageCore) cachedString(key string) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	val, ok := c.cache.Get(key)
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

func (c *GeminiImageCore) remember(key string, value any) {
	c.rememberFor(key, value, c.expiration)
}

func (c *GeminiImageCore) rememberFor(key string, value any, d time.Duration) {
	if c.cache != nil {
		c.cache.Set(key, value, d)
	}
}
