package generator

import (
	"context"
	"io"
	"time"

	"github.com/shouni/nft-forge/pkg/domain"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// ImageGenerator は生成ドライバが利用する画像生成バックエンドの窓口です。
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req domain.ImageGenerationRequest) (*domain.ImageResponse, error)
}

// AssetManager はスタイル参照画像の File API への登録と削除を担当します。
type AssetManager interface {
	UploadFile(ctx context.Context, fileURI string) (string, error)
	DeleteFile(ctx context.Context, fileURI string) error
}

// GenerativeModel は gemini.GenerativeModel のうち、このパッケージが使うメソッドだけを切り出したものです。
type GenerativeModel interface {
	GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
	UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (string, string, error)
	DeleteFile(ctx context.Context, name string) error
}

// ImageCacher は、画像や File API の URI をキャッシュするためのインターフェースです。
// *cache.Cache (patrickmn/go-cache) がそのまま満たします。
type ImageCacher interface {
	Get(key string) (any, bool)
	Set(key string, value any, d time.Duration)
}

// HTTPClient は go-http-kit のクライアントのうち、参照画像の取得と JSON API 呼び出しに使うメソッドです。
type HTTPClient interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
	PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error)
}

// InputReader はローカルパスや gs:// の参照画像を読み込みます。remoteio.InputReader が満たします。
type InputReader interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// imageCore は GeminiGenerator が GeminiImageCore に求める内部処理です。
type imageCore interface {
	prepareImagePart(ctx context.Context, rawURL string) (*genai.Part, error)
	parseToResponse(resp *gemini.Response, seed int64) (*ImageOutput, error)
}
