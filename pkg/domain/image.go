package domain

// ImageGenerationRequest は 1 トークン分の画像生成要求です。
// Steps と GuidanceScale は拡散モデル系のバックエンドのみが解釈します。
type ImageGenerationRequest struct {
	Prompt         string
	NegativePrompt string
	Steps          int
	GuidanceScale  float64
	Width          int
	Height         int
	AspectRatio    string
	ReferenceURL   string
	Seed           *int64 // nil でランダム
}

// ImageResponse は生成された画像データとそのメタデータです。
type ImageResponse struct {
	Data     []byte
	MimeType string
	UsedSeed int64 // 戻り値は情報欠落を防ぐため int64
}
