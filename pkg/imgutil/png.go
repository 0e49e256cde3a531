package imgutil

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"net/http"
)

// EnsurePNG はデータが PNG でなければデコードして PNG に再エンコードします。
// 既に PNG の場合は入力をそのまま返します。
func EnsurePNG(data []byte) ([]byte, error) {
	if http.DetectContentType(data) == "image/png" {
		return data, nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("画像のデコードに失敗しました: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return nil, fmt.Errorf("%s から PNG への変換に失敗しました: %w", format, err)
	}
	return buf.Bytes(), nil
}
