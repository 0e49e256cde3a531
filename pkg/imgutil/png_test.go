package imgutil

import (
	"bytes"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsurePNG(t *testing.T) {
	t.Run("PNGはそのまま返すこと", func(t *testing.T) {
		in := createDummyImageData(t, "png")
		out, err := EnsurePNG(in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("JPEGはPNGに変換されること", func(t *testing.T) {
		in := createDummyImageData(t, "jpeg")
		out, err := EnsurePNG(in)
		require.NoError(t, err)

		img, format, err := image.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, "png", format)
		assert.Equal(t, 10, img.Bounds().Dx())
	})

	t.Run("画像でなければエラー", func(t *testing.T) {
		_, err := EnsurePNG([]byte("not an image"))
		assert.Error(t, err)
	})
}
