package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shouni/nft-forge/pkg/domain"

	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingWriter は書き込まれた内容をメモリに保持する OutputWriter です。
type recordingWriter struct {
	files        map[string][]byte
	contentTypes map[string]string
	failOn       string
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{files: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (w *recordingWriter) Write(ctx context.Context, path string, r io.Reader, contentType string) error {
	if w.failOn != "" && strings.Contains(path, w.failOn) {
		return errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	w.files[path] = data
	w.contentTypes[path] = contentType
	return nil
}

func testCollection() domain.Collection {
	return domain.Collection{
		Name:         "Genesis P2PFather",
		Description:  "An exclusive P2PFather platform Genesis collection item.",
		ImageBaseURI: "ipfs://placeholder_hash",
	}
}

func testSelection() domain.Selection {
	return domain.Selection{
		{Category: "Base Face", Option: domain.TraitOption{Name: "Tough Bald Dad", Weight: 20}},
		{Category: "Hat", Option: domain.TraitOption{Name: "No Hat", Weight: 60}},
	}
}

func encodeImage(t *testing.T, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{10, 20, 30, 255})
	buf := new(bytes.Buffer)
	switch format {
	case "png":
		require.NoError(t, png.Encode(buf, img))
	case "jpeg":
		require.NoError(t, jpeg.Encode(buf, img, nil))
	}
	return buf.Bytes()
}

func TestTokenPublisher_PublishLocal(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nft_output")

	// GCS クライアントなしの UniversalIOWriter はローカルパスだけを扱う
	pub, err := NewTokenPublisher(remoteio.NewUniversalIOWriter(nil, nil), dir, testCollection())
	require.NoError(t, err)
	require.NoError(t, pub.Prepare())

	t.Run("Prepareでimagesとmetadataが作成されること", func(t *testing.T) {
		for _, sub := range []string{ImagesDir, MetadataDir} {
			info, err := os.Stat(filepath.Join(dir, sub))
			require.NoError(t, err)
			assert.True(t, info.IsDir())
		}
	})

	t.Run("画像とメタデータが規定のパスに書き出されること", func(t *testing.T) {
		pngData := encodeImage(t, "png")
		imgPath, metaPath, err := pub.Publish(ctx, 3, testSelection(), pngData)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(dir, "images", "3.png"), imgPath)
		assert.Equal(t, filepath.Join(dir, "metadata", "3.json"), metaPath)

		written, err := os.ReadFile(imgPath)
		require.NoError(t, err)
		assert.Equal(t, pngData, written)

		raw, err := os.ReadFile(metaPath)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "\n    \"name\": \"Genesis P2PFather #3\"", "4 スペースでインデントされる")

		var meta domain.TokenMetadata
		require.NoError(t, json.Unmarshal(raw, &meta))
		assert.Equal(t, "ipfs://placeholder_hash/3.png", meta.Image)
		assert.Equal(t, []domain.Attribute{
			{TraitType: "Base Face", Value: "Tough Bald Dad"},
			{TraitType: "Hat", Value: "No Hat"},
		}, meta.Attributes)
	})

	t.Run("JPEGはPNGに変換されて保存されること", func(t *testing.T) {
		imgPath, _, err := pub.Publish(ctx, 4, testSelection(), encodeImage(t, "jpeg"))
		require.NoError(t, err)

		written, err := os.ReadFile(imgPath)
		require.NoError(t, err)
		assert.Equal(t, "image/png", http.DetectContentType(written))
	})

	t.Run("画像でないデータは保存しないこと", func(t *testing.T) {
		_, _, err := pub.Publish(ctx, 5, testSelection(), []byte("garbage"))
		assert.Error(t, err)
		_, statErr := os.Stat(filepath.Join(dir, "metadata", "5.json"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("Prepareは既存ファイルを消さないこと", func(t *testing.T) {
		require.NoError(t, pub.Prepare())
		_, err := os.Stat(filepath.Join(dir, "images", "3.png"))
		assert.NoError(t, err)
	})
}

func TestTokenPublisher_Writer(t *testing.T) {
	ctx := context.Background()

	t.Run("書き込み先とContent-Typeが正しいこと", func(t *testing.T) {
		w := newRecordingWriter()
		pub, err := NewTokenPublisher(w, "out", testCollection())
		require.NoError(t, err)

		imgPath, metaPath, err := pub.Publish(ctx, 1, testSelection(), encodeImage(t, "png"))
		require.NoError(t, err)

		assert.Equal(t, "image/png", w.contentTypes[imgPath])
		assert.Equal(t, "application/json", w.contentTypes[metaPath])
	})

	t.Run("gs://の出力先はURLとして結合されること", func(t *testing.T) {
		w := newRecordingWriter()
		pub, err := NewTokenPublisher(w, "gs://bucket/nft", testCollection())
		require.NoError(t, err)
		require.NoError(t, pub.Prepare(), "リモートではディレクトリを作らない")

		imgPath, metaPath, err := pub.Publish(ctx, 2, testSelection(), encodeImage(t, "png"))
		require.NoError(t, err)
		assert.Equal(t, "gs://bucket/nft/images/2.png", imgPath)
		assert.Equal(t, "gs://bucket/nft/metadata/2.json", metaPath)
		assert.Contains(t, w.files, imgPath)
	})

	t.Run("メタデータの書き込み失敗はエラーになること", func(t *testing.T) {
		w := newRecordingWriter()
		w.failOn = "metadata"
		pub, err := NewTokenPublisher(w, "out", testCollection())
		require.NoError(t, err)

		_, _, err = pub.Publish(ctx, 1, testSelection(), encodeImage(t, "png"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "メタデータの保存に失敗しました")
	})
}

func TestNewTokenPublisher(t *testing.T) {
	_, err := NewTokenPublisher(nil, "out", testCollection())
	assert.Error(t, err)

	_, err = NewTokenPublisher(remoteio.NewUniversalIOWriter(nil, nil), " ", testCollection())
	assert.Error(t, err)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("gs://bucket/nft"))
	assert.True(t, IsRemote("s3://bucket/nft"))
	assert.False(t, IsRemote("nft_output"))
	assert.False(t, IsRemote("/tmp/gs/nft"))
}
