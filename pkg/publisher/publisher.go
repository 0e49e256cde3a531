package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shouni/nft-forge/pkg/domain"
	"github.com/shouni/nft-forge/pkg/imgutil"

	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/shouni/go-utils/urlpath"
)

const (
	// ImagesDir は画像を格納するサブディレクトリ名です。
	ImagesDir = "images"
	// MetadataDir はメタデータ JSON を格納するサブディレクトリ名です。
	MetadataDir = "metadata"

	metadataIndent = "    "
)

// TokenPublisher は 1 トークン分の画像とメタデータを出力先に書き出します。
//
//	<baseDir>/images/<id>.png
//	<baseDir>/metadata/<id>.json
type TokenPublisher struct {
	writer     remoteio.OutputWriter
	baseDir    string
	collection domain.Collection
}

// NewTokenPublisher は TokenPublisher を作成します。baseDir はローカルパスまたは gs:// URI です。
// writer はパスの接頭辞でローカルとクラウドストレージを振り分けます。
func NewTokenPublisher(writer remoteio.OutputWriter, baseDir string, collection domain.Collection) (*TokenPublisher, error) {
	if writer == nil {
		return nil, fmt.Errorf("writer is required")
	}
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("baseDir is required")
	}
	return &TokenPublisher{
		writer:     writer,
		baseDir:    baseDir,
		collection: collection,
	}, nil
}

// IsRemote は出力先がクラウドストレージかどうかを返します。
func IsRemote(baseDir string) bool {
	return remoteio.IsRemoteURI(baseDir)
}

// Prepare はローカル出力先の images/ と metadata/ を作成します。
// 既存のファイルには触れません。クラウドストレージの場合は何もしません。
func (p *TokenPublisher) Prepare() error {
	if IsRemote(p.baseDir) {
		return nil
	}
	for _, dir := range []string{ImagesDir, MetadataDir} {
		if err := os.MkdirAll(filepath.Join(p.baseDir, dir), 0o755); err != nil {
			return fmt.Errorf("出力ディレクトリの作成に失敗しました: %w", err)
		}
	}
	return nil
}

// Publish は画像を PNG として保存し、続けて ERC-721 形式のメタデータを保存します。
func (p *TokenPublisher) Publish(ctx context.Context, tokenID int, sel domain.Selection, image []byte) (imagePath, metadataPath string, err error) {
	pngData, err := imgutil.EnsurePNG(image)
	if err != nil {
		return "", "", fmt.Errorf("token %d: %w", tokenID, err)
	}

	imagePath, err = p.resolve(ImagesDir, tokenID, ".png")
	if err != nil {
		return "", "", err
	}
	if err := p.writer.Write(ctx, imagePath, bytes.NewReader(pngData), "image/png"); err != nil {
		return "", "", fmt.Errorf("画像の保存に失敗しました (%s): %w", imagePath, err)
	}

	meta, err := p.encodeMetadata(tokenID, sel)
	if err != nil {
		return "", "", err
	}
	metadataPath, err = p.resolve(MetadataDir, tokenID, ".json")
	if err != nil {
		return "", "", err
	}
	if err := p.writer.Write(ctx, metadataPath, bytes.NewReader(meta), "application/json"); err != nil {
		return "", "", fmt.Errorf("メタデータの保存に失敗しました (%s): %w", metadataPath, err)
	}

	return imagePath, metadataPath, nil
}

func (p *TokenPublisher) encodeMetadata(tokenID int, sel domain.Selection) ([]byte, error) {
	meta := p.collection.Metadata(tokenID, sel)
	data, err := json.MarshalIndent(meta, "", metadataIndent)
	if err != nil {
		return nil, fmt.Errorf("メタデータのエンコードに失敗しました: %w", err)
	}
	return data, nil
}

func (p *TokenPublisher) resolve(subDir string, tokenID int, ext string) (string, error) {
	dir, err := urlpath.ResolvePath(p.baseDir, subDir)
	if err != nil {
		return "", fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	path, err := urlpath.ResolvePath(dir, strconv.Itoa(tokenID)+ext)
	if err != nil {
		return "", fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	return path, nil
}
