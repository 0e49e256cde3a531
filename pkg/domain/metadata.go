package domain

import (
	"fmt"
	"strings"
)

// Attribute は ERC-721 メタデータの attributes 要素です。
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// TokenMetadata は metadata/<id>.json に書き出される ERC-721 形式のドキュメントです。
type TokenMetadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// Collection はコレクション全体で共通のメタデータ設定です。
type Collection struct {
	Name         string `yaml:"name" json:"name"`
	Description  string `yaml:"description" json:"description"`
	ImageBaseURI string `yaml:"image_base_uri" json:"image_base_uri"` // 例: ipfs://placeholder_hash
}

// Metadata はトークン ID と抽選結果からメタデータを組み立てます。
func (c Collection) Metadata(tokenID int, sel Selection) TokenMetadata {
	return TokenMetadata{
		Name:        fmt.Sprintf("%s #%d", c.Name, tokenID),
		Description: c.Description,
		Image:       fmt.Sprintf("%s/%d.png", strings.TrimRight(c.ImageBaseURI, "/"), tokenID),
		Attributes:  sel.Attributes(),
	}
}

// Token は 1 件の生成結果です。
type Token struct {
	ID           int
	Selection    Selection
	Prompt       string
	ImagePath    string
	MetadataPath string
}
