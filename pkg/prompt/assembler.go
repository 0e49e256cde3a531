package prompt

import (
	"strings"

	"github.com/shouni/nft-forge/pkg/domain"
)

const fragmentSeparator = ", "

// Assembler は抽選結果から画像生成用のポジティブプロンプトを組み立てます。
type Assembler struct {
	MasterStyle string
}

// NewAssembler は全トークン共通のスタイル文字列を持つ Assembler を作成します。
func NewAssembler(masterStyle string) *Assembler {
	return &Assembler{MasterStyle: masterStyle}
}

// Build は空の断片を除いて ", " で連結し、末尾に ". " + MasterStyle を付けます。
func (a *Assembler) Build(sel domain.Selection) string {
	parts := make([]string, 0, len(sel))
	for _, f := range sel.Fragments() {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}

	body := strings.Join(parts, fragmentSeparator)
	style := strings.TrimSpace(a.MasterStyle)

	switch {
	case body == "":
		return style
	case style == "":
		return body
	default:
		return body + ". " + style
	}
}
