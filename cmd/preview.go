package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/shouni/nft-forge/internal/config"
	"github.com/shouni/nft-forge/pkg/domain"
	"github.com/shouni/nft-forge/pkg/prompt"

	"github.com/spf13/cobra"
)

var previewCount int

// previewLine は preview が 1 行ずつ出力する JSON です。
type previewLine struct {
	TokenID  int                  `json:"token_id"`
	Prompt   string               `json:"prompt"`
	Metadata domain.TokenMetadata `json:"metadata"`
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "バックエンドを呼ばずに抽選結果とプロンプトを JSON Lines で表示します",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if previewCount < 0 {
			return fmt.Errorf("--count は 0 以上である必要があります: %d", previewCount)
		}
		def, err := loadDefinition(appCfg)
		if err != nil {
			return err
		}

		s := newSampler(opts.Seed)
		assembler := prompt.NewAssembler(def.MasterStyle)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)

		for id := 1; id <= previewCount; id++ {
			sel, err := s.Roll(def.Categories)
			if err != nil {
				return err
			}
			line := previewLine{
				TokenID:  id,
				Prompt:   assembler.Build(sel),
				Metadata: def.Collection.Metadata(id, sel),
			}
			if err := enc.Encode(line); err != nil {
				return fmt.Errorf("出力に失敗しました: %w", err)
			}
		}
		return nil
	},
}

func init() {
	previewCmd.Flags().IntVarP(&previewCount, "count", "n", config.DefaultPreviewCount, "表示するトークン数")
}
