package traits

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	def, err := Default()
	require.NoError(t, err)

	t.Run("カテゴリが宣言順に読み込まれること", func(t *testing.T) {
		assert.Equal(t,
			[]string{"Base Face", "Beard", "Moustache", "Eyes", "Hat", "Outfit", "Accessories", "Background"},
			def.CategoryNames(),
		)
	})

	t.Run("コレクション情報とスタイル文字列が埋め込まれていること", func(t *testing.T) {
		assert.Equal(t, "Genesis P2PFather", def.Collection.Name)
		assert.Equal(t, "ipfs://placeholder_hash", def.Collection.ImageBaseURI)
		assert.Contains(t, def.MasterStyle, "consistent NFT PFP art style")
		assert.Contains(t, def.NegativePrompt, "photorealistic")
	})

	t.Run("空プロンプトの選択肢が保持されること", func(t *testing.T) {
		acc := def.Categories[6]
		require.Equal(t, "Accessories", acc.Name)
		assert.Equal(t, "No Accessory", acc.Options[0].Name)
		assert.Empty(t, acc.Options[0].Prompt)
		assert.Equal(t, 60, acc.Options[0].Weight)
	})

	t.Run("戻り値を変更しても次の呼び出しに影響しないこと", func(t *testing.T) {
		def.Categories = nil
		again, err := Default()
		require.NoError(t, err)
		assert.Len(t, again.Categories, 8)
	})
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "カテゴリなし",
			yaml:    "master_style: x\ncategories: []\n",
			wantErr: "1 つも定義されていません",
		},
		{
			name:    "選択肢なし",
			yaml:    "categories:\n  - name: Hat\n    options: []\n",
			wantErr: "選択肢がありません",
		},
		{
			name:    "重みがゼロ",
			yaml:    "categories:\n  - name: Hat\n    options:\n      - {name: Cap, weight: 0, prompt: cap}\n",
			wantErr: "正の整数",
		},
		{
			name:    "重みが負",
			yaml:    "categories:\n  - name: Hat\n    options:\n      - {name: Cap, weight: -3, prompt: cap}\n",
			wantErr: "正の整数",
		},
		{
			name:    "カテゴリ名の重複",
			yaml:    "categories:\n  - name: Hat\n    options:\n      - {name: Cap, weight: 1}\n  - name: Hat\n    options:\n      - {name: Beret, weight: 1}\n",
			wantErr: "重複",
		},
		{
			name:    "カテゴリ名なし",
			yaml:    "categories:\n  - options:\n      - {name: Cap, weight: 1}\n",
			wantErr: "名前がありません",
		},
		{
			name:    "不正なYAML",
			yaml:    "categories: [",
			wantErr: "デコード",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traits.yaml")
	content := `collection:
  name: Test Crew
  description: test
  image_base_uri: ipfs://test
master_style: "flat colors"
negative_prompt: "blurry"
categories:
  - name: Hat
    options:
      - name: Cap
        weight: 3
        prompt: "wearing a cap"
      - name: None
        weight: 1
        prompt: ""
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	def, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Test Crew", def.Collection.Name)
	require.Len(t, def.Categories, 1)
	assert.Len(t, def.Categories[0].Options, 2)

	t.Run("LoadOrDefaultはパス指定時にファイルを使うこと", func(t *testing.T) {
		got, err := LoadOrDefault(path)
		require.NoError(t, err)
		assert.Equal(t, "Test Crew", got.Collection.Name)
	})

	t.Run("存在しないファイルはエラー", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)
	})
}
