package traits

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/shouni/nft-forge/pkg/domain"

	"gopkg.in/yaml.v3"
)

//go:embed default_traits.yaml
var defaultTraitsYAML []byte

// Definition はコレクション 1 つ分のトレイト定義です。
// Categories の並び順がプロンプトとメタデータ属性の順序になります。
type Definition struct {
	Collection     domain.Collection      `yaml:"collection"`
	MasterStyle    string                 `yaml:"master_style"`
	NegativePrompt string                 `yaml:"negative_prompt"`
	Categories     []domain.TraitCategory `yaml:"categories"`
}

// Default はバイナリに埋め込まれた既定のトレイト定義を返します。
// 呼び出し毎にデコードするため、戻り値を変更しても他の呼び出し元には影響しません。
func Default() (*Definition, error) {
	def, err := Parse(defaultTraitsYAML)
	if err != nil {
		return nil, fmt.Errorf("埋め込みトレイト定義の読み込みに失敗しました: %w", err)
	}
	return def, nil
}

// Load は YAML ファイルからトレイト定義を読み込みます。
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("トレイト定義ファイルの読み込みに失敗しました: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// LoadOrDefault は path が空なら埋め込み定義を、そうでなければファイルを読み込みます。
func LoadOrDefault(path string) (*Definition, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

// Parse は YAML バイト列をデコードし、検証済みの定義を返します。
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("トレイト定義のデコードに失敗しました: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate は抽選が必ず成立することを確認します。
func (d *Definition) Validate() error {
	if len(d.Categories) == 0 {
		return fmt.Errorf("トレイトカテゴリが 1 つも定義されていません")
	}

	seen := make(map[string]struct{}, len(d.Categories))
	for i, cat := range d.Categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			return fmt.Errorf("カテゴリ #%d に名前がありません", i+1)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("カテゴリ名が重複しています: %s", name)
		}
		seen[name] = struct{}{}

		if len(cat.Options) == 0 {
			return fmt.Errorf("カテゴリ %q に選択肢がありません", name)
		}
		for _, opt := range cat.Options {
			if opt.Name == "" {
				return fmt.Errorf("カテゴリ %q に名前のない選択肢があります", name)
			}
			if opt.Weight <= 0 {
				return fmt.Errorf("カテゴリ %q の選択肢 %q の重みは正の整数である必要があります (weight: %d)", name, opt.Name, opt.Weight)
			}
		}
	}
	return nil
}

// CategoryNames はカテゴリ名を宣言順に返します。
func (d *Definition) CategoryNames() []string {
	names := make([]string, 0, len(d.Categories))
	for _, c := range d.Categories {
		names = append(names, c.Name)
	}
	return names
}
