package domain

import "fmt"

// TraitOption はカテゴリ内の選択肢の 1 つです。
// Weight は同じカテゴリ内での相対的な出現しやすさで、合計値に制約はありません。
type TraitOption struct {
	Name   string `yaml:"name" json:"name"`
	Weight int    `yaml:"weight" json:"weight"`
	Prompt string `yaml:"prompt" json:"prompt,omitempty"` // 空の場合はプロンプトに寄与しない
}

// TraitCategory は "Hat" や "Beard" のような見た目の軸と、その選択肢の順序付きリストです。
type TraitCategory struct {
	Name    string        `yaml:"name" json:"name"`
	Options []TraitOption `yaml:"options" json:"options"`
}

// TotalWeight はカテゴリ内の重みの合計を返します。
func (c TraitCategory) TotalWeight() int {
	total := 0
	for _, o := range c.Options {
		total += o.Weight
	}
	return total
}

// Probability は i 番目の選択肢が選ばれる確率を返します。
func (c TraitCategory) Probability(i int) float64 {
	total := c.TotalWeight()
	if total <= 0 || i < 0 || i >= len(c.Options) {
		return 0
	}
	return float64(c.Options[i].Weight) / float64(total)
}

// SelectedTrait は 1 カテゴリ分の抽選結果です。
type SelectedTrait struct {
	Category string
	Option   TraitOption
}

// Selection は 1 トークン分の抽選結果で、テーブルの宣言順に並びます。
type Selection []SelectedTrait

// Fragments は各選択肢のプロンプト断片を宣言順に返します。空の断片も含みます。
func (s Selection) Fragments() []string {
	out := make([]string, 0, len(s))
	for _, t := range s {
		out = append(out, t.Option.Prompt)
	}
	return out
}

// Attributes は ERC-721 メタデータ用の属性リストに変換します。
func (s Selection) Attributes() []Attribute {
	attrs := make([]Attribute, 0, len(s))
	for _, t := range s {
		attrs = append(attrs, Attribute{TraitType: t.Category, Value: t.Option.Name})
	}
	return attrs
}

// String はログ出力用に "Category=Name" を並べた文字列を返します。
func (s Selection) String() string {
	out := ""
	for i, t := range s {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%s", t.Category, t.Option.Name)
	}
	return out
}
