package sampler

import (
	"fmt"
	"math/rand/v2"

	"github.com/shouni/nft-forge/pkg/domain"
)

// Float64Source は [0, 1) の一様乱数を返す乱数源です。
// *rand.Rand はこのインターフェースを満たします。
type Float64Source interface {
	Float64() float64
}

// Sampler は重み付き抽選を行います。並行利用は想定していません。
type Sampler struct {
	src Float64Source
}

// New は任意の乱数源から Sampler を作成します。
func New(src Float64Source) *Sampler {
	return &Sampler{src: src}
}

// NewSeeded は固定シードの PCG で Sampler を作成します。同じシードなら同じ抽選列になります。
func NewSeeded(seed uint64) *Sampler {
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// NewRandom はランダムにシードされた Sampler を作成します。
func NewRandom() *Sampler {
	return New(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// Pick は重みに比例した確率で選択肢を 1 つ返します。
// [0, 合計) の一様乱数を引き、累積重みがそれ以上になった最初の選択肢を返します。
func (s *Sampler) Pick(options []domain.TraitOption) (domain.TraitOption, error) {
	if len(options) == 0 {
		return domain.TraitOption{}, fmt.Errorf("選択肢が空です")
	}

	total := 0
	for _, o := range options {
		if o.Weight < 0 {
			return domain.TraitOption{}, fmt.Errorf("選択肢 %q の重みが負です: %d", o.Name, o.Weight)
		}
		total += o.Weight
	}
	if total <= 0 {
		return domain.TraitOption{}, fmt.Errorf("重みの合計が 0 以下です")
	}

	draw := s.src.Float64() * float64(total)
	cumulative := 0.0
	for _, o := range options {
		cumulative += float64(o.Weight)
		if draw <= cumulative && o.Weight > 0 {
			return o, nil
		}
	}

	// 浮動小数点の丸めで走査を抜けた場合
	return options[len(options)-1], nil
}

// Roll は各カテゴリを宣言順に独立して抽選し、1 トークン分の結果を返します。
func (s *Sampler) Roll(categories []domain.TraitCategory) (domain.Selection, error) {
	sel := make(domain.Selection, 0, len(categories))
	for _, cat := range categories {
		opt, err := s.Pick(cat.Options)
		if err != nil {
			return nil, fmt.Errorf("カテゴリ %q の抽選に失敗しました: %w", cat.Name, err)
		}
		sel = append(sel, domain.SelectedTrait{Category: cat.Name, Option: opt})
	}
	return sel, nil
}
