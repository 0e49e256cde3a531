package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/shouni/nft-forge/pkg/domain"
)

// mockGenerator は呼び出し回数に応じて成功・失敗を切り替える ImageGenerator です。
type mockGenerator struct {
	calls    int
	requests []domain.ImageGenerationRequest
	// failOn は失敗させる呼び出し番号 (1 始まり) の集合です。
	failOn map[int]bool
	// onCall は各呼び出しの直前に実行されます。
	onCall func(call int)
	data   []byte
}

func (m *mockGenerator) GenerateImage(ctx context.Context, req domain.ImageGenerationRequest) (*domain.ImageResponse, error) {
	m.calls++
	m.requests = append(m.requests, req)
	if m.onCall != nil {
		m.onCall(m.calls)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.failOn[m.calls] {
		return nil, fmt.Errorf("backend unavailable (call %d)", m.calls)
	}
	data := m.data
	if data == nil {
		data = []byte("png")
	}
	return &domain.ImageResponse{Data: data, MimeType: "image/png"}, nil
}

type published struct {
	tokenID int
	sel     domain.Selection
}

type mockPublisher struct {
	published []published
	failOn    map[int]bool // 呼び出し番号 (1 始まり)
	calls     int
}

func (m *mockPublisher) Publish(ctx context.Context, tokenID int, sel domain.Selection, image []byte) (string, string, error) {
	m.calls++
	if m.failOn[m.calls] {
		return "", "", errors.New("disk full")
	}
	m.published = append(m.published, published{tokenID: tokenID, sel: sel})
	return fmt.Sprintf("images/%d.png", tokenID), fmt.Sprintf("metadata/%d.json", tokenID), nil
}

// sequenceRoller は呼び出し毎に異なる選択肢を返します。再抽選の確認用です。
type sequenceRoller struct {
	calls int
}

func (r *sequenceRoller) Roll(categories []domain.TraitCategory) (domain.Selection, error) {
	r.calls++
	sel := make(domain.Selection, 0, len(categories))
	for _, c := range categories {
		opt := c.Options[(r.calls-1)%len(c.Options)]
		sel = append(sel, domain.SelectedTrait{Category: c.Name, Option: opt})
	}
	return sel, nil
}

type joinBuilder struct{}

func (joinBuilder) Build(sel domain.Selection) string {
	return sel.String()
}
