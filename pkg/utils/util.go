package utils

// DereferenceSeed は、int64のポインタを安全にデリファレンスします。
// ポインタがnilの場合は0を返します。
func DereferenceSeed(seed *int64) int64 {
	if seed == nil {
		return 0
	}
	return *seed
}

// TokenSeed はベースシードとトークン ID から画像生成用のシードを導出します。
// base が nil の場合は nil を返し、バックエンド側でランダムに決めさせます。
func TokenSeed(base *int64, tokenID int) *int64 {
	if base == nil {
		return nil
	}
	v := *base + int64(tokenID)
	return &v
}
