package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は食事の自由入力テキストを無害化するインターフェース。
// 認識サービスへの送信前と保存前に使用される。
type TextSanitizerService interface {
	// SanitizeText はマークアップを全て除去し、連続する空白を1つにまとめたプレーンテキストを返す。
	// script, styleなどの要素は内容ごと除去される。
	SanitizeText(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーは並行利用可能なため1つを共有する。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// 要素を1つも許可しないStrictPolicyを使い、タグ除去時には空白を挿入する。
func NewTextSanitizer() *textSanitizer {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)

	return &textSanitizer{
		policy: p,
	}
}

// SanitizeText はマークアップを除去したプレーンテキストを返す。
// bluemondayがエスケープした文字実体（&amp; など）は元の文字に戻す。
func (s *textSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := html.UnescapeString(s.policy.Sanitize(raw))
	return strings.Join(strings.Fields(cleaned), " ")
}
