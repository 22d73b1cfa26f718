package service

import (
	"fmt"
	"strings"
)

// containsMentionTag は text に <@USERID> 形式のメンションタグが含まれるかを返します
func containsMentionTag(text, userID string) bool {
	return strings.Contains(text, fmt.Sprintf("<@%s>", userID))
}

// stripMentionTags は本文から <@...> 形式のメンションタグを取り除きます。
// AIにはタグを除いた実際の質問文だけを渡すために使用します
func stripMentionTags(text string) string {
	words := strings.Fields(text)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if strings.HasPrefix(w, "<@") {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// stripCodeFences はAIが返したJSONを囲むマークダウンのコードフェンスを除去します
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// truncateRunes は s を先頭 n 文字（rune単位）に切り詰めます。
// バイト単位で切るとマルチバイト文字の途中で分断され、
// 不正なUTF-8を外部APIに送ってしまうためrune境界で切ります
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
