package catalog

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Canonicalize は名前を単語ごとに先頭大文字、残りを小文字にした正規形へ変換する。
// 連続する空白は1つにまとめ、前後の空白は除去する。
// "pug", "PUG", " pug " はいずれも "Pug" になる。
func Canonicalize(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	return string(unicode.ToUpper(r)) + strings.ToLower(word[size:])
}
