// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package textkey builds comparison keys for human-entered text.
//
// # Usage
//
// Keys detect duplicate titles regardless of letter case or Unicode
// composition ("Astérix" typed with a combining accent equals the precomposed form).
package textkey

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold trims s, normalizes it to NFC and applies Unicode case folding.
func Fold(s string) string {
	// cases.Caser is stateful, so each call gets its own.
	folder := cases.Fold()
	return folder.String(norm.NFC.String(strings.TrimSpace(s)))
}

// Pair returns the key of a (title, author) couple.
func Pair(title, author string) string {
	return Fold(title) + "\x00" + Fold(author)
}

// Equal reports whether a and b have the same key.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}
