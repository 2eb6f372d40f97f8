// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package textkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "one piece", Fold("  One PIECE "))
	assert.Equal(t, Fold("Astérix"), Fold("Astérix"))
	assert.Equal(t, Fold("STRASSE"), Fold("straße"))
}

func TestPair(t *testing.T) {
	assert.Equal(t, Pair("Akira", "Katsuhiro Otomo"), Pair(" AKIRA", "katsuhiro otomo "))
	assert.NotEqual(t, Pair("ab", "c"), Pair("a", "bc"))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("Blacksad", "blacksad"))
	assert.False(t, Equal("Blacksad", "Black sad"))
}
