// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tsundoku/internal/library"
	"github.com/taibuivan/tsundoku/internal/platform/apperr"
	"github.com/taibuivan/tsundoku/pkg/pointer"
)

func TestNormalizePublishedDate(t *testing.T) {
	cases := map[string]string{
		"":                         "",
		"2023":                     "2023-01-01",
		"2023-03":                  "2023-03-01",
		"2023-03-15":               "2023-03-15",
		"2023-03-15T10:00:00.000Z": "2023-03-15",
		"March 5, 2001":            "2001-03-05",
		"Mar 5, 2001":              "2001-03-05",
		"2001/03/05":               "2001-03-05",
		"05/03/2001":               "2001-03-05",
		"sometime soon":            "",
	}

	for input, want := range cases {
		assert.Equal(t, want, NormalizePublishedDate(input), input)
	}
}

func TestBookInput_NormalizeDefaults(t *testing.T) {
	book, err := BookInput{
		Title:         "  Akira ",
		Author:        " Katsuhiro Otomo",
		PublishedDate: "1982",
		ReadDate:      "2024-01-02",
		IsRead:        false,
	}.normalize()
	require.NoError(t, err)

	assert.Equal(t, "Akira", book.Title)
	assert.Equal(t, "Katsuhiro Otomo", book.Author)
	assert.Equal(t, library.ConditionGood, book.Condition)
	assert.Equal(t, "1982-01-01", book.PublishedDate)
	assert.Empty(t, book.ReadDate, "readDate only applies to read books")
}

func TestBookInput_NormalizeCollectsAllViolations(t *testing.T) {
	_, err := BookInput{
		Title:     " ",
		Condition: "broken",
		Rating:    pointer.To(6),
		Volume:    pointer.To(0),
		PageCount: pointer.To(-1),
		Thumbnail: "javascript:alert(1)",
	}.normalize()
	require.Error(t, err)

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)
	assert.Contains(t, appErr.Message, msgTitleRequired)
	assert.Contains(t, appErr.Message, msgAuthorRequired)
	assert.Contains(t, appErr.Message, msgInvalidCondition)
	assert.Contains(t, appErr.Message, msgInvalidRating)
	assert.Len(t, appErr.Details, 7)
}

func TestBookInput_NormalizeAcceptsBounds(t *testing.T) {
	for _, rating := range []int{1, 5} {
		_, err := BookInput{Title: "T", Author: "A", Rating: pointer.To(rating)}.normalize()
		assert.NoError(t, err)
	}

	_, err := BookInput{Title: "T", Author: "A", PageCount: pointer.To(0), Thumbnail: "/book-covers/x.jpg"}.normalize()
	assert.NoError(t, err)

	_, err = BookInput{Title: "T", Author: "A", IsRead: true, ReadDate: "2024-13-40"}.normalize()
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}
