// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jsonServer answers every request with handler and counts the hits.
func jsonServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestGoogleBooks_Search(t *testing.T) {
	server, _ := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		assert.Equal(t, "akira", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"items":[
			{"id":"a1","volumeInfo":{"title":"Akira","authors":["Katsuhiro Otomo"],"publishedDate":"1984"}},
			{"id":"a2","volumeInfo":{"title":"AKIRA","authors":["katsuhiro otomo"],"description":"<b>Neo</b> Tokyo","pageCount":360,
				"imageLinks":{"thumbnail":"http://books.google.com/a2.jpg"},
				"industryIdentifiers":[{"type":"ISBN_13","identifier":"9781935429005"},{"type":"OTHER","identifier":"x"}]}},
			{"id":"b1","volumeInfo":{}}
		]}`))
	})

	candidates, err := NewGoogleBooks(server.URL, server.Client()).Search(context.Background(), "akira")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "google_a2", candidates[0].ID)
	assert.Equal(t, "Neo Tokyo", candidates[0].Description)
	assert.Equal(t, "https://books.google.com/a2.jpg", candidates[0].ThumbnailURL)
	assert.Equal(t, []string{"9781935429005"}, candidates[0].ISBN)

	assert.Equal(t, unknownTitle, candidates[1].Title)
	assert.Equal(t, []string{unknownAuthor}, candidates[1].Authors)
}

func TestGoogleBooks_ISBNFallsBackToPlainQuery(t *testing.T) {
	var queries []string
	server, _ := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		if len(queries) == 1 {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"id":"x","volumeInfo":{"title":"Blacksad"}}]}`))
	})

	candidates, err := NewGoogleBooks(server.URL, server.Client()).Search(context.Background(), "978-2-205-04922-8")
	require.NoError(t, err)
	assert.Equal(t, []string{"isbn:9782205049228", "9782205049228"}, queries)
	assert.Len(t, candidates, 1)
}

func TestGoogleBooks_ClientErrorIsNotRetried(t *testing.T) {
	server, hits := jsonServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := NewGoogleBooks(server.URL, server.Client()).Search(context.Background(), "dune")
	require.ErrorIs(t, err, errStatus)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGoogleBooks_ServerErrorIsRetried(t *testing.T) {
	server, hits := jsonServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := NewGoogleBooks(server.URL, server.Client()).Search(context.Background(), "dune")
	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestOpenLibrary_MergesLookups(t *testing.T) {
	server, _ := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Query().Has("q"):
			_, _ = w.Write([]byte(`{"docs":[{"key":"/works/OL1W","title":"Dune","author_name":["Frank Herbert"],
				"cover_i":42,"first_publish_year":1965,"subject":["a","b","c","d"],"isbn":["1","2","3"],
				"publisher":["Chilton"],"first_sentence":["In the week before their departure."]}]}`))
		case r.URL.Query().Has("title"):
			_, _ = w.Write([]byte(`{"docs":[{"key":"/works/OL1W","title":"Dune"},{"title":"Dune Messiah","subtitle":"Book two","publish_year":[1969]}]}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	candidates, err := NewOpenLibrary(server.URL, server.Client()).Search(context.Background(), "dune")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	dune := candidates[0]
	assert.Equal(t, "ol_OL1W", dune.ID)
	assert.Equal(t, "https://covers.openlibrary.org/b/id/42-M.jpg", dune.ThumbnailURL)
	assert.Equal(t, "1965", dune.PublishedDate)
	assert.Equal(t, []string{"a", "b", "c"}, dune.Categories)
	assert.Equal(t, []string{"1", "2"}, dune.ISBN)
	assert.Equal(t, "Chilton", dune.Publisher)
	assert.Equal(t, "In the week before their departure.", dune.Description)

	messiah := candidates[1]
	assert.Equal(t, "Book two", messiah.Description)
	assert.Equal(t, "1969", messiah.PublishedDate)
}

func TestOpenLibrary_FailsWhenEveryLookupFails(t *testing.T) {
	server, _ := jsonServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := NewOpenLibrary(server.URL, server.Client()).Search(context.Background(), "dune")
	assert.Error(t, err)
}

func staticKey(key string) KeyFunc {
	return func(context.Context) (string, error) { return key, nil }
}

func TestComicVine_Search(t *testing.T) {
	server, _ := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		assert.Equal(t, "volume", r.URL.Query().Get("resources"))
		_, _ = w.Write([]byte(`{"error":"OK","results":[
			{"id":4050,"name":"Saga","publisher":{"name":"Image"},"description":"<p>Space opera</p>",
			 "image":{"medium_url":"https://comicvine.gamespot.com/m.jpg"},"start_year":"2012","count_of_issues":54},
			{"id":7,"name":"Orphan","start_year":null}
		]}`))
	})

	candidates, err := NewComicVine(server.URL, staticKey("secret"), server.Client()).Search(context.Background(), "saga")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, Candidate{
		ID:            "cv_4050",
		Source:        SourceComicVine,
		Title:         "Saga",
		Authors:       []string{"Image"},
		Publisher:     "Image",
		Description:   "Space opera",
		ThumbnailURL:  "https://comicvine.gamespot.com/m.jpg",
		PublishedDate: "2012",
		PageCount:     54,
		Categories:    []string{"Comics", "Graphic Novel"},
	}, candidates[0])
	assert.Equal(t, []string{"Éditeur inconnu"}, candidates[1].Authors)
	assert.Empty(t, candidates[1].PublishedDate)
}

func TestComicVine_KeyErrors(t *testing.T) {
	server, hits := jsonServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Invalid API Key","results":[]}`))
	})

	_, err := NewComicVine(server.URL, staticKey(" "), server.Client()).Search(context.Background(), "saga")
	require.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Zero(t, hits.Load())

	_, err = NewComicVine(server.URL, staticKey("bad"), server.Client()).Search(context.Background(), "saga")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestLooseString(t *testing.T) {
	var value looseString
	for input, expected := range map[string]string{`"2012"`: "2012", `1999`: "1999", `null`: ""} {
		require.NoError(t, value.UnmarshalJSON([]byte(input)))
		assert.Equal(t, expected, string(value), input)
	}
}

func TestMangaDex_Search(t *testing.T) {
	server, _ := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manga", r.URL.Path)
		assert.Equal(t, []string{"fr", "en"}, r.URL.Query()["availableTranslatedLanguage[]"])
		_, _ = w.Write([]byte(`{"data":[
			{"id":"m1","attributes":{
				"title":{"en":"Monster","fr":"Monstre"},"description":{"en":"A doctor."},
				"year":1994,"lastChapter":"162","publicationDemographic":"seinen",
				"tags":[{"attributes":{"group":"genre","name":{"en":"Thriller"}}},{"attributes":{"group":"theme","name":{"en":"Doctors"}}}]},
			 "relationships":[
				{"type":"author","attributes":{"name":"Naoki Urasawa"}},
				{"type":"artist","attributes":{"name":"Naoki Urasawa"}},
				{"type":"cover_art","attributes":{"fileName":"c.jpg"}}]},
			{"id":"m2","attributes":{"title":{"ja-ro":"Yotsuba to!"},"lastChapter":""},"relationships":[]}
		]}`))
	})

	candidates, err := NewMangaDex(server.URL, server.Client()).Search(context.Background(), "monster")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	monster := candidates[0]
	assert.Equal(t, "md_m1", monster.ID)
	assert.Equal(t, "Monstre", monster.Title)
	assert.Equal(t, []string{"Naoki Urasawa"}, monster.Authors)
	assert.Equal(t, "A doctor.", monster.Description)
	assert.Equal(t, "1994", monster.PublishedDate)
	assert.Equal(t, 162, monster.PageCount)
	assert.Equal(t, "seinen", monster.Publisher)
	assert.Equal(t, []string{"Thriller"}, monster.Categories)
	assert.Equal(t, "https://uploads.mangadex.org/covers/m1/c.jpg.256.jpg", monster.ThumbnailURL)

	yotsuba := candidates[1]
	assert.Equal(t, "Yotsuba to!", yotsuba.Title)
	assert.Equal(t, []string{unknownAuthor}, yotsuba.Authors)
	assert.Equal(t, []string{"Manga"}, yotsuba.Categories)
	assert.Equal(t, "Manga", yotsuba.Publisher)
	assert.Empty(t, yotsuba.ThumbnailURL)
}

func TestIsISBN(t *testing.T) {
	assert.True(t, isISBN("978-2-205-04922-8"))
	assert.True(t, isISBN("020161622X"))
	assert.False(t, isISBN("X201616220"))
	assert.False(t, isISBN("akira"))
	assert.False(t, isISBN("12345"))
}
