// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrUnsupportedURL is returned by [Scraper.Scrape] for pages outside Bedetheque and BDGest.
var ErrUnsupportedURL = errors.New("search: unsupported album url")

// scrapeHosts maps accepted domains to the base used for relative links.
var scrapeHosts = map[string]string{
	"bedetheque.com": "https://www.bedetheque.com/",
	"bdgest.com":     "https://www.bdgest.com/",
}

var (
	albumHeading   = regexp.MustCompile(`(?i)^(?:Tome\s*)?(\d+)\s*[-.:]?\s*(.*)$`)
	legalDeposit   = regexp.MustCompile(`(?:(\d{1,2})/)?(?:(\d{1,2})/)?(\d{4})`)
	frenchDate     = regexp.MustCompile(`(?i)(\d{1,2})\s+([a-zéû]+)\s+(\d{4})`)
	digitsOnly     = regexp.MustCompile(`\d+`)
	editionInfoTag = regexp.MustCompile(`(?i)^\s*Info\s+édition\s*:?\s*`)
)

var frenchMonths = map[string]string{
	"janvier": "01", "février": "02", "fevrier": "02", "mars": "03", "avril": "04",
	"mai": "05", "juin": "06", "juillet": "07", "août": "08", "aout": "08",
	"septembre": "09", "octobre": "10", "novembre": "11", "décembre": "12", "decembre": "12",
}

// Scraper extracts album metadata from Bedetheque and BDGest pages.
type Scraper struct {
	client *http.Client
}

// NewScraper creates a scraper. A nil client uses a 15 second timeout.
func NewScraper(client *http.Client) *Scraper {
	if client == nil {
		client = NewHTTPClient(15 * time.Second)
	}
	return &Scraper{client: client}
}

// baseFor returns the link base for an accepted album URL.
func baseFor(rawURL string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	for domain, base := range scrapeHosts {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return base, true
		}
	}
	return "", false
}

/*
Scrape downloads an album page and extracts a [Candidate].

Description: Each field is extracted independently; a missing block leaves the
field empty without failing the whole page.

Returns:
  - *Candidate
  - error: ErrUnsupportedURL, transport or status failures
*/
func (scraper *Scraper) Scrape(ctx context.Context, rawURL string) (*Candidate, error) {
	base, ok := baseFor(rawURL)
	if !ok {
		return nil, ErrUnsupportedURL
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(rawURL), nil)
	if err != nil {
		return nil, ErrUnsupportedURL
	}
	request.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	request.Header.Set("Accept", "text/html,application/xhtml+xml")
	request.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")

	response, err := scraper.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("search: scrape fetch failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, fmt.Errorf("%w %d", errStatus, response.StatusCode)
	}

	document, err := goquery.NewDocumentFromReader(response.Body)
	if err != nil {
		return nil, fmt.Errorf("search: scrape parse failed: %w", err)
	}

	candidate := parseAlbum(document, base)
	candidate.ID = "bd_" + albumID(request.URL)
	return candidate, nil
}

func parseAlbum(document *goquery.Document, base string) *Candidate {
	series := text(document.Find("div.bandeau-info h1 a").First())
	title, volume := albumTitle(document, series)

	return &Candidate{
		Source:        SourceBedetheque,
		Title:         title,
		Volume:        volume,
		Authors:       authorsOrUnknown(albumAuthors(document)),
		Publisher:     albumPublisher(document),
		PublishedDate: albumDate(document),
		ThumbnailURL:  albumCover(document, base),
		ISBN:          albumISBN(document),
		Description:   albumDescription(document),
		PageCount:     albumPages(document),
		Categories:    []string{"Comics & Graphic Novels"},
	}
}

// albumTitle prefers "Series - Album" from the heading, then the itemprop name, then h3.titre.
func albumTitle(document *goquery.Document, series string) (string, int) {
	if heading := text(document.Find("div.bandeau-info h2").First()); heading != "" {
		if match := albumHeading.FindStringSubmatch(heading); match != nil {
			volume, _ := strconv.Atoi(match[1])
			return joinTitle(series, strings.TrimSpace(match[2])), volume
		}
		return joinTitle(series, heading), 0
	}

	if name, ok := document.Find(`meta[itemprop="name"]`).First().Attr("content"); ok && strings.TrimSpace(name) != "" {
		name = strings.TrimSpace(name)
		if series != "" {
			name = strings.TrimSpace(strings.TrimLeft(strings.TrimPrefix(name, series), " -:"))
		}
		return joinTitle(series, name), 0
	}

	if heading := text(document.Find("h3.titre").First()); heading != "" {
		return titleOrUnknown(strings.TrimSpace(strings.TrimSuffix(heading, "DP"))), 0
	}

	return titleOrUnknown(series), 0
}

func joinTitle(series, album string) string {
	switch {
	case series == "":
		return titleOrUnknown(album)
	case album == "" || strings.EqualFold(series, album):
		return series
	default:
		return series + " - " + album
	}
}

func albumAuthors(document *goquery.Document) []string {
	var authors []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		for _, existing := range authors {
			if existing == name {
				return
			}
		}
		if name != "" {
			authors = append(authors, name)
		}
	}

	document.Find(`div.bandeau-info h3 a[href*="auteur-"] span`).Each(func(_ int, node *goquery.Selection) {
		add(text(node))
	})
	if len(authors) > 0 {
		return authors
	}

	document.Find("ul.infos li").Each(func(_ int, item *goquery.Selection) {
		switch strings.TrimSpace(strings.TrimSuffix(text(item.Find("label").First()), ":")) {
		case "Scénario", "Dessin", "Couleurs":
			item.Find("a").Each(func(_ int, link *goquery.Selection) { add(text(link)) })
		}
	})
	return authors
}

func albumPublisher(document *goquery.Document) string {
	if publisher := text(document.Find(`div.bandeau-info h3 span[itemprop="publisher"]`).First()); publisher != "" {
		return publisher
	}
	return text(infoItem(document, "Editeur").Find("a").First())
}

// albumDate returns YYYY-MM-DD, YYYY-MM or YYYY depending on what the page carries.
func albumDate(document *goquery.Document) string {
	if release := text(document.Find("span.parution").First()); release != "" {
		if match := frenchDate.FindStringSubmatch(release); match != nil {
			if month, ok := frenchMonths[strings.ToLower(match[2])]; ok {
				return fmt.Sprintf("%s-%s-%s", match[3], month, zeroPad(match[1]))
			}
		}
	}

	if deposit := strings.TrimSpace(strings.TrimPrefix(text(infoItem(document, "Dépot légal")), "Dépot légal")); deposit != "" {
		if match := legalDeposit.FindStringSubmatch(strings.TrimLeft(deposit, ": ")); match != nil {
			switch {
			case match[1] != "" && match[2] != "":
				return fmt.Sprintf("%s-%s-%s", match[3], zeroPad(match[2]), zeroPad(match[1]))
			case match[1] != "":
				return fmt.Sprintf("%s-%s", match[3], zeroPad(match[1]))
			default:
				return match[3]
			}
		}
	}

	if year := digitsOnly.FindString(text(document.Find("span.annee").First())); len(year) == 4 {
		return year
	}
	return ""
}

func albumCover(document *goquery.Document, base string) string {
	cover, _ := document.Find("div.bandeau-image a.zoom-format-icon").First().Attr("href")
	if strings.TrimSpace(cover) == "" {
		cover, _ = document.Find(`div.bandeau-image img[itemprop="image"]`).First().Attr("src")
	}
	return resolve(base, strings.TrimSpace(cover))
}

func albumISBN(document *goquery.Document) []string {
	value := text(document.Find(`ul.infos li span[itemprop="isbn"]`).First())
	if value == "" {
		document.Find("ul.infos li").EachWithBreak(func(_ int, item *goquery.Selection) bool {
			label := text(item.Find("label").First())
			if strings.Contains(label, "ISBN") {
				value = strings.TrimSpace(strings.TrimPrefix(text(item), label))
				return false
			}
			return true
		})
	}

	value = strings.Trim(cleanISBN(value), ":")
	if len(value) < 10 {
		return nil
	}
	return []string{value}
}

func albumDescription(document *goquery.Document) string {
	var description string
	document.Find("div.autres p").EachWithBreak(func(_ int, paragraph *goquery.Selection) bool {
		if content := text(paragraph); strings.Contains(content, "Info édition") {
			description = strings.TrimSpace(editionInfoTag.ReplaceAllString(content, ""))
			return false
		}
		return true
	})
	if description == "" {
		description = text(document.Find(`div[itemprop="description"]`).First())
	}
	return description
}

func albumPages(document *goquery.Document) int {
	pages, _ := strconv.Atoi(digitsOnly.FindString(text(document.Find(`span[itemprop="numberOfPages"]`).First())))
	return pages
}

// infoItem returns the ul.infos entry whose label starts with prefix.
func infoItem(document *goquery.Document, prefix string) *goquery.Selection {
	return document.Find("ul.infos li").FilterFunction(func(_ int, item *goquery.Selection) bool {
		return strings.HasPrefix(text(item.Find("label").First()), prefix)
	}).First()
}

func text(selection *goquery.Selection) string {
	return strings.Join(strings.Fields(selection.Text()), " ")
}

func zeroPad(value string) string {
	if len(value) == 1 {
		return "0" + value
	}
	return value
}

func resolve(base, ref string) string {
	if ref == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	target, err := baseURL.Parse(ref)
	if err != nil {
		return ref
	}
	if target.Scheme == "http" {
		target.Scheme = "https"
	}
	return target.String()
}

// albumID is the last path segment without the .html suffix.
func albumID(target *url.URL) string {
	path := strings.Trim(target.Path, "/")
	if index := strings.LastIndex(path, "/"); index >= 0 {
		path = path[index+1:]
	}
	return strings.TrimSuffix(path, ".html")
}
