package arxiv

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Authors    []atomAuthor   `xml:"author"`
	Links      []atomLink     `xml:"link"`
	Categories []atomCategory `xml:"category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

// errorIDPrefix marks the pseudo-entry arXiv returns for malformed queries.
const errorIDPrefix = "http://arxiv.org/api/errors"

// parseFeed decodes an Atom feed into candidates.
// pdfBase builds the artifact URL when an entry has no PDF link.
func parseFeed(r io.Reader, pdfBase string) ([]domain.Candidate, error) {
	var feed atomFeed
	if err := xml.NewDecoder(r).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding atom feed: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		if strings.HasPrefix(e.ID, errorIDPrefix) {
			return nil, &APIError{Message: collapse(e.Summary), URL: e.ID}
		}

		id := entryID(e.ID)
		if id == "" {
			continue
		}

		c := domain.Candidate{
			ID:          id,
			Title:       collapse(e.Title),
			Summary:     collapse(e.Summary),
			ArtifactURL: pdfLink(e.Links),
		}
		if c.ArtifactURL == "" {
			c.ArtifactURL = strings.TrimSuffix(pdfBase, "/") + "/" + id
		}
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
			c.PublishedAt = t
		}
		for _, a := range e.Authors {
			if name := collapse(a.Name); name != "" {
				c.Authors = append(c.Authors, name)
			}
		}
		for _, cat := range e.Categories {
			if cat.Term != "" {
				c.Categories = append(c.Categories, cat.Term)
			}
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// entryID turns "http://arxiv.org/abs/2301.01234v2" into "2301.01234v2".
// Old-style identifiers keep their archive prefix ("hep-th/9901001v1").
func entryID(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "/abs/"); i >= 0 {
		return raw[i+len("/abs/"):]
	}
	return raw
}

func pdfLink(links []atomLink) string {
	for _, l := range links {
		if l.Title == "pdf" && l.Href != "" {
			return l.Href
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
