package sitemap

import (
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/crosslink/internal/model"
	"golang.org/x/net/html/charset"
)

// kind is the root element of a sitemap document.
type kind int

const (
	kindUnknown kind = iota
	kindURLSet
	kindIndex
)

// document is a parsed sitemap. Entries is set for URL sets and Children
// for sitemap indexes.
type document struct {
	kind     kind
	entries  []model.SitemapEntry
	children []string
}

type urlSet struct {
	URLs []model.SitemapEntry `xml:"url"`
}

type sitemapIndex struct {
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

var gzipMagic = []byte{0x1f, 0x8b}

// decompress returns data unchanged unless it starts with the gzip magic.
func decompress(data []byte, limit int64) ([]byte, error) {
	if !bytes.HasPrefix(data, gzipMagic) {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrParse, err) //nolint:errorlint // only the sentinel is matched
	}
	defer zr.Close()

	out, err := readLimited(zr, limit)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, fmt.Errorf("%w after decompression", err)
		}
		return nil, fmt.Errorf("%w: gzip: %v", ErrParse, err) //nolint:errorlint // only the sentinel is matched
	}
	return out, nil
}

// readLimited reads r to the end, failing with ErrTooLarge instead of
// truncating when it holds more than limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

// parse decodes the root element of data and dispatches on its name.
func parse(data []byte) (*document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: no root element", ErrParse)
			}
			return nil, fmt.Errorf("%w: %v", ErrParse, err) //nolint:errorlint // only the sentinel is matched
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "urlset":
			var set urlSet
			if err := dec.DecodeElement(&set, &start); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrParse, err) //nolint:errorlint // only the sentinel is matched
			}
			doc := &document{kind: kindURLSet, entries: make([]model.SitemapEntry, 0, len(set.URLs))}
			for _, u := range set.URLs {
				u.Loc = strings.TrimSpace(u.Loc)
				if u.Loc == "" {
					continue
				}
				u.LastMod = strings.TrimSpace(u.LastMod)
				u.ChangeFreq = strings.TrimSpace(u.ChangeFreq)
				u.Priority = strings.TrimSpace(u.Priority)
				doc.entries = append(doc.entries, u)
			}
			return doc, nil

		case "sitemapindex":
			var idx sitemapIndex
			if err := dec.DecodeElement(&idx, &start); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrParse, err) //nolint:errorlint // only the sentinel is matched
			}
			doc := &document{kind: kindIndex, children: make([]string, 0, len(idx.Sitemaps))}
			for _, s := range idx.Sitemaps {
				if loc := strings.TrimSpace(s.Loc); loc != "" {
					doc.children = append(doc.children, loc)
				}
			}
			return doc, nil

		default:
			return &document{kind: kindUnknown}, nil
		}
	}
}
