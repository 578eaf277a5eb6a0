// Package ingest turns spreadsheet exports into the ordered row maps
// the run aggregator consumes. It deliberately knows nothing about
// field semantics; header names pass through untouched and the record
// layer sorts out synonyms.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
)

// Rows is an ordered sequence of raw row mappings keyed by CSV header.
type Rows []map[string]string

// Parse reads CSV from r. The first non-empty record is the header;
// every following record becomes one row map. Short records leave the
// remaining columns absent rather than empty.
func Parse(r io.Reader) (Rows, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows Rows
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		row := make(map[string]string, len(header))
		empty := true
		for i, v := range rec {
			if i >= len(header) || header[i] == "" {
				continue
			}
			v = strings.TrimSpace(v)
			row[header[i]] = v
			if v != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseFile reads CSV rows from a local file.
func ParseFile(path string) (Rows, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

var sheetsShareRE = regexp.MustCompile(`^/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// ExportURL converts a Google Sheets share link into its CSV export
// endpoint, preserving the gid when the link carries one. Non-Sheets
// URLs come back unchanged so plain CSV links keep working.
func ExportURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse source url: %w", err)
	}
	if u.Host != "docs.google.com" {
		return raw, nil
	}
	m := sheetsShareRE.FindStringSubmatch(u.Path)
	if m == nil {
		return "", fmt.Errorf("unrecognized google sheets url: %s", raw)
	}
	out := fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", m[1])
	if gid := sheetGID(u); gid != "" {
		out += "&gid=" + gid
	}
	return out, nil
}

func sheetGID(u *url.URL) string {
	if gid := u.Query().Get("gid"); gid != "" {
		return gid
	}
	frag := u.Fragment
	if i := strings.Index(frag, "gid="); i >= 0 {
		gid := frag[i+len("gid="):]
		if j := strings.IndexAny(gid, "&/"); j >= 0 {
			gid = gid[:j]
		}
		return gid
	}
	return ""
}

// Fetch downloads and parses rows from a CSV or Google Sheets URL.
func Fetch(client *http.Client, rawURL string) (Rows, error) {
	if client == nil {
		client = http.DefaultClient
	}
	src, err := ExportURL(rawURL)
	if err != nil {
		return nil, err
	}
	resp, err := client.Get(src)
	if err != nil {
		return nil, fmt.Errorf("fetch rows: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch rows: unexpected status %s", resp.Status)
	}
	return Parse(resp.Body)
}
