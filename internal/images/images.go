// Package images reads the list of hosted image files exported from the
// image server and turns it into absolute URLs.
package images

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
	"golang.org/x/text/encoding/charmap"

	"github.com/lherron/momcheck/internal/paths"
)

var (
	allowedPrefixes = []string{"./img", "./pics", "./illum/IllUrk", "./mom-italia"}
	deniedPrefixes  = []string{"./illum/IllUrk/thumbnails"}
)

// Use reports whether a listed path belongs to a published image folder
func Use(line string) bool {
	allowed := false
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(line, p) {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	for _, p := range deniedPrefixes {
		if strings.HasPrefix(line, p) {
			return false
		}
	}
	return true
}

// URL rewrites a listed path into an absolute image URL
func URL(line string) string {
	if strings.HasPrefix(line, "./") {
		return paths.ImageBaseURL + "/" + strings.TrimSpace(line[2:])
	}
	return line
}

// Read decodes a Latin-1 file list and returns the URLs of usable images,
// de-duplicated in first-seen order
func Read(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	seen := make(map[string]bool)
	var urls []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !Use(line) {
			continue
		}
		url := URL(line)
		if seen[url] {
			continue
		}
		seen[url] = true
		urls = append(urls, url)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read image list: %w", err)
	}
	return urls, nil
}

// ReadFile reads an image list from disk. Gzip-compressed lists are
// detected by their magic bytes.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image list: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, _ := br.Peek(2)

	var r io.Reader = br
	if bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		gz, err := pgzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip image list: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	return Read(r)
}
