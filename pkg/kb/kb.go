// Package kb loads a directory of markdown documents and retrieves the
// passages most relevant to a question.
package kb

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Chunk is one retrievable passage.
type Chunk struct {
	Title string
	Path  string
	Index int
	Text  string

	terms map[string]struct{}
}

// Base is an in-memory knowledge base.
type Base struct {
	chunks []Chunk
}

// docFrontMatter mirrors the optional YAML front matter of a document.
type docFrontMatter struct {
	Title string `yaml:"title"`
}

// LoadDir loads every markdown document under dir.
func LoadDir(dir string) (*Base, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("knowledge base directory is empty")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool {
		return strings.ToLower(paths[i]) < strings.ToLower(paths[j])
	})

	base := &Base{}
	for _, path := range paths {
		chunks, err := parseDocument(path)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		base.chunks = append(base.chunks, chunks...)
	}
	return base, nil
}

// Len returns the number of chunks.
func (b *Base) Len() int {
	if b == nil {
		return 0
	}
	return len(b.chunks)
}

// Retrieve returns up to k chunks sharing the most terms with query, best
// first. Chunks sharing no terms are never returned.
func (b *Base) Retrieve(query string, k int) []Chunk {
	if b == nil || k <= 0 {
		return nil
	}
	queryTerms := terms(query)
	if len(queryTerms) == 0 {
		return nil
	}

	type scored struct {
		idx   int
		score int
	}
	var hits []scored
	for i, c := range b.chunks {
		score := 0
		for t := range queryTerms {
			if _, ok := c.terms[t]; ok {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{idx: i, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]Chunk, 0, len(hits))
	for _, h := range hits {
		out = append(out, b.chunks[h.idx])
	}
	return out
}

func parseDocument(path string) ([]Chunk, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fm, body, err := splitFrontMatter(string(content))
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(fm.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	var chunks []Chunk
	for i, text := range splitPassages(body) {
		chunks = append(chunks, Chunk{
			Title: title,
			Path:  path,
			Index: i,
			Text:  text,
			terms: terms(title + " " + text),
		})
	}
	return chunks, nil
}

// splitFrontMatter extracts optional YAML front matter from the file content.
func splitFrontMatter(content string) (docFrontMatter, string, error) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return docFrontMatter{}, content, nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return docFrontMatter{}, "", fmt.Errorf("unterminated YAML front matter")
	}

	var fm docFrontMatter
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &fm); err != nil {
		return docFrontMatter{}, "", err
	}
	return fm, strings.Join(lines[end+1:], "\n"), nil
}

// splitPassages breaks a markdown body into paragraphs, each prefixed with
// the heading it falls under.
func splitPassages(body string) []string {
	var (
		out     []string
		heading string
		para    []string
	)
	flush := func() {
		text := strings.TrimSpace(strings.Join(para, "\n"))
		para = para[:0]
		if text == "" {
			return
		}
		if heading != "" {
			text = heading + "\n" + text
		}
		out = append(out, text)
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			flush()
			heading = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		case trimmed == "":
			flush()
		default:
			para = append(para, trimmed)
		}
	}
	flush()
	return out
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "are": {}, "for": {}, "what": {}, "which": {}, "with": {},
	"you": {}, "your": {}, "our": {}, "how": {}, "does": {}, "can": {}, "this": {},
	"that": {}, "from": {}, "have": {}, "has": {}, "was": {}, "were": {}, "about": {},
	"there": {}, "their": {}, "they": {}, "will": {}, "who": {}, "when": {}, "where": {},
}

// terms returns the normalised content words of text.
func terms(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out[stem(w)] = struct{}{}
	}
	return out
}

// stem folds simple English plurals.
func stem(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		return w[:len(w)-1]
	default:
		return w
	}
}
