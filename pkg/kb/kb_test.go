// Tests for knowledge base loading and retrieval.
package kb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDirParsesFrontMatterAndPassages(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "policies.md", `---
title: Company Policies
---
# Remote Work
Employees may work remotely up to three days per week.

# Expenses
Submit receipts within thirty days.
`)
	writeDoc(t, dir, "notes.txt", "ignored")

	base, err := LoadDir(dir)
	require.NoError(t, err)
	require.Equal(t, 2, base.Len())

	assert.Equal(t, "Company Policies", base.chunks[0].Title)
	assert.Equal(t, path, base.chunks[0].Path)
	assert.Equal(t, "Remote Work\nEmployees may work remotely up to three days per week.", base.chunks[0].Text)
	assert.Equal(t, 1, base.chunks[1].Index)
}

func TestLoadDirDefaultsTitleToFileName(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "nested/handbook.md", "Just one paragraph.\n")

	base, err := LoadDir(dir)
	require.NoError(t, err)
	require.Equal(t, 1, base.Len())
	assert.Equal(t, "handbook", base.chunks[0].Title)
}

func TestLoadDirRejectsBrokenFrontMatter(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "bad.md", "---\ntitle: never closed\n")

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated YAML front matter")
}

func TestLoadDirRequiresDirectory(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	_, err = LoadDir("")
	require.Error(t, err)
}

func TestRetrieveRanksByTermOverlap(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.md", `# Vacation
Vacation requests need manager approval.

# Security Policy
All company laptops must use disk encryption per security policy.

# Cafeteria
Lunch is served at noon.
`)

	base, err := LoadDir(dir)
	require.NoError(t, err)

	got := base.Retrieve("What are the company security policies?", 2)
	require.NotEmpty(t, got)
	assert.Contains(t, got[0].Text, "disk encryption")
	for _, c := range got {
		assert.NotContains(t, c.Text, "Lunch")
	}
}

func TestRetrieveLimitsAndHandlesEmptyQueries(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.md", "policy one\n\npolicy two\n\npolicy three\n")

	base, err := LoadDir(dir)
	require.NoError(t, err)

	assert.Len(t, base.Retrieve("policy", 2), 2)
	assert.Empty(t, base.Retrieve("to be or", 3))
	assert.Empty(t, base.Retrieve("policy", 0))

	var nilBase *Base
	assert.Empty(t, nilBase.Retrieve("policy", 3))
	assert.Equal(t, 0, nilBase.Len())
}

func TestStem(t *testing.T) {
	assert.Equal(t, "policy", stem("policies"))
	assert.Equal(t, "laptop", stem("laptops"))
	assert.Equal(t, "access", stem("access"))
	assert.Equal(t, "bus", stem("bus"))
}
