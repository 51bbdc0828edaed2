package ident_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Combjellyshen/ZoteroBridge/internal/ident"
)

func TestDOI(t *testing.T) {
	want := "10.1126/science.aaa2397"

	assert.Equal(t, want, ident.DOI("10.1126/science.aaa2397"))
	assert.Equal(t, want, ident.DOI("https://doi.org/10.1126/science.aaa2397"))
	assert.Equal(t, want, ident.DOI("http://dx.doi.org/10.1126/science.aaa2397"))
	assert.Equal(t, want, ident.DOI("doi:10.1126/science.aaa2397"))
	assert.Equal(t, want, ident.DOI("DOI:10.1126/SCIENCE.AAA2397"))
	assert.Equal(t, want, ident.DOI("  10.1126/science.aaa2397  "))
}

func TestISBN(t *testing.T) {
	assert.Equal(t, "9780134685991", ident.ISBN("978-0-13-468599-1"))
	assert.Equal(t, "9780134685991", ident.ISBN("9780134685991"))
	assert.Equal(t, "9780134685991", ident.ISBN("978 0 13 468599 1"))
	assert.Equal(t, "080442957X", ident.ISBN("0-8044-2957-x"))
}

func TestPMID(t *testing.T) {
	assert.Equal(t, "25766234", ident.PMID("25766234"))
	assert.Equal(t, "25766234", ident.PMID("PMID: 25766234"))
	assert.Equal(t, "25766234", ident.PMID("https://pubmed.ncbi.nlm.nih.gov/25766234/"))
}

func TestArxiv(t *testing.T) {
	assert.Equal(t, "1706.03762", ident.Arxiv("arXiv:1706.03762"))
	assert.Equal(t, "1706.03762", ident.Arxiv("https://arxiv.org/abs/1706.03762"))
	assert.Equal(t, "1706.03762", ident.Arxiv("https://arxiv.org/pdf/1706.03762.pdf"))
	// Version suffixes identify distinct documents and are kept.
	assert.Equal(t, "1706.03762v5", ident.Arxiv("arXiv:1706.03762v5"))
}

func TestURL(t *testing.T) {
	assert.Equal(t, "https://example.com/Path", ident.URL("HTTPS://Example.COM/Path"))
	assert.Equal(t, "https://example.com/path", ident.URL("https://example.com/path/"))
	// Case of path and query is preserved.
	assert.Equal(t, "https://example.com/A?b=C", ident.URL("https://example.com/A?b=C"))
}
