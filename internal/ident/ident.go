// Package ident canonicalizes bibliographic identifiers (DOI, ISBN, PMID,
// arXiv ID, URL) so that differently formatted inputs resolve to the same
// database lookup key.
package ident

import (
	"regexp"
	"strings"
)

var (
	doiPrefixes = []string{
		"https://doi.org/",
		"http://doi.org/",
		"https://dx.doi.org/",
		"http://dx.doi.org/",
		"doi.org/",
		"doi:",
	}

	pmidPrefixes = []string{
		"https://pubmed.ncbi.nlm.nih.gov/",
		"pmid:",
	}

	arxivRe  = regexp.MustCompile(`(?i)^(?:https?://arxiv\.org/(?:abs|pdf)/|arxiv:)`)
	schemeRe = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.-]*)://([^/]+)(.*)$`)
)

// DOI strips the common resolver and scheme prefixes and lowercases the
// remainder. DOI names are defined as case-insensitive, so lowercase is
// the canonical form here.
func DOI(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, prefix := range doiPrefixes {
		if strings.HasPrefix(lower, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// ISBN removes hyphens and spaces and uppercases a trailing check digit X.
func ISBN(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return strings.ToUpper(s)
}

// PMID strips URL and "pmid:" prefixes, leaving the bare numeric ID.
func PMID(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, prefix := range pmidPrefixes {
		if strings.HasPrefix(lower, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "/")
}

// Arxiv strips the "arXiv:" prefix and abs/pdf URL forms. The version
// suffix (v1, v2, ...) is kept: different versions are different documents.
func Arxiv(s string) string {
	s = strings.TrimSpace(s)
	s = arxivRe.ReplaceAllString(s, "")
	return strings.TrimSuffix(s, ".pdf")
}

// URL lowercases the scheme and host and drops a single trailing slash.
// Path and query are left untouched, they are case-sensitive.
func URL(s string) string {
	s = strings.TrimSpace(s)
	if m := schemeRe.FindStringSubmatch(s); m != nil {
		s = strings.ToLower(m[1]) + "://" + strings.ToLower(m[2]) + m[3]
	}
	if strings.Count(s, "/") > 2 {
		s = strings.TrimSuffix(s, "/")
	}
	return s
}
