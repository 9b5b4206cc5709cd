// Package extractor finds result media URLs inside provider payloads.
//
// Known provider shapes are read by named adapters. Anything they miss is
// picked up by a generic walk over the JSON, and when that still yields at
// most one URL a regex scan over the raw text is used as a last resort.
// Extraction never fails: malformed input simply contributes nothing.
package extractor

import (
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultExcludedHosts lists substrings of URLs that are never results:
// provider API endpoints and chat/CDN hosts that show up in payload metadata.
var DefaultExcludedHosts = []string{
	"api.kie.ai",
	"api.wavespeed.ai",
	"discord.com",
	"google",
}

// Source 是一次提取所需的任务字段。
type Source struct {
	Provider   string
	TaskResult string
	TaskInfo   string
	RawData    string
}

// Extractor is safe for concurrent use once built.
type Extractor struct {
	excluded []string
	adapters []adapter
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithExcludedHosts replaces the excluded host list. Empty entries are ignored.
func WithExcludedHosts(hosts ...string) Option {
	return func(e *Extractor) {
		e.excluded = normalizeHosts(hosts)
	}
}

// New builds an Extractor with every known provider adapter registered.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		excluded: normalizeHosts(DefaultExcludedHosts),
		adapters: knownAdapters(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func normalizeHosts(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}

// Extract returns the deduplicated media URLs of src in order of discovery.
// extra carries additional raw payloads, e.g. the latest provider response.
func (e *Extractor) Extract(src Source, extra ...[]byte) []string {
	texts := make([]string, 0, 3+len(extra))
	for _, s := range []string{src.TaskResult, src.TaskInfo, src.RawData} {
		if strings.TrimSpace(s) != "" {
			texts = append(texts, s)
		}
	}
	for _, raw := range extra {
		if len(raw) > 0 {
			texts = append(texts, string(raw))
		}
	}
	return e.ExtractTexts(src.Provider, texts...)
}

// ExtractTexts runs the extraction over raw payload texts.
func (e *Extractor) ExtractTexts(provider string, texts ...string) []string {
	c := newCollector(e.isExcluded)

	docs := make([]gjson.Result, 0, len(texts))
	for _, text := range texts {
		if doc, ok := parseDocument(text); ok {
			docs = append(docs, doc)
		}
	}

	for _, a := range e.adaptersFor(provider) {
		for _, doc := range docs {
			a.extract(doc, c.add)
		}
	}

	if c.len() == 0 {
		for _, doc := range docs {
			walk(doc, c.add, 0)
		}
	}

	if c.len() <= 1 {
		for _, text := range texts {
			scanText(text, c.add)
		}
	}
	return c.urls
}

func (e *Extractor) adaptersFor(provider string) []adapter {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider != "" {
		for _, a := range e.adapters {
			if a.matches(provider) {
				return []adapter{a}
			}
		}
	}
	return e.adapters
}

func (e *Extractor) isExcluded(url string) bool {
	lower := strings.ToLower(url)
	for _, host := range e.excluded {
		if strings.Contains(lower, host) {
			return true
		}
	}
	// 服务商的轮询接口，如 .../api/v3/predictions/{id}/result
	return strings.Contains(lower, "/api/") && strings.Contains(lower, "/predictions/")
}

// parseDocument unwraps JSON documents, including JSON encoded inside strings.
func parseDocument(text string) (gjson.Result, bool) {
	text = strings.TrimSpace(text)
	for i := 0; i < maxDepth && text != ""; i++ {
		if !gjson.Valid(text) {
			return gjson.Result{}, false
		}
		doc := gjson.Parse(text)
		if doc.Type != gjson.String {
			return doc, doc.IsObject() || doc.IsArray()
		}
		text = strings.TrimSpace(doc.Str)
	}
	return gjson.Result{}, false
}

type collector struct {
	seen     map[string]struct{}
	urls     []string
	excluded func(string) bool
}

func newCollector(excluded func(string) bool) *collector {
	return &collector{
		seen:     make(map[string]struct{}),
		urls:     []string{},
		excluded: excluded,
	}
}

func (c *collector) add(raw string) {
	url := cleanURL(raw)
	if !isHTTPURL(url) || c.excluded(url) {
		return
	}
	if _, ok := c.seen[url]; ok {
		return
	}
	c.seen[url] = struct{}{}
	c.urls = append(c.urls, url)
}

func (c *collector) len() int {
	return len(c.urls)
}

func cleanURL(raw string) string {
	url := strings.TrimSpace(raw)
	url = strings.ReplaceAll(url, `\/`, "/")
	url = strings.Trim(url, `"'\`)
	return strings.TrimSpace(url)
}

func isHTTPURL(s string) bool {
	lower := strings.ToLower(s)
	return (strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")) &&
		!strings.ContainsAny(s, " \t\n")
}
