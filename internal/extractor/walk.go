package extractor

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

const maxDepth = 10

// urlKeys are object fields read as a single URL; the first present one wins.
var urlKeys = []string{"url", "image_url", "image", "output_url", "video_url"}

// mediaURLPattern matches URLs that end in a media extension or carry one of
// the temporary-file markers used by provider CDNs.
var mediaURLPattern = regexp.MustCompile(`(?i)https?://[^"'\s\\]+(?:\.(?:jpg|jpeg|png|webp|gif|bmp|mp4|mov|webm)|tempfile|output|mj-images)[^"'\s\\]*`)

func firstURLField(obj gjson.Result) string {
	for _, key := range urlKeys {
		v := obj.Get(key)
		if v.Type == gjson.String && strings.HasPrefix(strings.ToLower(strings.TrimSpace(v.Str)), "http") {
			return v.Str
		}
	}
	return ""
}

// walk visits every node of r collecting result URLs.
func walk(r gjson.Result, add func(string), depth int) {
	if depth > maxDepth || !r.Exists() {
		return
	}

	switch {
	case r.IsArray():
		r.ForEach(func(_, item gjson.Result) bool {
			walk(item, add, depth+1)
			return true
		})
	case r.IsObject():
		collectURLs(r.Get("resultUrls"), add)
		if v := r.Get("resultUrl"); v.Type == gjson.String {
			add(v.Str)
		}
		if u := firstURLField(r); u != "" {
			add(u)
		}
		r.ForEach(func(_, value gjson.Result) bool {
			walk(value, add, depth+1)
			return true
		})
	case r.Type == gjson.String:
		s := strings.TrimSpace(r.Str)
		if strings.HasPrefix(strings.ToLower(s), "http") {
			add(s)
			return
		}
		if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
			if doc, ok := parseDocument(s); ok {
				walk(doc, add, depth+1)
			}
		}
	}
}

// scanText is the regex safety net over raw payload text.
func scanText(text string, add func(string)) {
	text = strings.ReplaceAll(text, `\/`, "/")
	for _, match := range mediaURLPattern.FindAllString(text, -1) {
		add(match)
	}
}
