package extractor

import (
	"strings"

	"github.com/tidwall/gjson"
)

// adapter reads the result URLs of one provider's response shape.
type adapter struct {
	name    string
	aliases []string
	paths   []string
}

func (a adapter) matches(provider string) bool {
	if provider == a.name {
		return true
	}
	for _, alias := range a.aliases {
		if strings.Contains(provider, alias) {
			return true
		}
	}
	return false
}

func (a adapter) extract(doc gjson.Result, add func(string)) {
	for _, path := range a.paths {
		collectURLs(getPath(doc, path), add)
	}
}

// getPath resolves a gjson path, descending into JSON that is stored as a
// string at any "@json" marked segment (e.g. "data.resultJson@json.resultUrls").
func getPath(doc gjson.Result, path string) gjson.Result {
	current := doc
	for {
		idx := strings.Index(path, "@json")
		if idx < 0 {
			return current.Get(path)
		}
		inner := current.Get(path[:idx])
		embedded, ok := parseDocument(inner.String())
		if !ok {
			return gjson.Result{}
		}
		current = embedded
		path = strings.TrimPrefix(path[idx+len("@json"):], ".")
		if path == "" {
			return current
		}
	}
}

// collectURLs adds string values found in r. Arrays are flattened and
// objects contribute their url-like fields.
func collectURLs(r gjson.Result, add func(string)) {
	switch {
	case !r.Exists():
		return
	case r.IsArray():
		r.ForEach(func(_, item gjson.Result) bool {
			collectURLs(item, add)
			return true
		})
	case r.IsObject():
		if v := r.Get("resultUrl"); v.Type == gjson.String {
			add(v.Str)
		}
		if u := firstURLField(r); u != "" {
			add(u)
		}
	case r.Type == gjson.String:
		add(r.Str)
	}
}

func knownAdapters() []adapter {
	return []adapter{
		{
			name:    "kie",
			aliases: []string{"kie"},
			paths: []string{
				"resultUrls",
				"data.resultUrls",
				"data.response.resultUrls",
				"data.info.resultUrls",
				"data.resultJson@json.resultUrls",
				"data.resultJson@json.resultUrl",
				"resultJson@json.resultUrls",
			},
		},
		{
			name:    "wavespeed",
			aliases: []string{"wavespeed"},
			paths: []string{
				"data.outputs",
				"outputs",
			},
		},
		{
			name:    "fal",
			aliases: []string{"fal"},
			paths: []string{
				"images",
				"image",
				"video",
				"response.images",
				"response.video",
				"output",
				"outputs",
			},
		},
		{
			name:    "dashscope",
			aliases: []string{"dashscope", "aliyun", "qwen"},
			paths: []string{
				"output.video_url",
				"output.video_urls",
				"output.results",
				"output.choices.#.message.content.#.image",
			},
		},
		{
			name:    "midjourney",
			aliases: []string{"midjourney", "mj"},
			paths: []string{
				"data.resultInfoJson.resultUrls",
				"resultInfoJson.resultUrls",
				"imageUrls",
			},
		},
	}
}
