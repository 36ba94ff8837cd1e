// Package llmjson extracts JSON payloads from free-form LLM replies.
//
// Model output is untrusted text: it may wrap JSON in markdown fences, add
// prose before or after it, or contain no JSON at all. Extraction never
// fails loudly; callers get an empty result and a debug log line.
package llmjson

import (
	"regexp"
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/bearwatch/internal/logger"
)

var (
	fencedArray  = regexp.MustCompile("(?i)```json\\s*(\\[[\\s\\S]*?\\])\\s*```")
	fencedObject = regexp.MustCompile("(?i)```json\\s*(\\{[\\s\\S]*?\\})\\s*```")
)

func getLogger() logger.Logger {
	return logger.Global().Module("llmjson")
}

// ExtractArray returns the elements of the JSON array embedded in text.
// A fenced ```json block is tried first, then the span between the first
// '[' and the last ']'. Anything unparseable yields an empty slice.
func ExtractArray(text string) []*jason.Value {
	if m := fencedArray.FindStringSubmatch(text); m != nil {
		if items, ok := parseArray(m[1]); ok {
			return items
		}
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		if items, ok := parseArray(text[start : end+1]); ok {
			return items
		}
	}

	getLogger().Debug("No JSON array found in model reply",
		logger.Int("reply_length", len(text)),
		logger.String("preview", preview(text)))
	return []*jason.Value{}
}

// ExtractObject returns the JSON object embedded in text, using the same
// two-tier strategy as ExtractArray with braces instead of brackets.
func ExtractObject(text string) (*jason.Object, bool) {
	if m := fencedObject.FindStringSubmatch(text); m != nil {
		if obj, err := jason.NewObjectFromBytes([]byte(m[1])); err == nil {
			return obj, true
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if obj, err := jason.NewObjectFromBytes([]byte(text[start : end+1])); err == nil {
			return obj, true
		}
	}

	getLogger().Debug("No JSON object found in model reply",
		logger.Int("reply_length", len(text)),
		logger.String("preview", preview(text)))
	return nil, false
}

func parseArray(raw string) ([]*jason.Value, bool) {
	v, err := jason.NewValueFromBytes([]byte(raw))
	if err != nil {
		return nil, false
	}
	items, err := v.Array()
	if err != nil {
		return nil, false
	}
	return items, true
}

func preview(text string) string {
	const maxPreview = 200
	runes := []rune(text)
	if len(runes) > maxPreview {
		return logger.RedactSensitiveData(string(runes[:maxPreview])) + "..."
	}
	return logger.RedactSensitiveData(text)
}
