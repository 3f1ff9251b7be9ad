package llmutils

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// CleanJSON returns JSON by trimming prefixes and postfixes,
// as the model can reply with arguments like
// `Here you go: {json}`
func CleanJSON(bs []byte) []byte {
	trimmedPrefix := trimPrefixBeforeJSON(bs)
	trimmedJSON := trimPostfixAfterJSON(trimmedPrefix)
	return trimmedJSON
}

// Removes any prefixes before the JSON (like "Sure, here you go:")
func trimPrefixBeforeJSON(bs []byte) []byte {
	startObject := bytes.IndexByte(bs, '{')
	startArray := bytes.IndexByte(bs, '[')

	var start int
	if startObject == -1 && startArray == -1 {
		return bs
	} else if startObject == -1 {
		start = startArray
	} else if startArray == -1 {
		start = startObject
	} else {
		start = min(startObject, startArray)
	}

	return bs[start:]
}

// Removes any postfixes after the JSON
func trimPostfixAfterJSON(bs []byte) []byte {
	endObject := bytes.LastIndexByte(bs, '}')
	endArray := bytes.LastIndexByte(bs, ']')

	var end int
	if endObject == -1 && endArray == -1 {
		return bs
	} else if endObject == -1 {
		end = endArray
	} else if endArray == -1 {
		end = endObject
	} else {
		end = max(endObject, endArray)
	}

	return bs[:end+1]
}

// Truncate returns s cut to at most maxBytes,
// without splitting a UTF-8 sequence.
func Truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	if maxBytes <= 0 {
		return ""
	}
	end := maxBytes
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}

func ToJSON(val any) string {
	js, _ := json.Marshal(val)
	return string(js)
}

func ToJSONIndent(val any) string {
	js, _ := json.MarshalIndent(val, "", "\t")
	return string(js)
}

func ToYAML(val any) string {
	js, _ := yaml.Marshal(val)
	return string(js)
}

const dataURLPrefix = "data:"

// DecodeImage decodes a base64 image payload, either raw or in the
// `data:<mime>;base64,<payload>` form, and returns its MIME type and bytes.
func DecodeImage(s string) (string, []byte, error) {
	mimeType := ""
	payload := strings.TrimSpace(s)
	if strings.HasPrefix(payload, dataURLPrefix) {
		header, data, ok := strings.Cut(payload[len(dataURLPrefix):], ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return "", nil, errors.New("invalid data URL")
		}
		mimeType = strings.TrimSuffix(header, ";base64")
		payload = data
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Wrap(err, "invalid base64 image")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return mimeType, data, nil
}

// ImageDataURL returns the `data:` URL of a base64 image payload.
// Payloads that already are data URLs are returned as is.
func ImageDataURL(b64 string) string {
	if strings.HasPrefix(b64, dataURLPrefix) {
		return b64
	}
	mimeType := "image/png"
	if data, err := base64.StdEncoding.DecodeString(b64); err == nil {
		if detected := http.DetectContentType(data); strings.HasPrefix(detected, "image/") {
			mimeType = detected
		}
	}
	return dataURLPrefix + mimeType + ";base64," + b64
}
