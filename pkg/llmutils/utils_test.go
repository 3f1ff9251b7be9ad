package llmutils_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutumi2011kt-gif/mulmochat/pkg/llmutils"
)

// base64 of the PNG signature
const pngSignature = "iVBORw0KGgo="

func Test_CleanJSON(t *testing.T) {
	args := "\n```json\n\n{\"prompt\": \"a red bicycle\"}\n\n```\n\n"
	expected := "{\"prompt\": \"a red bicycle\"}"
	assert.Equal(t, expected, string(llmutils.CleanJSON([]byte(args))))

	args = "Here you go:\n```json\n\n[{\"text\": \"beat\"}]\n```\n\n"
	expected = "[{\"text\": \"beat\"}]"
	assert.Equal(t, expected, string(llmutils.CleanJSON([]byte(args))))

	args = `{"url":"https://example.com"}`
	assert.Equal(t, args, string(llmutils.CleanJSON([]byte(args))))

	assert.Equal(t, "no json", string(llmutils.CleanJSON([]byte("no json"))))
}

func Test_Truncate(t *testing.T) {
	assert.Equal(t, "hello", llmutils.Truncate("hello", 10))
	assert.Equal(t, "hel", llmutils.Truncate("hello", 3))
	assert.Equal(t, "", llmutils.Truncate("hello", 0))

	// "é" is two bytes
	s := strings.Repeat("é", 5)
	assert.Equal(t, "éé", llmutils.Truncate(s, 5))
	assert.True(t, utf8.ValidString(llmutils.Truncate(s, 5)))
	assert.Equal(t, "日", llmutils.Truncate("日本", 4))
}

func Test_ToJSON(t *testing.T) {
	type Person struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	p := Person{Name: "John", Age: 30}
	assert.Equal(t, `{"name":"John","age":30}`, llmutils.ToJSON(p))
	assert.Equal(t, "{\n\t\"name\": \"John\",\n\t\"age\": 30\n}", llmutils.ToJSONIndent(p))
}

func Test_ToYAML(t *testing.T) {
	type Person struct {
		Name string `yaml:"name"`
		Age  int    `yaml:"age"`
	}
	p := Person{Name: "John", Age: 30}
	assert.Equal(t, "name: John\nage: 30\n", llmutils.ToYAML(p))
}

func Test_DecodeImage(t *testing.T) {
	mime, data, err := llmutils.DecodeImage(pngSignature)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Len(t, data, 8)

	mime, data, err = llmutils.DecodeImage("data:image/jpeg;base64,QQ==")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, []byte("A"), data)

	_, _, err = llmutils.DecodeImage("data:image/jpeg,QQ==")
	assert.EqualError(t, err, "invalid data URL")

	_, _, err = llmutils.DecodeImage("not base64!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid base64 image")
}

func Test_ImageDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,"+pngSignature, llmutils.ImageDataURL(pngSignature))
	// undetected payloads default to png
	assert.Equal(t, "data:image/png;base64,QQ==", llmutils.ImageDataURL("QQ=="))
	assert.Equal(t, "data:image/gif;base64,QQ==", llmutils.ImageDataURL("data:image/gif;base64,QQ=="))
}
