package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleInput struct {
	Title    string            `form:"title" validate:"min=3"`
	UserID   string            `form:"userId" validate:"required"`
	Image    string            `form:"imageUrl" validate:"omitempty,httpurl"`
	Tags     []string          `form:"tags" validate:"max=3,dive,max=5"`
	Username string            `form:"username" validate:"omitempty,username"`
	Links    map[string]string `form:"socialLinks" validate:"dive,keys,oneof=twitter github,endkeys,httpurl"`
}

func validSample() sampleInput {
	return sampleInput{Title: "abc", UserID: "u1"}
}

func TestFields_Valid(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Fields(validSample()))
}

func TestFields_Messages(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*sampleInput)
		field  string
		substr string
	}{
		{"short title", func(s *sampleInput) { s.Title = "ab" }, "title", "at least 3"},
		{"missing user", func(s *sampleInput) { s.UserID = "" }, "userId", "required"},
		{"bad image url", func(s *sampleInput) { s.Image = "ftp://x" }, "imageUrl", "URL"},
		{"too many tags", func(s *sampleInput) { s.Tags = []string{"a", "b", "c", "d"} }, "tags", "at most 3 entries"},
		{"long tag", func(s *sampleInput) { s.Tags = []string{"toolong"} }, "tags", "at most 5"},
		{"bad username", func(s *sampleInput) { s.Username = "no spaces" }, "username", "letters"},
		{"unknown social key", func(s *sampleInput) { s.Links = map[string]string{"myspace": "https://x.io"} }, "socialLinks.myspace", "one of"},
		{"bad social url", func(s *sampleInput) { s.Links = map[string]string{"github": "not a url"} }, "socialLinks.github", "URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validSample()
			tt.mutate(&in)
			errs := Fields(in)
			if assert.Contains(t, errs, tt.field) {
				assert.Contains(t, strings.Join(errs[tt.field], " "), tt.substr)
			}
		})
	}
}

func TestFields_RuneCount(t *testing.T) {
	t.Parallel()
	in := validSample()
	in.Title = "日本語"
	assert.Nil(t, Fields(in))
}

func TestIsHTTPURL(t *testing.T) {
	t.Parallel()
	assert.True(t, IsHTTPURL("https://example.com/a.png"))
	assert.True(t, IsHTTPURL("http://localhost:8080"))
	assert.False(t, IsHTTPURL("example.com"))
	assert.False(t, IsHTTPURL("javascript:alert(1)"))
	assert.False(t, IsHTTPURL(""))
}

func TestIsUsername(t *testing.T) {
	t.Parallel()
	assert.True(t, IsUsername("jane.doe_42"))
	assert.False(t, IsUsername("jane-doe"))
	assert.False(t, IsUsername(""))
}

func TestParseTags(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"go", "web dev", "rust"}, ParseTags(" Go, web dev ,,GO, Rust "))
	assert.Empty(t, ParseTags(""))
	assert.Empty(t, ParseTags(" , ,"))
}
