package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain text", "just a plain description", "just a plain description"},
		{"bold", "[b]Hello[/b] world", "**Hello** world"},
		{"italic", "[i]quiet[/i]", "*quiet*"},
		{"link", "[url=https://example.com]docs[/url]", "[docs](https://example.com)"},
		{"unclosed tag tolerated", "[b]loud", "**loud**"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, n.Normalize(tc.in))
		})
	}
}

func TestNormalize_TrimsWhitespace(t *testing.T) {
	n := NewNormalizer()

	out := n.Normalize("  [b]padded[/b]  ")
	assert.Equal(t, "**padded**", out)
}

func TestNormalize_ConcurrentUse(t *testing.T) {
	n := NewNormalizer()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				n.Normalize("[b]Hello[/b] [i]there[/i]")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
