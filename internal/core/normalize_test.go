package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bare host", input: "example.com", want: "https://www.example.com/"},
		{name: "bare host with path", input: "example.com/a/b", want: "https://www.example.com/a/b"},
		{name: "http is upgraded in www form", input: "http://example.com", want: "https://www.example.com/"},
		{name: "query and port are dropped", input: "https://example.com:8443/p?q=1#x", want: "https://www.example.com/p"},
		{name: "subdomain gets www", input: "docs.example.com", want: "https://www.docs.example.com/"},
		{name: "www already present", input: "www.example.com", want: "https://www.example.com"},
		{name: "www already present with scheme", input: "http://www.example.com/x?y=1", want: "http://www.example.com/x?y=1"},
		{name: "ipv6 host cannot take www", input: "[::1]:8080/x", want: "https://[::1]:8080/x"},
		{name: "unparsable host falls back", input: "exa mple.com", want: "https://exa mple.com"},
		{name: "empty host still takes www", input: "https://", want: "https://www./"},
		{name: "space in path keeps plain form", input: "example.com/a b", want: "https://example.com/a b"},
		{name: "pipe in path keeps plain form", input: "example.com/a|b", want: "https://example.com/a|b"},
		{name: "braces in path keep plain form", input: "example.com/{id}", want: "https://example.com/{id}"},
		{name: "caret in path keeps plain form", input: "example.com/a^b", want: "https://example.com/a^b"},
		{name: "quote in path keeps plain form", input: `example.com/"q"`, want: `https://example.com/"q"`},
		{name: "angle brackets in path keep plain form", input: "example.com/<x>", want: "https://example.com/<x>"},
		{name: "broken escape keeps plain form", input: "example.com/100%", want: "https://example.com/100%"},
		{name: "escapes are kept verbatim", input: "example.com/a%20b", want: "https://www.example.com/a%20b"},
		{name: "non-ascii path is kept raw", input: "example.com/café", want: "https://www.example.com/café"},
		{name: "non-ascii host", input: "bücher.de/x", want: "https://www.bücher.de/x"},
		{name: "userinfo is dropped from www form", input: "user@example.com/x", want: "https://www.example.com/x"},
		{name: "query only", input: "example.com?q=a b", want: "https://www.example.com/"},
		{name: "non-numeric port falls back", input: "example.com:abc/x", want: "https://example.com:abc/x"},
		{name: "non-numeric port with scheme falls back", input: "http://example.com:http", want: "https://http://example.com:http"},
		{name: "unterminated ipv6 falls back", input: "[::1/x", want: "https://[::1/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizeURL(tt.input))
		})
	}
}

func TestNormalizeURL_SchemelessInputs(t *testing.T) {
	tests := []struct {
		input   string
		withWWW bool
	}{
		{input: "example.com", withWWW: true},
		{input: "a.b.c/d", withWWW: true},
		{input: "localhost", withWWW: true},
		{input: "example.org/path/with%20escape", withWWW: true},
		{input: "[::1]", withWWW: false},
		{input: "x y", withWWW: false},
		{input: "example.com/a b", withWWW: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out := NormalizeURL(tt.input)
			require.True(t, strings.HasPrefix(out, "https://"))
			require.Equal(t, tt.withWWW, strings.HasPrefix(out, "https://www."), out)
		})
	}
}

func TestNormalizeURL_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		require.Equal(t, "https://www.example.com/", NormalizeURL("example.com"))
	}
}
