package core

import (
	"strings"
	"unicode"
)

// NormalizeURL turns user input into the canonical absolute URL that gets
// persisted. Inputs without an http(s) scheme get https://. When the host has no
// www. prefix, https://www.<host><path> is returned if it is a well formed URI.
// The path is kept exactly as written; port, query and fragment are not carried
// into the www. form. If the authority cannot be parsed the input is returned
// prefixed with https://.
func NormalizeURL(input string) string {
	longURL := input
	if !strings.HasPrefix(longURL, "http://") && !strings.HasPrefix(longURL, "https://") {
		longURL = "https://" + longURL
	}

	host, path, ok := splitURL(longURL)
	if !ok {
		return "https://" + input
	}
	if strings.HasPrefix(host, "www.") {
		return longURL
	}

	if path == "" {
		path = "/"
	}
	if !uriChars("www."+host, false) || !uriChars(path, true) {
		return longURL
	}
	return "https://www." + host + path
}

// splitURL extracts the raw host and path of an http(s) URL without decoding
// or re-encoding either. It fails on an unterminated IPv6 literal or a
// non-numeric port.
func splitURL(rawURL string) (host, path string, ok bool) {
	rest := rawURL[strings.Index(rawURL, "://")+len("://"):]

	authority := rest
	rest = ""
	if i := strings.IndexAny(authority, "/?#"); i >= 0 {
		authority, rest = authority[:i], authority[i:]
	}
	if i := strings.LastIndexByte(authority, '@'); i >= 0 {
		authority = authority[i+1:]
	}

	host = authority
	var port string
	if strings.HasPrefix(authority, "[") {
		end := strings.IndexByte(authority, ']')
		if end < 0 {
			return "", "", false
		}
		host = authority[:end+1]
		if tail := authority[end+1:]; tail != "" {
			if tail[0] != ':' {
				return "", "", false
			}
			port = tail[1:]
		}
	} else if i := strings.IndexByte(authority, ':'); i >= 0 {
		host, port = authority[:i], authority[i+1:]
	}
	for i := 0; i < len(port); i++ {
		if port[i] < '0' || port[i] > '9' {
			return "", "", false
		}
	}

	if strings.HasPrefix(rest, "/") {
		path = rest
		if i := strings.IndexAny(path, "?#"); i >= 0 {
			path = path[:i]
		}
	}
	return host, path, true
}

// uriChars reports whether s only holds characters legal in a URI authority,
// or in a path when slash is set. Escapes must be complete and non-ASCII
// letters are allowed unless they are spaces or controls.
func uriChars(s string, slash bool) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("-_.!~*'()$,;:@&=+", r):
		case r == '/' && slash:
		case r == '%':
			if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
				return false
			}
		case r >= 0x80 && r != unicode.ReplacementChar:
			if unicode.IsSpace(r) || unicode.IsControl(r) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
