package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ndajr/tinyurl-go/internal/core"
)

func (s *routes) redirectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// "/aB3xYz/" and "/aB3xYz" both carry the code "aB3xYz".
		path := strings.TrimPrefix(r.URL.Path, "/")

		// If the path is empty, it means the request was for the root "/".
		// We redirect to the API documentation page.
		if path == "" {
			http.Redirect(w, r, docsURL, http.StatusFound)
			return
		}
		shortCode := strings.TrimSuffix(path, "/")

		longURL, err := s.api.links.Resolve(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrInvalidCodeShape) {
				http.Redirect(w, r, s.errorPageURL, http.StatusFound)
				return
			}

			s.logger.Error("redirectHandler: failed to resolve code", "code", shortCode, "error", err)
			writeError(w, s.logger, err)
			return
		}

		http.Redirect(w, r, longURL, http.StatusFound)
	}
}

func notFoundPage(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "short link not found", http.StatusNotFound)
}
