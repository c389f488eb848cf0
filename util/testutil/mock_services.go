package testutil

import (
	"net/http"
)

// HttpStringResponder returns a handler that answers every request
// with status, headers and data.
func HttpStringResponder(status int, headers map[string]string, data string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for key, value := range headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(status)
		w.Write([]byte(data))
	}
}
