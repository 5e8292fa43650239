package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// ParseJSONOrError decodes the request body into dest and writes a 400 on
// failure. The response carries a fixed message rather than the decoder
// error, so malformed bodies do not echo internals back to the client.
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		WriteBadRequest(w, "invalid request body")
		return false
	}
	return true
}

// ParsePathInt64 parses an int64 route variable. Project, team, and user
// ids all travel as int64 path segments.
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return 0, fmt.Errorf("missing path parameter: %s", key)
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, nil
}

// ParseQueryInt returns the integer query parameter, or def when the
// parameter is absent or malformed. Listing endpoints treat a bad limit
// or offset as unset rather than rejecting the request.
func ParseQueryInt(r *http.Request, key string, def int) int {
	str := r.URL.Query().Get(key)
	if str == "" {
		return def
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return def
	}
	return val
}

// ParseQueryString returns the string query parameter, or def when absent.
func ParseQueryString(r *http.Request, key, def string) string {
	if val := r.URL.Query().Get(key); val != "" {
		return val
	}
	return def
}

// RequireNonEmpty writes a validation error and returns false when value
// is empty.
func RequireNonEmpty(w http.ResponseWriter, value, fieldName string) bool {
	if value == "" {
		WriteValidationError(w, fmt.Sprintf("%s is required", fieldName))
		return false
	}
	return true
}

// RequireNonZero writes a validation error and returns false when value
// is zero. Used for id fields, where zero means the client omitted them.
func RequireNonZero(w http.ResponseWriter, value int64, fieldName string) bool {
	if value == 0 {
		WriteValidationError(w, fmt.Sprintf("%s is required", fieldName))
		return false
	}
	return true
}
