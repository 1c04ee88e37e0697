// Package navigation provides helpers for safe URL navigation and redirects.
package navigation

import (
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
)

// ReturnURLParam is the query/form parameter the auth challenge appends to
// the login path.
const ReturnURLParam = "ReturnUrl"

// ReturnURL extracts the ReturnUrl carried by a challenged request and
// returns it only if it is a safe local path; otherwise fallback.
func ReturnURL(r *http.Request, fallback string) string {
	ret := urlutil.SafeReturn(query.Get(r, ReturnURLParam), "", "")
	if ret == "" {
		ret = urlutil.SafeReturn(strings.TrimSpace(r.FormValue(ReturnURLParam)), "", "")
	}
	if ret == "" {
		return fallback
	}
	return ret
}
