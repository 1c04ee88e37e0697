// internal/app/system/middleware/static.go
package middleware

import (
	"net/http"
	"path"
)

// StaticFiles serves regular files under root for GET and HEAD requests.
// Anything else (other methods, directories, missing files) falls through to
// next, so later stages still see the request.
func StaticFiles(root string) func(http.Handler) http.Handler {
	dir := http.Dir(root)
	files := http.FileServer(dir)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			if !isRegularFile(dir, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			files.ServeHTTP(w, r)
		})
	}
}

func isRegularFile(dir http.Dir, urlPath string) bool {
	name := path.Clean("/" + urlPath)
	if name == "/" {
		return false
	}
	f, err := dir.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return false
	}
	return st.Mode().IsRegular()
}
