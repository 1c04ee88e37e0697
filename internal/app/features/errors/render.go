// internal/app/features/errors/render.go
package errors

import (
	"net/http"

	shared "github.com/ipt-ti2/iptgram/internal/app/features/shared/views"
)

type devExceptionData struct {
	Panic  string
	Method string
	URI    string
	Stack  string
}

type statusData struct {
	Title   string
	Message string
}

func renderDevException(w http.ResponseWriter, r *http.Request, panicValue, stack string) {
	shared.RenderStatus(w, r, "error_dev", http.StatusInternalServerError, devExceptionData{
		Panic:  panicValue,
		Method: r.Method,
		URI:    r.URL.RequestURI(),
		Stack:  stack,
	})
}

func renderStatusPage(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	shared.RenderStatus(w, r, "error_status", status, statusData{Title: title, Message: message})
}
