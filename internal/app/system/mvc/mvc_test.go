package mvc

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestDefaultTemplate_Match(t *testing.T) {
	tmpl := MustParseTemplate(DefaultTemplate)

	tests := []struct {
		path                   string
		controller, action, id string
	}{
		{"/", "Home", "Index", ""},
		{"", "Home", "Index", ""},
		{"/Home", "Home", "Index", ""},
		{"/Home/Index", "Home", "Index", ""},
		{"/Home/Index/", "Home", "Index", ""},
		{"/Foo/Bar/5", "Foo", "Bar", "5"},
		{"/posts/details/abc-123", "posts", "details", "abc-123"},
	}
	for _, tt := range tests {
		vals, ok := tmpl.Match(tt.path)
		if !ok {
			t.Errorf("Match(%q) did not match", tt.path)
			continue
		}
		if vals.Controller() != tt.controller || vals.Action() != tt.action || vals.ID() != tt.id {
			t.Errorf("Match(%q) = %v, want %s/%s/%s", tt.path, vals, tt.controller, tt.action, tt.id)
		}
	}
}

func TestDefaultTemplate_OptionalIDIsUnset(t *testing.T) {
	vals, _ := MustParseTemplate(DefaultTemplate).Match("/Foo/Bar")
	if _, present := vals["id"]; present {
		t.Error("omitted optional id should not be set")
	}
}

func TestDefaultTemplate_NoMatch(t *testing.T) {
	tmpl := MustParseTemplate(DefaultTemplate)
	for _, path := range []string{"/a/b/c/d", "/a//c"} {
		if _, ok := tmpl.Match(path); ok {
			t.Errorf("Match(%q) should not match", path)
		}
	}
}

func TestParseTemplate_Literals(t *testing.T) {
	tmpl := MustParseTemplate("admin/{controller}/{action=Index}")
	vals, ok := tmpl.Match("/ADMIN/users")
	if !ok || vals.Controller() != "users" || vals.Action() != "Index" {
		t.Errorf("Match = %v, %v", vals, ok)
	}
	if _, ok := tmpl.Match("/admin"); ok {
		t.Error("required controller should not be omittable")
	}
	if _, ok := tmpl.Match("/other/users"); ok {
		t.Error("literal mismatch should not match")
	}
}

func TestParseTemplate_Errors(t *testing.T) {
	for _, raw := range []string{
		"{controller?}/{action}",
		"{controller=Home}/static",
		"{controller",
		"{}/x",
		"a//b",
	} {
		if _, err := ParseTemplate(raw); err == nil {
			t.Errorf("ParseTemplate(%q) expected error", raw)
		}
	}
}

func newTestRouter() *Router {
	rt := NewRouter(MustParseTemplate(DefaultTemplate), zap.NewNop())
	echo := func(w http.ResponseWriter, r *http.Request) {
		v := RouteValues(r)
		fmt.Fprintf(w, "%s/%s/%s", v.Controller(), v.Action(), v.ID())
	}
	rt.HandleFunc("Home", "Index", echo)
	rt.HandleFunc("Foo", "Bar", echo)
	return rt
}

func TestRouter_Dispatch(t *testing.T) {
	rt := newTestRouter()
	tests := []struct {
		path string
		want string
	}{
		{"/", "Home/Index/"},
		{"/Home/Index", "Home/Index/"},
		{"/home/index", "home/index/"},
		{"/Foo/Bar/5", "Foo/Bar/5"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		rt.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", tt.path, rec.Code)
		}
		if got := rec.Body.String(); got != tt.want {
			t.Errorf("%s: body %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestRouter_UnknownControllerOrAction(t *testing.T) {
	rt := newTestRouter()
	for _, path := range []string{"/Nope", "/Foo/Baz", "/Foo/Bar/5/6"} {
		rec := httptest.NewRecorder()
		rt.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestRouter_CustomNotFound(t *testing.T) {
	rt := newTestRouter()
	rt.NotFound(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, httptest.NewRequest("GET", "/Nope", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected custom not-found handler, got %d", rec.Code)
	}
}

func TestRouter_Resolve(t *testing.T) {
	rt := newTestRouter()
	vals, h, ok := rt.Resolve("/Foo/Bar/5")
	if !ok || h == nil {
		t.Fatal("expected /Foo/Bar/5 to resolve")
	}
	if vals.Controller() != "Foo" || vals.Action() != "Bar" || vals.ID() != "5" {
		t.Errorf("values = %v", vals)
	}
}

func TestRouter_Routes(t *testing.T) {
	got := newTestRouter().Routes()
	if len(got) != 2 || got[0] != "foo/bar" || got[1] != "home/index" {
		t.Errorf("Routes() = %v", got)
	}
}
