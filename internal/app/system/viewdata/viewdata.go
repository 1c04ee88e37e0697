// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"

	"github.com/ipt-ti2/iptgram/internal/app/system/auth"
)

// Site is the per-process view configuration shared by every page.
type Site struct {
	Name       string
	ImagesPath string
	LoginPath  string
	LogoutPath string
}

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
type BaseVM struct {
	SiteName   string
	ImagesPath string
	LoginPath  string
	LogoutPath string

	// User context (from auth middleware)
	IsLoggedIn  bool
	UserName    string
	DisplayName string

	Title       string
	CurrentPath string
}

// NewBaseVM fills the site and user fields for r.
func NewBaseVM(r *http.Request, site Site, title string) BaseVM {
	vm := BaseVM{
		SiteName:    site.Name,
		ImagesPath:  site.ImagesPath,
		LoginPath:   site.LoginPath,
		LogoutPath:  site.LogoutPath,
		Title:       title,
		CurrentPath: r.URL.Path,
	}
	if u, ok := auth.CurrentUser(r); ok {
		vm.IsLoggedIn = true
		vm.UserName = u.UserName
		vm.DisplayName = u.Name
		if vm.DisplayName == "" {
			vm.DisplayName = u.UserName
		}
	}
	return vm
}
