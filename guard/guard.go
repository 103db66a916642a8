// Package guard decides which view a client may see for a path given its
// session. The decision is navigation convenience only: access to data is
// enforced by the backend's row-level rules, not here.
package guard

import "github.com/Dosada05/association-portal/models"

type View string

const (
	ViewLogin          View = "login"
	ViewDashboard      View = "dashboard"
	ViewAdminDashboard View = "admin"
)

const (
	PathRoot      = "/"
	PathLogin     = "/login"
	PathDashboard = "/dashboard"
	PathAdmin     = "/admin"
)

// Notice explains a redirect to the user.
type Notice string

const (
	NoticeNone          Notice = ""
	NoticeAdminRequired Notice = "admin_required"
	NoticeSignedOut     Notice = "signed_out"
)

// Decision is either a view to mount or a path to redirect to.
type Decision struct {
	View     View
	Redirect string
	Notice   Notice
}

func (d Decision) IsRedirect() bool { return d.Redirect != "" }

func mount(v View) Decision { return Decision{View: v} }

func redirect(to string, n Notice) Decision { return Decision{Redirect: to, Notice: n} }

// Resolve maps (path, session) to a decision. ok is false for paths the
// guard does not know about.
func Resolve(path string, s *models.Session) (d Decision, ok bool) {
	signedIn := s != nil

	switch path {
	case PathRoot:
		if signedIn {
			return redirect(PathDashboard, NoticeNone), true
		}
		return redirect(PathLogin, NoticeNone), true

	case PathLogin:
		if signedIn {
			return redirect(PathDashboard, NoticeNone), true
		}
		return mount(ViewLogin), true

	case PathDashboard:
		if !signedIn {
			return redirect(PathLogin, NoticeNone), true
		}
		return mount(ViewDashboard), true

	case PathAdmin:
		if !signedIn {
			return redirect(PathLogin, NoticeNone), true
		}
		if !s.IsAdmin() {
			return redirect(PathDashboard, NoticeAdminRequired), true
		}
		return mount(ViewAdminDashboard), true
	}
	return Decision{}, false
}
