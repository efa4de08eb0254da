package workflow

// State is where a Session is in its lifecycle.
type State int

const (
	Loading State = iota
	Ready
	Submitting
	Saved
	Failed
	Deleting
	Deleted
	// Redirect means the session is no longer valid; the presentation should send the operator
	// to LoginPath.
	Redirect
)

// LoginPath is the entry point a redirected session points to.
const LoginPath = "/login"

var stateNames = map[State]string{
	Loading:    "loading",
	Ready:      "ready",
	Submitting: "submitting",
	Saved:      "saved",
	Failed:     "failed",
	Deleting:   "deleting",
	Deleted:    "deleted",
	Redirect:   "redirect",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further intent can change the session.
func (s State) Terminal() bool {
	return s == Deleted || s == Redirect
}
