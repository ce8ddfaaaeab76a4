package page

import (
	"html/template"
	"maps"
)

// Section is a named region of the page that can be shown or hidden.
type Section string

const (
	SectionAllStories Section = "all-stories"
	SectionFavorites  Section = "favorites"
	SectionMyStories  Section = "my-stories"
	SectionLoginForm  Section = "login-form"
	SectionSignupForm Section = "signup-form"
	SectionSubmitForm Section = "submit-form"
)

// Sections lists every section in page order.
var Sections = []Section{
	SectionLoginForm,
	SectionSignupForm,
	SectionSubmitForm,
	SectionAllStories,
	SectionFavorites,
	SectionMyStories,
}

// Nav is the state of the navigation bar.
type Nav struct {
	MenuVisible   bool   `json:"menuVisible"`
	LoginVisible  bool   `json:"loginVisible"`
	LogoutVisible bool   `json:"logoutVisible"`
	Username      string `json:"username,omitempty"`
}

// View is everything the page shows: which sections are visible, the
// markup inside the list sections, and the nav bar.
type View struct {
	Visible map[Section]bool          `json:"visible"`
	Content map[Section]template.HTML `json:"content"`
	Nav     Nav                       `json:"nav"`
	Error   string                    `json:"error,omitempty"`
}

func newView() *View {
	return &View{
		Visible: make(map[Section]bool),
		Content: make(map[Section]template.HTML),
		Nav:     loggedOutNav(),
	}
}

func loggedOutNav() Nav {
	return Nav{LoginVisible: true}
}

// Clone returns a deep copy of v.
func (v *View) Clone() *View {
	return &View{
		Visible: maps.Clone(v.Visible),
		Content: maps.Clone(v.Content),
		Nav:     v.Nav,
		Error:   v.Error,
	}
}

// HideAll hides every section. Content is kept.
func (v *View) HideAll() {
	clear(v.Visible)
}

func (v *View) Show(sections ...Section) {
	for _, s := range sections {
		v.Visible[s] = true
	}
}

func (v *View) Hide(s Section) {
	delete(v.Visible, s)
}

func (v *View) IsVisible(s Section) bool {
	return v.Visible[s]
}

// VisibleSections returns the visible sections in page order.
func (v *View) VisibleSections() []Section {
	var out []Section
	for _, s := range Sections {
		if v.Visible[s] {
			out = append(out, s)
		}
	}
	return out
}
