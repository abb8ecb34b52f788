package templates

import "text/template"

// Branch identifies which cell of the resolution table produced a template.
//
//	                 | no template override  | template override
//	no friendly name | BranchDefault         | BranchOverride
//	friendly name    | BranchDefaultFriendly | BranchFriendlyOverride
//
// A service without an override record behaves like the top-left cell.
type Branch int

const (
	BranchDefault Branch = iota
	BranchOverride
	BranchDefaultFriendly
	BranchFriendlyOverride
)

func (b Branch) String() string {
	switch b {
	case BranchDefault:
		return "default"
	case BranchOverride:
		return "override"
	case BranchDefaultFriendly:
		return "default_friendly"
	case BranchFriendlyOverride:
		return "friendly_override"
	default:
		return "unknown"
	}
}

// Resolution is the template selected for one alert.
// FriendlyName is nil unless the service override sets one.
type Resolution struct {
	Branch       Branch
	Text         string
	FriendlyName *string

	tmpl *template.Template
}

// Render executes the selected template with the alert's name and group and
// the resolved friendly name.
func (r Resolution) Render(name, group string) (string, error) {
	ctx := Context{Name: name, Group: group, FriendlyName: r.FriendlyName}
	if r.tmpl == nil {
		return Render(r.Text, ctx)
	}
	return execute(r.tmpl, r.Text, ctx)
}

// Resolve selects the template text for (group, name, kind). It never fails:
// unknown groups and services fall through to the default pair.
func (s *Store) Resolve(group, name string, kind Kind) Resolution {
	res := s.resolve(group, name, kind)
	res.tmpl = s.compiled[res.Text]
	return res
}

func (s *Store) resolve(group, name string, kind Kind) Resolution {
	svc, _ := s.Lookup(group, name)

	switch classify(svc) {
	case BranchOverride:
		return Resolution{Branch: BranchOverride, Text: svc.Template.Text(kind)}
	case BranchDefaultFriendly:
		return Resolution{Branch: BranchDefaultFriendly, Text: s.defFriendly.Text(kind), FriendlyName: svc.FriendlyName}
	case BranchFriendlyOverride:
		return Resolution{Branch: BranchFriendlyOverride, Text: svc.Template.Text(kind), FriendlyName: svc.FriendlyName}
	default:
		return Resolution{Branch: BranchDefault, Text: s.def.Text(kind)}
	}
}

func classify(svc Service) Branch {
	hasTemplate := svc.Template != nil
	hasName := svc.FriendlyName != nil
	switch {
	case hasTemplate && hasName:
		return BranchFriendlyOverride
	case hasTemplate:
		return BranchOverride
	case hasName:
		return BranchDefaultFriendly
	default:
		return BranchDefault
	}
}
