package templates

import (
	"io"
	"regexp"
	"strings"
	"text/template"
	"text/template/parse"

	"github.com/cockroachdb/errors"
)

// Field names available to templates.
const (
	FieldName         = "name"
	FieldGroup        = "group"
	FieldFriendlyName = "friendly_name"
)

// Context is the data a template is rendered with.
type Context struct {
	Name         string
	Group        string
	FriendlyName *string
}

func (c Context) data() map[string]string {
	m := map[string]string{
		FieldName:  c.Name,
		FieldGroup: c.Group,
	}
	if c.FriendlyName != nil {
		m[FieldFriendlyName] = *c.FriendlyName
	}
	return m
}

// TemplateError reports a template that does not parse or that references a
// field the context does not carry.
type TemplateError struct {
	Text string
	Err  error
}

func (e *TemplateError) Error() string {
	return "template: " + e.Err.Error()
}

func (e *TemplateError) Unwrap() error { return e.Err }

func compile(text string) (*template.Template, error) {
	t, err := template.New("message").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, &TemplateError{Text: text, Err: errors.Wrap(err, "parse")}
	}
	return t, nil
}

// Render substitutes ctx into text. A reference to friendly_name when
// ctx.FriendlyName is nil fails instead of producing an empty string.
func Render(text string, ctx Context) (string, error) {
	t, err := compile(text)
	if err != nil {
		return "", err
	}
	return execute(t, text, ctx)
}

func execute(t *template.Template, text string, ctx Context) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, ctx.data()); err != nil {
		return "", &TemplateError{Text: text, Err: errors.Wrap(err, "execute")}
	}
	return sb.String(), nil
}

// validateText compiles text and rejects anything that could only fail at
// request time: references to unknown fields in any branch or defined
// template, calls to undefined templates and single-brace placeholders left
// over from the older {name} syntax. A render with every field present runs
// last.
func validateText(text string) (*template.Template, error) {
	t, err := compile(text)
	if err != nil {
		return nil, err
	}
	for _, tt := range t.Templates() {
		if tt.Tree == nil {
			continue
		}
		if err := checkNode(t, tt.Tree.Root); err != nil {
			return nil, &TemplateError{Text: text, Err: err}
		}
	}
	probe := "probe"
	ctx := Context{Name: probe, Group: probe, FriendlyName: &probe}
	if err := t.Execute(io.Discard, ctx.data()); err != nil {
		return nil, &TemplateError{Text: text, Err: errors.Wrap(err, "execute")}
	}
	return t, nil
}

var legacyPlaceholder = regexp.MustCompile(`\{(` + FieldName + `|` + FieldGroup + `|` + FieldFriendlyName + `)\}`)

func knownField(name string) bool {
	switch name {
	case FieldName, FieldGroup, FieldFriendlyName:
		return true
	}
	return false
}

func checkNode(t *template.Template, node parse.Node) error {
	switch n := node.(type) {
	case nil:
		return nil
	case *parse.ListNode:
		if n == nil {
			return nil
		}
		for _, c := range n.Nodes {
			if err := checkNode(t, c); err != nil {
				return err
			}
		}
	case *parse.TextNode:
		if m := legacyPlaceholder.FindSubmatch(n.Text); m != nil {
			return errors.Newf("%s is not a placeholder, write {{.%s}}", m[0], m[1])
		}
	case *parse.ActionNode:
		return checkNode(t, n.Pipe)
	case *parse.IfNode:
		return checkBranch(t, &n.BranchNode)
	case *parse.RangeNode:
		return checkBranch(t, &n.BranchNode)
	case *parse.WithNode:
		return checkBranch(t, &n.BranchNode)
	case *parse.TemplateNode:
		if t.Lookup(n.Name) == nil {
			return errors.Newf("no such template %q", n.Name)
		}
		return checkNode(t, n.Pipe)
	case *parse.PipeNode:
		if n == nil {
			return nil
		}
		for _, c := range n.Cmds {
			if err := checkNode(t, c); err != nil {
				return err
			}
		}
	case *parse.CommandNode:
		for _, a := range n.Args {
			if err := checkNode(t, a); err != nil {
				return err
			}
		}
	case *parse.ChainNode:
		return checkNode(t, n.Node)
	case *parse.FieldNode:
		if !knownField(n.Ident[0]) {
			return errors.Newf("unknown field %q", n.Ident[0])
		}
	case *parse.VariableNode:
		if n.Ident[0] == "$" && len(n.Ident) > 1 && !knownField(n.Ident[1]) {
			return errors.Newf("unknown field %q", n.Ident[1])
		}
	}
	return nil
}

func checkBranch(t *template.Template, b *parse.BranchNode) error {
	if err := checkNode(t, b.Pipe); err != nil {
		return err
	}
	if err := checkNode(t, b.List); err != nil {
		return err
	}
	return checkNode(t, b.ElseList)
}
