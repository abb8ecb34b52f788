package templates

import (
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Fields(t *testing.T) {
	out, err := Render("{{.group}}/{{.name}}: {{.friendly_name}}", Context{
		Name:         "api",
		Group:        "web",
		FriendlyName: strPtr("API Gateway"),
	})
	require.NoError(t, err)
	assert.Equal(t, "web/api: API Gateway", out)
}

func TestRender_PlainText(t *testing.T) {
	out, err := Render("all good & quiet <3", Context{Name: "n", Group: "g"})
	require.NoError(t, err)
	assert.Equal(t, "all good & quiet <3", out)
}

func TestRender_AbsentFriendlyName(t *testing.T) {
	_, err := Render("{{.friendly_name}} is down", Context{Name: "api", Group: "web"})
	require.Error(t, err)

	var te *TemplateError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "{{.friendly_name}} is down", te.Text)
}

func TestRender_FriendlyNameNotReferenced(t *testing.T) {
	for _, fn := range []*string{nil, strPtr("API Gateway")} {
		out, err := Render("{{.name}} is down", Context{Name: "api", Group: "web", FriendlyName: fn})
		require.NoError(t, err)
		assert.Equal(t, "api is down", out)
	}
}

func TestRender_EmptyFriendlyNameIsPresent(t *testing.T) {
	out, err := Render("[{{.friendly_name}}]", Context{FriendlyName: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestRender_SyntaxErrors(t *testing.T) {
	for _, text := range []string{
		"{{.name",
		"{{if .name}}unterminated",
		"{{nosuchfunc .name}}",
		"{{end}}",
	} {
		_, err := Render(text, Context{Name: "n", Group: "g"})
		var te *TemplateError
		assert.True(t, errors.As(err, &te), "text %q: want *TemplateError, got %v", text, err)
	}
}

func TestRender_UnknownField(t *testing.T) {
	_, err := Render("{{.description}}", Context{Name: "n", Group: "g", FriendlyName: strPtr("f")})
	var te *TemplateError
	assert.True(t, errors.As(err, &te))
}

func TestRender_Deterministic(t *testing.T) {
	ctx := Context{Name: "primary", Group: "db", FriendlyName: strPtr("Main DB")}
	text := "{{.friendly_name}} ({{.group}}/{{.name}}) is down"

	first, err := Render(text, ctx)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := Render(text, ctx)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestKind_Text(t *testing.T) {
	for _, in := range []string{"TRIGGERED", "triggered", "Triggered", " triggered "} {
		k, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, Triggered, k)
	}
	k, err := ParseKind("resolved")
	require.NoError(t, err)
	assert.Equal(t, Resolved, k)

	_, err = ParseKind("firing")
	assert.Error(t, err)

	var got struct {
		Kind Kind `json:"kind"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"Resolved"}`), &got))
	assert.Equal(t, Resolved, got.Kind)
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"ok"}`), &got))

	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"RESOLVED"}`, string(b))
}
