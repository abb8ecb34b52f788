// Package templates holds the message template configuration and turns an
// alert into post text.
//
// A Store is loaded once from a TOML or YAML document:
//
//	[default]
//	down-template = "{{.group}}/{{.name}} is down"
//	up-template   = "{{.group}}/{{.name}} is back up"
//
//	[default-friendly]
//	down-template = "{{.friendly_name}} is down"
//	up-template   = "{{.friendly_name}} is back up"
//
//	[service.web.api]
//	friendly-name = "API Gateway"
//
//	[service.web.api.template]
//	down-template = "..."
//	up-template   = "..."
//
// Resolve picks one template text for (group, name, kind) following a fixed
// decision table (see Branch). Render substitutes name, group and
// friendly_name into that text using text/template; referencing an absent
// friendly_name is an error rather than a blank.
//
// Every text is compiled once at load. Load fails on unknown fields anywhere
// in a text, including branches and define blocks, and on old-style {name}
// placeholders.
//
// A Store is never mutated after load and is safe for concurrent use.
package templates
