package templates

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Pair holds the text posted when an alert triggers (down) and when it
// resolves (up).
type Pair struct {
	Triggered string
	Resolved  string
}

// Text returns the template text for kind.
func (p Pair) Text(kind Kind) string {
	if kind == Resolved {
		return p.Resolved
	}
	return p.Triggered
}

// Service is the optional per-service override. Either field may be nil.
type Service struct {
	FriendlyName *string
	Template     *Pair
}

// Store is the loaded template configuration. It is immutable.
type Store struct {
	def         Pair
	defFriendly Pair
	services    map[string]map[string]Service
	count       int

	// compiled holds every parsed template keyed by its text. Execution does
	// not modify a template, so the entries are shared across requests.
	compiled map[string]*template.Template
}

// ConfigError reports a template document that cannot be served.
// Field is the dotted location of the problem, empty for parse failures.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Format selects the document syntax accepted by Parse.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension.
// Anything other than .yaml or .yml is treated as TOML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// document mirrors the persisted layout. Pointers distinguish "absent" from
// "empty" so required sections can be reported.
type document struct {
	Default         *rawPair                         `toml:"default" yaml:"default"`
	DefaultFriendly *rawPair                         `toml:"default-friendly" yaml:"default-friendly"`
	Service         map[string]map[string]rawService `toml:"service" yaml:"service"`
}

type rawPair struct {
	Down *string `toml:"down-template" yaml:"down-template"`
	Up   *string `toml:"up-template" yaml:"up-template"`
}

type rawService struct {
	FriendlyName *string  `toml:"friendly-name" yaml:"friendly-name"`
	Template     *rawPair `toml:"template" yaml:"template"`
}

// Load reads and validates the template document at path.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "templates: read %q", path)
	}
	st, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, errors.Wrapf(err, "templates: %q", path)
	}
	return st, nil
}

// Parse decodes a template document. Unknown keys, missing sections and
// templates that do not compile are all rejected.
func Parse(data []byte, format Format) (*Store, error) {
	var doc document
	if err := decode(data, format, &doc); err != nil {
		return nil, &ConfigError{Err: err}
	}

	def, err := doc.Default.pair("default")
	if err != nil {
		return nil, err
	}
	defFriendly, err := doc.DefaultFriendly.pair("default-friendly")
	if err != nil {
		return nil, err
	}

	services := make(map[string]map[string]Service, len(doc.Service))
	for group, names := range doc.Service {
		services[group] = make(map[string]Service, len(names))
		for name, raw := range names {
			svc := Service{FriendlyName: raw.FriendlyName}
			if raw.Template != nil {
				p, err := raw.Template.pair("service." + group + "." + name + ".template")
				if err != nil {
					return nil, err
				}
				svc.Template = &p
			}
			services[group][name] = svc
		}
	}

	return NewStore(def, defFriendly, services)
}

func decode(data []byte, format Format, doc *document) error {
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(doc); err != nil && !errors.Is(err, io.EOF) {
			return errors.Wrap(err, "parse yaml")
		}
		return nil
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(doc); err != nil {
			return errors.Wrap(err, "parse toml")
		}
		return nil
	default:
		return errors.Newf("unsupported format %q", format)
	}
}

func (r *rawPair) pair(field string) (Pair, error) {
	if r == nil {
		return Pair{}, &ConfigError{Field: field, Err: errors.New("section is required")}
	}
	if r.Down == nil {
		return Pair{}, &ConfigError{Field: field, Err: errors.New("down-template is required")}
	}
	if r.Up == nil {
		return Pair{}, &ConfigError{Field: field, Err: errors.New("up-template is required")}
	}
	return Pair{Triggered: *r.Down, Resolved: *r.Up}, nil
}

// NewStore builds a Store from already decoded values and checks that every
// template compiles. The services map is copied.
func NewStore(def, defFriendly Pair, services map[string]map[string]Service) (*Store, error) {
	st := &Store{
		def:         def,
		defFriendly: defFriendly,
		services:    make(map[string]map[string]Service, len(services)),
		compiled:    make(map[string]*template.Template),
	}
	if err := st.checkPair("default", def); err != nil {
		return nil, err
	}
	if err := st.checkPair("default-friendly", defFriendly); err != nil {
		return nil, err
	}

	// Sorted so the first reported error is stable.
	for _, group := range sortedKeys(services) {
		names := services[group]
		cp := make(map[string]Service, len(names))
		for _, name := range sortedKeys(names) {
			svc := names[name]
			if svc.Template != nil {
				if err := st.checkPair("service."+group+"."+name+".template", *svc.Template); err != nil {
					return nil, err
				}
				tpl := *svc.Template
				svc.Template = &tpl
			}
			if svc.FriendlyName != nil {
				fn := *svc.FriendlyName
				svc.FriendlyName = &fn
			}
			cp[name] = svc
			st.count++
		}
		st.services[group] = cp
	}
	return st, nil
}

func (s *Store) checkPair(field string, p Pair) error {
	if err := s.compile(p.Triggered); err != nil {
		return &ConfigError{Field: field + ".down-template", Err: err}
	}
	if err := s.compile(p.Resolved); err != nil {
		return &ConfigError{Field: field + ".up-template", Err: err}
	}
	return nil
}

func (s *Store) compile(text string) error {
	if _, ok := s.compiled[text]; ok {
		return nil
	}
	t, err := validateText(text)
	if err != nil {
		return err
	}
	s.compiled[text] = t
	return nil
}

// Lookup returns the override for (group, name), if any.
func (s *Store) Lookup(group, name string) (Service, bool) {
	svc, ok := s.services[group][name]
	return svc, ok
}

// Default returns the pair used when no friendly name is known.
func (s *Store) Default() Pair { return s.def }

// DefaultFriendly returns the pair used for services with a friendly name
// but no template of their own.
func (s *Store) DefaultFriendly() Pair { return s.defFriendly }

// Len returns the number of per-service overrides.
func (s *Store) Len() int { return s.count }

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
