package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/services"
	"github.com/desertthunder/mixsync/internal/shared"
	"gopkg.in/yaml.v3"
)

// DefaultRecencySize is the window of a recency rule without a "size".
const DefaultRecencySize = 20

// Definition is one record of the rules file.
type Definition struct {
	ID         int            `json:"id" yaml:"id"`
	Type       string         `json:"type" yaml:"type"`
	Name       string         `json:"name" yaml:"name"`
	Desc       string         `json:"desc" yaml:"desc"`
	Visibility string         `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Data       map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// RuleNotFoundError reports a rule id missing from the registry.
type RuleNotFoundError struct {
	ID int
}

func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("rule %d not found", e.ID)
}

func (e *RuleNotFoundError) Unwrap() error {
	return shared.ErrRuleNotFound
}

// UnknownRuleTypeError reports a type tag outside the dispatch table.
type UnknownRuleTypeError struct {
	Type string
}

func (e *UnknownRuleTypeError) Error() string {
	return fmt.Sprintf("unknown rule type %q", e.Type)
}

func (e *UnknownRuleTypeError) Unwrap() error {
	return shared.ErrUnknownRuleType
}

type constructor func(def Definition, now time.Time) (Rule, error)

// ruleTypes maps the type tags accepted in the rules file to a [Kind].
var ruleTypes = map[string]Kind{
	"recents":     KindRecency,
	"recent mix":  KindRecency,
	"artist mix":  KindArtistSet,
	"decades mix": KindDateRange,
	"date mix":    KindDateRange,
}

var constructors = map[Kind]constructor{
	KindRecency:   newRecencyRule,
	KindArtistSet: newArtistSetRule,
	KindDateRange: newDateRangeRule,
}

// KindOf returns the [Kind] for a type tag.
func KindOf(typ string) (Kind, error) {
	kind, ok := ruleTypes[strings.ToLower(strings.TrimSpace(typ))]
	if !ok {
		return 0, &UnknownRuleTypeError{Type: typ}
	}
	return kind, nil
}

// Build constructs the [Rule] a definition describes. now supplies the default end year of date rules.
func Build(def Definition, now time.Time) (Rule, error) {
	kind, err := KindOf(def.Type)
	if err != nil {
		return nil, err
	}
	return constructors[kind](def, now)
}

func newRecencyRule(def Definition, _ time.Time) (Rule, error) {
	size, ok, err := intField(def.Data, "size")
	if err != nil {
		return nil, fmt.Errorf("%w: rule %d: %v", shared.ErrInvalidRule, def.ID, err)
	}
	if !ok {
		size = DefaultRecencySize
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: rule %d: size must be positive, got %d", shared.ErrInvalidRule, def.ID, size)
	}
	return RecencyRule{WindowSize: size}, nil
}

func newArtistSetRule(def Definition, _ time.Time) (Rule, error) {
	var names []string
	switch v := def.Data["artists"].(type) {
	case []string:
		names = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: rule %d: artists must be strings, got %T", shared.ErrInvalidRule, def.ID, item)
			}
			names = append(names, s)
		}
	case nil:
	default:
		return nil, fmt.Errorf("%w: rule %d: artists must be a list, got %T", shared.ErrInvalidRule, def.ID, v)
	}

	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			cleaned = append(cleaned, name)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: rule %d: artists must not be empty", shared.ErrInvalidRule, def.ID)
	}
	return ArtistSetRule{ArtistNames: cleaned}, nil
}

func newDateRangeRule(def Definition, now time.Time) (Rule, error) {
	start, _, err := intField(def.Data, "start")
	if err != nil {
		return nil, fmt.Errorf("%w: rule %d: %v", shared.ErrInvalidRule, def.ID, err)
	}
	end, ok, err := intField(def.Data, "end")
	if err != nil {
		return nil, fmt.Errorf("%w: rule %d: %v", shared.ErrInvalidRule, def.ID, err)
	}
	if !ok {
		end = now.Year()
	}
	if start > end {
		return nil, fmt.Errorf("%w: rule %d: start %d is after end %d", shared.ErrInvalidRule, def.ID, start, end)
	}
	return DateRangeRule{YearStart: start, YearEnd: end}, nil
}

// intField reads an integral number from data, accepting JSON floats and YAML ints.
func intField(data map[string]any, key string) (int, bool, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return 0, false, nil
	}

	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case uint64:
		return int(v), true, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, false, fmt.Errorf("%s must be a whole number, got %v", key, v)
		}
		return int(v), true, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false, fmt.Errorf("%s must be a whole number, got %s", key, v)
		}
		return int(n), true, nil
	default:
		return 0, false, fmt.Errorf("%s must be a number, got %T", key, raw)
	}
}

// LoadDefinitions reads the rules file at path. Files ending in .yaml or .yml are YAML, anything else JSON.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read rules file: %v", shared.ErrMissingConfig, err)
	}

	var defs []Definition
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &defs)
	default:
		err = json.Unmarshal(data, &defs)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse rules file %s: %v", shared.ErrInvalidConfig, path, err)
	}

	if err := checkDefinitions(defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func checkDefinitions(defs []Definition) error {
	seen := make(map[int]bool, len(defs))
	for _, def := range defs {
		if seen[def.ID] {
			return fmt.Errorf("%w: duplicate rule id %d", shared.ErrInvalidConfig, def.ID)
		}
		seen[def.ID] = true

		if strings.TrimSpace(def.Name) == "" {
			return fmt.Errorf("%w: rule %d has no name", shared.ErrInvalidConfig, def.ID)
		}
	}
	return nil
}

// RegistryOpts configures a [Registry].
type RegistryOpts struct {
	Now    func() time.Time
	Logger *log.Logger
}

// Registry maps rule ids to rules and their target playlists.
type Registry struct {
	defs    []Definition
	catalog services.Catalog
	now     func() time.Time
	logger  *log.Logger
}

// NewRegistry builds a registry over defs, in file order.
func NewRegistry(defs []Definition, catalog services.Catalog, opts RegistryOpts) (*Registry, error) {
	if err := checkDefinitions(defs); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = shared.NopLogger()
	}

	return &Registry{
		defs:    append([]Definition(nil), defs...),
		catalog: catalog,
		now:     opts.Now,
		logger:  opts.Logger,
	}, nil
}

// Definitions returns every definition in file order.
func (r *Registry) Definitions() []Definition {
	return append([]Definition(nil), r.defs...)
}

// Find returns the definition with id.
func (r *Registry) Find(id int) (Definition, error) {
	for _, def := range r.defs {
		if def.ID == id {
			return def, nil
		}
	}
	return Definition{}, &RuleNotFoundError{ID: id}
}

// Rule builds the rule for id without touching the catalog.
func (r *Registry) Rule(id int) (Rule, Definition, error) {
	def, err := r.Find(id)
	if err != nil {
		return nil, Definition{}, err
	}
	rule, err := Build(def, r.now())
	if err != nil {
		return nil, Definition{}, err
	}
	return rule, def, nil
}

func descriptor(def Definition) (models.PlaylistDescriptor, error) {
	visibility, err := models.ParseVisibility(strings.ToLower(def.Visibility))
	if err != nil {
		return models.PlaylistDescriptor{}, fmt.Errorf("%w: rule %d: %v", shared.ErrInvalidRule, def.ID, err)
	}
	return models.PlaylistDescriptor{
		Name:        def.Name,
		Description: def.Desc,
		Visibility:  visibility,
	}, nil
}

// Lookup returns the rule for id and its playlist, creating the playlist when the account has none by that name.
func (r *Registry) Lookup(ctx context.Context, id int) (Rule, models.PlaylistDescriptor, error) {
	rule, desc, err := r.Peek(ctx, id)
	if err != nil {
		return nil, models.PlaylistDescriptor{}, err
	}
	if desc.Exists() {
		return rule, desc, nil
	}

	remoteID, err := r.catalog.CreatePlaylist(ctx, desc.Name, desc.Description, desc.Visibility)
	if err != nil {
		return nil, models.PlaylistDescriptor{}, err
	}
	desc.RemoteID = remoteID
	r.logger.Info("created playlist", "rule", id, "name", desc.Name, "id", remoteID, "visibility", desc.Visibility)
	return rule, desc, nil
}

// Peek is [Registry.Lookup] without creation: a missing playlist comes back with an empty RemoteID.
func (r *Registry) Peek(ctx context.Context, id int) (Rule, models.PlaylistDescriptor, error) {
	rule, def, err := r.Rule(id)
	if err != nil {
		return nil, models.PlaylistDescriptor{}, err
	}
	desc, err := descriptor(def)
	if err != nil {
		return nil, models.PlaylistDescriptor{}, err
	}

	names, err := r.catalog.PlaylistNames(ctx)
	if err != nil {
		return nil, models.PlaylistDescriptor{}, err
	}
	desc.RemoteID = names[desc.Name]
	return rule, desc, nil
}
