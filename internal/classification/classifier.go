// Package classification assigns a requirement type and a document relation
// to a fused case. Detection is keyword and pattern based: a relation
// detector runs first, new requests then walk a precedence ordered chain of
// type rules that ends in the catalog's unknown type, and an edge-case
// validator flags type-specific evidence the document lacks.
package classification

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"

	"github.com/a3tai/mcp-expediente-fusion/internal/catalog"
	"github.com/a3tai/mcp-expediente-fusion/internal/similarity"
)

// matcher is a compiled keyword/pattern set. Keywords and patterns are
// matched against folded text (lowercase, no diacritics).
type matcher struct {
	terms    []string
	regexes  []*regexp.Regexp
	patterns []*regexp.Regexp
	sources  []string
}

func compileMatcher(name string, keywords, patterns []string) (matcher, error) {
	var m matcher
	for _, kw := range keywords {
		folded := similarity.Fold(kw)
		if folded == "" {
			continue
		}
		m.terms = append(m.terms, kw)
		m.regexes = append(m.regexes, regexp.MustCompile(`\b`+regexp.QuoteMeta(folded)+`\b`))
	}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return matcher{}, fmt.Errorf("rule %s: invalid pattern %q: %w", name, p, err)
		}
		m.patterns = append(m.patterns, re)
		m.sources = append(m.sources, p)
	}
	if len(m.regexes) == 0 && len(m.patterns) == 0 {
		return matcher{}, fmt.Errorf("rule %s has no keywords or patterns", name)
	}
	return m, nil
}

// hits returns every keyword and pattern found in folded, in rule order
func (m matcher) hits(folded string) []string {
	var out []string
	for i, re := range m.regexes {
		if re.MatchString(folded) {
			out = append(out, m.terms[i])
		}
	}
	for i, re := range m.patterns {
		if re.MatchString(folded) {
			out = append(out, m.sources[i])
		}
	}
	return out
}

type compiledRelation struct {
	RelationRule
	matcher
}

type compiledRule struct {
	Rule
	matcher
}

// Classifier classifies cases with an immutable rule set. It is safe for
// concurrent use; the registry it resolves types through handles its own
// locking.
type Classifier struct {
	cfg       Config
	registry  catalog.Registry
	relations []compiledRelation
	types     []compiledRule
}

// New compiles the default rules, merged with cfg.RulesPath when set.
// Invalid rules fail here rather than at classification time.
func New(cfg Config, registry catalog.Registry) (*Classifier, error) {
	rs := DefaultRuleSet()
	if cfg.RulesPath != "" {
		custom, err := LoadRuleSet(cfg.RulesPath)
		if err != nil {
			return nil, err
		}
		rs = Merge(rs, custom)
	}
	return NewWithRules(cfg, registry, rs)
}

// NewWithRules compiles an explicit rule set
func NewWithRules(cfg Config, registry catalog.Registry, rs RuleSet) (*Classifier, error) {
	if cfg.ConfidenceFloor < 0 || cfg.ConfidenceFloor > 1 {
		return nil, fmt.Errorf("confidence floor must be within [0,1], got %.3f", cfg.ConfidenceFloor)
	}
	if cfg.MaxConfidence <= 0 || cfg.MaxConfidence > 1 {
		return nil, fmt.Errorf("max confidence must be within (0,1], got %.3f", cfg.MaxConfidence)
	}
	if registry == nil {
		registry = catalog.NewMemoryRegistry()
	}

	c := &Classifier{cfg: cfg, registry: registry}
	for _, r := range rs.Relations {
		if r.Disabled {
			continue
		}
		switch r.Relation {
		case RelationReminder, RelationScopeExpansion, RelationClarification:
		default:
			return nil, fmt.Errorf("relation rule %s: unsupported relation %q", r.Name, r.Relation)
		}
		m, err := compileMatcher(r.Name, r.Keywords, r.KeywordPatterns)
		if err != nil {
			return nil, err
		}
		c.relations = append(c.relations, compiledRelation{RelationRule: r, matcher: m})
	}
	for _, r := range rs.Types {
		if r.Disabled {
			continue
		}
		if r.Type == "" {
			return nil, fmt.Errorf("type rule %s has no type", r.Name)
		}
		m, err := compileMatcher(r.Name, r.Keywords, r.KeywordPatterns)
		if err != nil {
			return nil, err
		}
		c.types = append(c.types, compiledRule{Rule: r, matcher: m})
	}

	sort.SliceStable(c.relations, func(i, j int) bool { return c.relations[i].Precedence < c.relations[j].Precedence })
	sort.SliceStable(c.types, func(i, j int) bool { return c.types[i].Precedence < c.types[j].Precedence })
	return c, nil
}

// Config returns the classifier settings
func (c *Classifier) Config() Config {
	return c.cfg
}

// Rules returns the effective type rules in precedence order
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.types))
	for i, r := range c.types {
		out[i] = r.Rule
	}
	return out
}

// DetectType runs only the type chain and returns the winning type code,
// or catalog.CodeUnknown when no rule matches.
func (c *Classifier) DetectType(text string) string {
	if r, _, ok := c.detectType(similarity.Fold(text)); ok {
		return r.Type
	}
	return catalog.CodeUnknown
}

func (c *Classifier) detectType(folded string) (compiledRule, []string, bool) {
	for _, r := range c.types {
		hits := r.hits(folded)
		if len(hits) > 0 && len(hits) >= r.MinHits {
			return r, hits, true
		}
	}
	return compiledRule{}, nil, false
}

func (c *Classifier) detectRelation(folded string) (compiledRelation, []string, bool) {
	for _, r := range c.relations {
		if hits := r.hits(folded); len(hits) > 0 {
			return r, hits, true
		}
	}
	return compiledRelation{}, nil, false
}

// Classify produces the classification of one case. It always returns a
// result; ambiguity shows up as warnings and the manual review flag.
func (c *Classifier) Classify(ctx context.Context, in Input) Result {
	folded := similarity.Fold(in.Text)
	prior := priorReference(in.Text, in.Record)

	res := Result{
		Relation:       RelationNewRequest,
		PriorReference: prior,
		Warnings:       []string{},
	}

	if rel, hits, ok := c.detectRelation(folded); ok {
		if prior != "" {
			res.Relation = rel.Relation
			res.MatchedRule = rel.Name
			res.Evidence = hits
			res.Confidence = c.confidence(rel.Confidence, len(hits), in.Confidence)
			res.Type = c.resolve(ctx, catalog.CodeUnknown, &res)
			return c.finish(res)
		}
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"document reads as a %s but no prior case reference was found; treated as a new request", rel.Relation))
	}

	rule, hits, ok := c.detectType(folded)
	if !ok {
		res.Type = c.resolve(ctx, catalog.CodeUnknown, &res)
		res.Warnings = append(res.Warnings, "no requirement type rule matched the document")
		return c.finish(res)
	}

	res.MatchedRule = rule.Name
	res.Evidence = hits
	res.Confidence = c.confidence(rule.Confidence, len(hits), in.Confidence)
	res.Type = c.resolve(ctx, rule.Type, &res)
	res.Warnings = append(res.Warnings, missingEvidence(rule.Type, in.Text, in.Record, prior)...)
	return c.finish(res)
}

// confidence grows with the number of hits and is capped by the case
// confidence when one is given
func (c *Classifier) confidence(base float64, hits int, ceiling *float64) float64 {
	conf := base
	if hits > 1 {
		conf += c.cfg.KeywordBonus * float64(hits-1)
	}
	conf = math.Min(conf, c.cfg.MaxConfidence)
	if ceiling != nil {
		conf = math.Min(conf, *ceiling)
	}
	return math.Max(0, math.Min(1, conf))
}

func (c *Classifier) resolve(ctx context.Context, code string, res *Result) catalog.RequirementType {
	t, err := catalog.Resolve(ctx, c.registry, code)
	if err == nil {
		return t
	}
	if errors.Is(err, catalog.ErrNotFound) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("requirement type %q is not registered in the catalog", code))
	} else {
		res.Warnings = append(res.Warnings, fmt.Sprintf("requirement type %q could not be resolved: %v", code, err))
	}
	return t
}

func (c *Classifier) finish(res Result) Result {
	res.RequiresManualReview = res.Relation.IsFollowUp() ||
		len(res.Warnings) > 0 ||
		res.Confidence < c.cfg.ConfidenceFloor
	return res
}
