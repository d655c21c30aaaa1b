package config

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"corpuslab/atogen/internal/domain"
)

var rangeType = reflect.TypeOf(Range{})

// Validate checks every invariant of the tree and returns a single *Error
// listing all violations, or nil.
func (c *Config) Validate() error {
	var v []string

	walk(reflect.ValueOf(*c), "", func(path string, val reflect.Value) {
		switch {
		case val.Type() == rangeType:
			r := val.Interface().(Range)
			if r.Min < 0 {
				v = append(v, fmt.Sprintf("%s.min=%d: must be >= 0", path, r.Min))
			}
			if r.Min > r.Max {
				v = append(v, fmt.Sprintf("%s=[%d, %d]: min must be <= max", path, r.Min, r.Max))
			}
		case val.Kind() == reflect.Float64:
			if f := val.Float(); !(f >= 0 && f <= 1) {
				v = append(v, fmt.Sprintf("%s=%s: must be in [0, 1]", path, formatFloat(f)))
			}
		case val.Kind() == reflect.Int:
			if n := val.Int(); n < 0 {
				v = append(v, fmt.Sprintf("%s=%d: must be >= 0", path, n))
			}
		}
	})

	v = append(v, checkWeights("usage_patterns.pattern_weights", c.UsagePatterns.PatternWeights, LegitPatternNames)...)
	v = append(v, checkWeights("fraud.pattern_weights", c.Fraud.PatternWeights, AllocatablePatterns)...)

	if sum := c.Users.AccountTierFree + c.Users.AccountTierPremium; sum > 1 {
		v = append(v, fmt.Sprintf("users.account_tier_free + account_tier_premium = %s > 1", formatFloat(sum)))
	}
	if e := c.Email; !(e.FirstLast <= e.Firstlast && e.Firstlast <= e.LastFirst) {
		v = append(v, fmt.Sprintf("email.first_last/firstlast/last_first=%s/%s/%s: thresholds must be non-decreasing",
			formatFloat(e.FirstLast), formatFloat(e.Firstlast), formatFloat(e.LastFirst)))
	}
	if cu := c.UsagePatterns.CareerUpdate; cu.UpdateTypeHeadline > cu.UpdateTypeSummary {
		v = append(v, fmt.Sprintf("usage_patterns.career_update.update_type_headline=%s: must be <= update_type_summary",
			formatFloat(cu.UpdateTypeHeadline)))
	}
	if c.Corpus.WindowDays < 1 {
		v = append(v, fmt.Sprintf("corpus.window_days=%d: must be >= 1", c.Corpus.WindowDays))
	}
	if len(c.Fraud.DefaultAttackerCountries) == 0 {
		v = append(v, "fraud.default_attacker_countries=[]: must not be empty")
	}
	for i, cc := range c.Fraud.DefaultAttackerCountries {
		if !domain.ValidCountry(cc) {
			v = append(v, fmt.Sprintf("fraud.default_attacker_countries[%d]=%s: unknown country", i, cc))
		}
	}

	if len(v) > 0 {
		return &Error{Violations: v}
	}
	return nil
}

func checkWeights(path string, weights map[string]float64, known []string) []string {
	allowed := make(map[string]bool, len(known))
	for _, k := range known {
		allowed[k] = true
	}
	var out []string
	for _, k := range SortedWeightKeys(weights) {
		w := weights[k]
		if !(w >= 0) {
			out = append(out, fmt.Sprintf("%s.%s=%s: must be >= 0", path, k, formatFloat(w)))
		}
		if !allowed[k] {
			out = append(out, fmt.Sprintf("%s.%s=%s: unknown pattern", path, k, formatFloat(w)))
		}
	}
	return out
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

// walk visits every leaf of a struct tree with its dotted yaml path. Range
// values are leaves; maps and slices are skipped (checked separately).
func walk(v reflect.Value, prefix string, visit func(string, reflect.Value)) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := yamlName(f)
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		fv := v.Field(i)
		switch {
		case fv.Type() == rangeType:
			visit(path, fv)
		case fv.Kind() == reflect.Struct:
			walk(fv, path, visit)
		case fv.Kind() == reflect.Map, fv.Kind() == reflect.Slice:
		default:
			visit(path, fv)
		}
	}
}

func yamlName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
	if name == "" {
		return strings.ToLower(f.Name)
	}
	return name
}

// ─── Lookup ───────────────────────────────────────────────────────────────────

// Lookup resolves a dotted path such as "fraud.pattern_weights.smash_grab"
// or "fraud.romance_scam.duration_days.max" and returns the value found
// there, or def when the path does not exist.
func (c *Config) Lookup(path string, def any) any {
	if path == "" {
		return def
	}
	cur := reflect.ValueOf(*c)
	for _, part := range strings.Split(path, ".") {
		switch cur.Kind() {
		case reflect.Struct:
			next, ok := fieldByYAML(cur, part)
			if !ok {
				return def
			}
			cur = next
		case reflect.Map:
			next := cur.MapIndex(reflect.ValueOf(part))
			if !next.IsValid() {
				return def
			}
			cur = next
		case reflect.Slice:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= cur.Len() {
				return def
			}
			cur = cur.Index(idx)
		default:
			return def
		}
	}
	return cur.Interface()
}

// LookupFloat is Lookup for numeric leaves.
func (c *Config) LookupFloat(path string, def float64) float64 {
	switch v := c.Lookup(path, def).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// Paths lists every dotted leaf path in the tree, map entries included.
func (c *Config) Paths() []string {
	var out []string
	walk(reflect.ValueOf(*c), "", func(path string, val reflect.Value) {
		if val.Type() == rangeType {
			out = append(out, path+".min", path+".max")
			return
		}
		out = append(out, path)
	})
	for _, k := range SortedWeightKeys(c.UsagePatterns.PatternWeights) {
		out = append(out, "usage_patterns.pattern_weights."+k)
	}
	for _, k := range SortedWeightKeys(c.Fraud.PatternWeights) {
		out = append(out, "fraud.pattern_weights."+k)
	}
	sort.Strings(out)
	return out
}

func fieldByYAML(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if yamlName(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}
