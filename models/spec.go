package models

import (
	"fmt"
	"net/url"
	"strings"
)

// ReadinessKind names the signal(s) that must fire before a page may be read.
type ReadinessKind string

const (
	ReadySelectorPresent   ReadinessKind = "selectorPresent"
	ReadyNavigationSettled ReadinessKind = "navigationSettled"
	ReadyBoth              ReadinessKind = "both"
)

// ReadinessCondition describes how the pipeline knows a page is safe to read.
type ReadinessCondition struct {
	Kind ReadinessKind `json:"kind" binding:"omitempty,oneof=selectorPresent navigationSettled both"`

	// Selector is required for selectorPresent and both.
	Selector string `json:"selector,omitempty"`
}

// SelectorPresent waits only for sel to match at least one element.
func SelectorPresent(sel string) ReadinessCondition {
	return ReadinessCondition{Kind: ReadySelectorPresent, Selector: sel}
}

// NavigationSettled waits only for the page's network to settle.
func NavigationSettled() ReadinessCondition {
	return ReadinessCondition{Kind: ReadyNavigationSettled}
}

// Both waits for sel to match and for the network to settle.
func Both(sel string) ReadinessCondition {
	return ReadinessCondition{Kind: ReadyBoth, Selector: sel}
}

// WantsSelector reports whether the condition includes the selector signal.
func (r ReadinessCondition) WantsSelector() bool {
	return r.Kind == ReadySelectorPresent || r.Kind == ReadyBoth
}

// WantsSettled reports whether the condition includes the settled signal.
func (r ReadinessCondition) WantsSettled() bool {
	return r.Kind == ReadyNavigationSettled || r.Kind == ReadyBoth
}

// Field scopes.
const (
	ScopeDocument = "document"
	ScopeRow      = "row"
)

// Field multiplicities.
const (
	MultiplicityOne  = "one"
	MultiplicityMany = "many"
)

// Field transforms.
const (
	TransformText       = "text"
	TransformListOfText = "listOfText"
)

// Field maps one DOM location to one output key.
type Field struct {
	// Key is the output key in the extracted record.
	Key string `json:"key" binding:"required"`

	// Selector is resolved against the document or the current row.
	Selector string `json:"selector" binding:"required"`

	// Scope is "document" (default) or "row".
	Scope string `json:"scope,omitempty" binding:"omitempty,oneof=document row"`

	// Multiplicity is "one" (default) or "many".
	Multiplicity string `json:"multiplicity,omitempty" binding:"omitempty,oneof=one many"`

	// Transform is "text" (default) or "listOfText".
	Transform string `json:"transform,omitempty" binding:"omitempty,oneof=text listOfText"`

	// Within narrows the field to the first element matching this selector.
	// With no such element the field resolves as if nothing matched.
	Within string `json:"within,omitempty"`

	// Item is the sub-selector whose texts make up a listOfText value.
	Item string `json:"item,omitempty"`

	// Default replaces null when a "one" field has no match.
	Default *string `json:"default,omitempty"`
}

// Defaults applies default values to unset fields.
func (f *Field) Defaults() {
	if f.Scope == "" {
		f.Scope = ScopeDocument
	}
	if f.Multiplicity == "" {
		f.Multiplicity = MultiplicityOne
	}
	if f.Transform == "" {
		f.Transform = TransformText
	}
}

// FieldMapping is the ordered rule set applied to a rendered document.
type FieldMapping []Field

// ExtractionSpec declares the target, readiness and field mapping of one use case.
type ExtractionSpec struct {
	// Name identifies a built-in use case in logs and metrics. It is never
	// read from request bodies, so submitted specs all count as "custom".
	Name string `json:"-"`

	// URLTemplate is the target URL; "{param}" placeholders are replaced
	// with path-escaped parameter values.
	URLTemplate string `json:"url" binding:"required"`

	Readiness ReadinessCondition `json:"readiness"`

	// Rows is the repeating container selector for row-scoped fields.
	Rows string `json:"rows,omitempty"`

	Fields FieldMapping `json:"fields" binding:"required,min=1,dive"`
}

// Defaults applies default values to unset fields.
func (s *ExtractionSpec) Defaults() {
	if s.Readiness.Kind == "" {
		s.Readiness.Kind = ReadyNavigationSettled
	}
	for i := range s.Fields {
		s.Fields[i].Defaults()
	}
}

// IsList reports whether the spec yields one record per matched row.
func (s *ExtractionSpec) IsList() bool {
	for _, f := range s.Fields {
		if f.Scope == ScopeRow {
			return true
		}
	}
	return false
}

// URL renders the URL template with params. Every placeholder must be
// supplied, and the result must be an absolute http(s) URL.
func (s *ExtractionSpec) URL(params map[string]string) (string, error) {
	out := s.URLTemplate
	for k, v := range params {
		out = strings.ReplaceAll(out, "{"+k+"}", url.PathEscape(v))
	}
	if i := strings.IndexByte(out, '{'); i >= 0 && strings.IndexByte(out[i:], '}') > 0 {
		return "", NewPipelineError(ErrCodeInvalidInput,
			fmt.Sprintf("unresolved placeholder in url template %q", s.URLTemplate), nil)
	}

	u, err := url.Parse(out)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", NewPipelineError(ErrCodeInvalidInput,
			fmt.Sprintf("invalid target url %q", out), err)
	}
	return out, nil
}

// StringPtr returns a pointer to s, for Field.Default.
func StringPtr(s string) *string { return &s }
