package extract

import (
	"context"
	"fmt"

	"github.com/andybalholm/cascadia"
	"github.com/use-agent/pokedex/models"
)

// Engine interprets a declarative field mapping against a document.
// It holds no state and is safe for concurrent use.
type Engine struct{}

// NewEngine returns an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compile checks that spec can be interpreted: keys are present and unique,
// enum values are known, every selector parses, and row-scoped fields have a
// row container. It runs before a session is acquired so a broken mapping
// never costs a browser launch.
func (e *Engine) Compile(spec *models.ExtractionSpec) error {
	switch spec.Readiness.Kind {
	case models.ReadySelectorPresent, models.ReadyNavigationSettled, models.ReadyBoth:
	default:
		return invalid(fmt.Sprintf("unknown readiness kind %q", spec.Readiness.Kind))
	}
	if spec.Readiness.WantsSelector() {
		if err := compileSelector("readiness", spec.Readiness.Selector); err != nil {
			return err
		}
	}
	if spec.IsList() {
		if err := compileSelector("rows", spec.Rows); err != nil {
			return err
		}
	}

	seen := make(map[string]struct{}, len(spec.Fields))
	for _, f := range spec.Fields {
		if f.Key == "" {
			return invalid("field with empty key")
		}
		if _, dup := seen[f.Key]; dup {
			return invalid(fmt.Sprintf("duplicate field key %q", f.Key))
		}
		seen[f.Key] = struct{}{}

		switch f.Scope {
		case models.ScopeDocument, models.ScopeRow:
		default:
			return invalid(fmt.Sprintf("field %q: unknown scope %q", f.Key, f.Scope))
		}
		switch f.Multiplicity {
		case models.MultiplicityOne, models.MultiplicityMany:
		default:
			return invalid(fmt.Sprintf("field %q: unknown multiplicity %q", f.Key, f.Multiplicity))
		}
		switch f.Transform {
		case models.TransformText:
		case models.TransformListOfText:
			if err := compileSelector(f.Key+".item", f.Item); err != nil {
				return err
			}
		default:
			return invalid(fmt.Sprintf("field %q: unknown transform %q", f.Key, f.Transform))
		}
		if f.Within != "" {
			if err := compileSelector(f.Key+".within", f.Within); err != nil {
				return err
			}
		}
		if err := compileSelector(f.Key, f.Selector); err != nil {
			return err
		}
	}
	return nil
}

// Run applies spec's field mapping to doc.
//
// Missing elements never fail the run: a "one" field without a match yields
// nil (or its Default) and a "many" field yields an empty sequence. Only a
// failing query or text read is reported, as EXTRACTION_SCRIPT_ERROR.
func (e *Engine) Run(ctx context.Context, doc Node, spec *models.ExtractionSpec) models.Outcome {
	if !spec.IsList() {
		rec, err := e.record(doc, doc, spec.Fields)
		if err != nil {
			return models.Failed(err)
		}
		return models.Outcome{Record: rec}
	}

	rows, err := doc.QueryAll(spec.Rows)
	if err != nil {
		return models.Failed(scriptError("rows", err))
	}

	records := make([]*models.Record, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return models.Failed(models.NewPipelineError(models.ErrCodeRequestTimeout,
				"request deadline reached during extraction", err))
		}
		rec, err := e.record(doc, row, spec.Fields)
		if err != nil {
			return models.Failed(err)
		}
		records = append(records, rec)
	}
	return models.Outcome{Records: records, List: true}
}

// record evaluates every field once. Row-scoped fields resolve against row,
// document-scoped ones against doc.
func (e *Engine) record(doc, row Node, fields models.FieldMapping) (*models.Record, error) {
	rec := models.NewRecord(len(fields))
	for _, f := range fields {
		base := doc
		if f.Scope == models.ScopeRow {
			base = row
		}
		v, err := evalField(base, f)
		if err != nil {
			return nil, err
		}
		rec.Set(f.Key, v)
	}
	return rec, nil
}

func evalField(base Node, f models.Field) (any, error) {
	matches, err := queryField(base, f)
	if err != nil {
		return nil, scriptError(f.Key, err)
	}

	if f.Multiplicity == models.MultiplicityOne {
		if len(matches) == 0 {
			if f.Default != nil {
				return *f.Default, nil
			}
			return nil, nil
		}
		if f.Transform == models.TransformListOfText {
			return listOfText(matches[0], f)
		}
		return text(matches[0], f.Key)
	}

	if f.Transform == models.TransformListOfText {
		out := make([][]string, 0, len(matches))
		for _, m := range matches {
			items, err := listOfText(m, f)
			if err != nil {
				return nil, err
			}
			out = append(out, items)
		}
		return out, nil
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		s, err := text(m, f.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// queryField resolves f.Selector against base, or against the first Within
// container of base when one is set.
func queryField(base Node, f models.Field) ([]Node, error) {
	if f.Within != "" {
		containers, err := base.QueryAll(f.Within)
		if err != nil {
			return nil, err
		}
		if len(containers) == 0 {
			return nil, nil
		}
		base = containers[0]
	}
	return base.QueryAll(f.Selector)
}

func listOfText(n Node, f models.Field) ([]string, error) {
	items, err := n.QueryAll(f.Item)
	if err != nil {
		return nil, scriptError(f.Key, err)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, err := text(it, f.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func text(n Node, key string) (string, error) {
	s, err := n.Text()
	if err != nil {
		return "", scriptError(key, err)
	}
	return s, nil
}

func compileSelector(what, sel string) error {
	if sel == "" {
		return invalid(fmt.Sprintf("%s: empty selector", what))
	}
	if _, err := cascadia.Compile(sel); err != nil {
		return models.NewPipelineError(models.ErrCodeInvalidInput,
			fmt.Sprintf("%s: invalid selector %q", what, sel), err)
	}
	return nil
}

func invalid(msg string) error {
	return models.NewPipelineError(models.ErrCodeInvalidInput, msg, nil)
}

func scriptError(key string, err error) error {
	return models.NewPipelineError(models.ErrCodeExtractionScript,
		fmt.Sprintf("extraction of %q failed", key), err)
}
