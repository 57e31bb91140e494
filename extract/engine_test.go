package extract

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pokedex/models"
)

const shelfHTML = `<html><body>
<h1>Shelf</h1>
<ul class="books">
  <li class="book"><span class="title">Dune</span><span class="tag">sf</span><span class="tag">classic</span></li>
  <li class="book"><span class="title">Emma</span></li>
  <li class="book"><span class="tag">untitled</span></li>
</ul>
<div class="series"><b>A</b><b>B</b></div>
<div class="series"><b>C</b></div>
<div class="series"></div>
</body></html>`

func run(t *testing.T, html string, spec models.ExtractionSpec) models.Outcome {
	t.Helper()
	spec.Defaults()
	e := NewEngine()
	require.NoError(t, e.Compile(&spec))
	doc, err := FromHTML(html)
	require.NoError(t, err)
	return e.Run(context.Background(), doc, &spec)
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestRun_DocumentScope(t *testing.T) {
	out := run(t, shelfHTML, models.ExtractionSpec{
		URLTemplate: "https://shelf.test",
		Fields: models.FieldMapping{
			{Key: "heading", Selector: "h1"},
			{Key: "missing", Selector: "h2"},
			{Key: "fallback", Selector: "h3", Default: models.StringPtr("")},
			{Key: "titles", Selector: ".title", Multiplicity: models.MultiplicityMany},
			{Key: "none", Selector: ".nothing", Multiplicity: models.MultiplicityMany},
			{Key: "series", Selector: ".series", Multiplicity: models.MultiplicityMany,
				Transform: models.TransformListOfText, Item: "b"},
			{Key: "firstSeries", Selector: ".series", Transform: models.TransformListOfText, Item: "b"},
		},
	})

	require.NoError(t, out.Err)
	assert.False(t, out.List)
	assert.JSONEq(t, `{
		"heading": "Shelf",
		"missing": null,
		"fallback": "",
		"titles": ["Dune", "Emma"],
		"none": [],
		"series": [["A", "B"], ["C"], []],
		"firstSeries": ["A", "B"]
	}`, toJSON(t, out.Record))
}

func TestRun_RowScope(t *testing.T) {
	out := run(t, shelfHTML, models.ExtractionSpec{
		URLTemplate: "https://shelf.test",
		Rows:        "li.book",
		Fields: models.FieldMapping{
			{Key: "title", Selector: ".title", Scope: models.ScopeRow},
			{Key: "tags", Selector: ".tag", Scope: models.ScopeRow, Multiplicity: models.MultiplicityMany},
			{Key: "shelf", Selector: "h1"},
		},
	})

	require.NoError(t, out.Err)
	assert.True(t, out.List)
	assert.JSONEq(t, `[
		{"title": "Dune", "tags": ["sf", "classic"], "shelf": "Shelf"},
		{"title": "Emma", "tags": [], "shelf": "Shelf"},
		{"title": null, "tags": ["untitled"], "shelf": "Shelf"}
	]`, toJSON(t, out.Records))
}

func TestRun_Within(t *testing.T) {
	out := run(t, shelfHTML, models.ExtractionSpec{
		URLTemplate: "https://shelf.test",
		Fields: models.FieldMapping{
			{Key: "third", Selector: "li:nth-child(3) .tag", Within: "ul.books"},
			{Key: "firstSeries", Selector: "b", Within: ".series", Multiplicity: models.MultiplicityMany},
			{Key: "noContainer", Selector: "b", Within: "ol", Default: models.StringPtr("")},
			{Key: "noContainerMany", Selector: "b", Within: "ol", Multiplicity: models.MultiplicityMany},
		},
	})

	require.NoError(t, out.Err)
	assert.JSONEq(t, `{
		"third": "untitled",
		"firstSeries": ["A", "B"],
		"noContainer": "",
		"noContainerMany": []
	}`, toJSON(t, out.Record))
}

func TestRun_TextIsNotTrimmed(t *testing.T) {
	out := run(t, `<p>  spaced out  </p>`, models.ExtractionSpec{
		URLTemplate: "https://shelf.test",
		Fields:      models.FieldMapping{{Key: "p", Selector: "p"}},
	})

	require.NoError(t, out.Err)
	v, _ := out.Record.Get("p")
	assert.Equal(t, "  spaced out  ", v)
}

func TestRun_CanceledDuringRows(t *testing.T) {
	spec := models.ExtractionSpec{
		URLTemplate: "https://shelf.test",
		Rows:        "li.book",
		Fields:      models.FieldMapping{{Key: "title", Selector: ".title", Scope: models.ScopeRow}},
	}
	spec.Defaults()
	doc, err := FromHTML(shelfHTML)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := NewEngine().Run(ctx, doc, &spec)

	assert.True(t, models.HasCode(out.Err, models.ErrCodeRequestTimeout))
}

type brokenNode struct{}

func (brokenNode) QueryAll(string) ([]Node, error) { return nil, assert.AnError }
func (brokenNode) Text() (string, error)           { return "", assert.AnError }

func TestRun_QueryFault(t *testing.T) {
	spec := models.ExtractionSpec{
		URLTemplate: "https://shelf.test",
		Fields:      models.FieldMapping{{Key: "title", Selector: "h1"}},
	}
	spec.Defaults()

	out := NewEngine().Run(context.Background(), brokenNode{}, &spec)

	require.Error(t, out.Err)
	assert.True(t, models.HasCode(out.Err, models.ErrCodeExtractionScript))
	assert.ErrorIs(t, out.Err, assert.AnError)
}

func TestCompile_Rejects(t *testing.T) {
	tests := []struct {
		name string
		spec models.ExtractionSpec
	}{
		{"invalid selector", models.ExtractionSpec{Fields: models.FieldMapping{{Key: "a", Selector: "div["}}}},
		{"empty key", models.ExtractionSpec{Fields: models.FieldMapping{{Selector: "div"}}}},
		{"duplicate key", models.ExtractionSpec{Fields: models.FieldMapping{{Key: "a", Selector: "p"}, {Key: "a", Selector: "div"}}}},
		{"row field without rows", models.ExtractionSpec{Fields: models.FieldMapping{{Key: "a", Selector: "p", Scope: models.ScopeRow}}}},
		{"listOfText without item", models.ExtractionSpec{Fields: models.FieldMapping{{Key: "a", Selector: "p", Transform: models.TransformListOfText}}}},
		{"invalid within", models.ExtractionSpec{Fields: models.FieldMapping{{Key: "a", Selector: "p", Within: "div["}}}},
		{"unknown scope", models.ExtractionSpec{Fields: models.FieldMapping{{Key: "a", Selector: "p", Scope: "page"}}}},
		{"unknown readiness", models.ExtractionSpec{
			Readiness: models.ReadinessCondition{Kind: "load"},
			Fields:    models.FieldMapping{{Key: "a", Selector: "p"}},
		}},
		{"selector readiness without selector", models.ExtractionSpec{
			Readiness: models.ReadinessCondition{Kind: models.ReadySelectorPresent},
			Fields:    models.FieldMapping{{Key: "a", Selector: "p"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.spec.Defaults()
			err := NewEngine().Compile(&tt.spec)
			require.Error(t, err)
			assert.True(t, models.HasCode(err, models.ErrCodeInvalidInput), err.Error())
		})
	}
}
