package pokedex_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pokedex/extract"
	"github.com/use-agent/pokedex/models"
	"github.com/use-agent/pokedex/navigation"
	"github.com/use-agent/pokedex/pipeline"
	"github.com/use-agent/pokedex/pokedex"
	"github.com/use-agent/pokedex/session/sessiontest"
)

const baseURL = "https://pokedex.test"

func fixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(b)
}

func newService(m *sessiontest.Manager) *pokedex.Service {
	p := pipeline.New(m, navigation.NewController(time.Second), extract.NewEngine(), 0)
	return pokedex.NewService(p, baseURL+"/")
}

func marshal(t *testing.T, env models.Envelope) string {
	t.Helper()
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return string(b)
}

func TestList_OneRecordPerRow(t *testing.T) {
	m := sessiontest.NewManager(sessiontest.Behavior{HTML: fixture(t, "list.html")})

	env := newService(m).List(context.Background())

	require.True(t, env.OK, "%+v", env.Error)
	assert.JSONEq(t, `{
		"ok": true,
		"data": {
			"count": 3,
			"records": [
				{"id": "0001", "name": "Bulbasaur", "type": "Grass Poison"},
				{"id": "0004", "name": "Charmander", "type": "Fire"},
				{"id": "0025", "name": "Pikachu", "type": ""}
			]
		}
	}`, marshal(t, env))
	assert.Equal(t, []string{baseURL + "/pokedex/all"}, m.URLs())
}

func TestList_KeepsFieldOrder(t *testing.T) {
	m := sessiontest.NewManager(sessiontest.Behavior{HTML: fixture(t, "list.html")})

	env := newService(m).List(context.Background())

	records, ok := env.Data.Records.([]*models.Record)
	require.True(t, ok)
	require.NotEmpty(t, records)
	var keys []string
	for pair := records[0].Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"id", "name", "type"}, keys)
}

func TestList_EmptyTable(t *testing.T) {
	m := sessiontest.NewManager(sessiontest.Behavior{
		HTML: `<html><body><table id="pokedex"><tbody></tbody></table></body></html>`,
	})

	env := newService(m).List(context.Background())

	assert.JSONEq(t, `{"ok":true,"data":{"count":0,"records":[]}}`, marshal(t, env))
}

func TestGet_MissingVitals(t *testing.T) {
	m := sessiontest.NewManager(sessiontest.Behavior{HTML: fixture(t, "detail_missing_vitals.html")})

	env := newService(m).Get(context.Background(), "missingno")

	assert.JSONEq(t, `{
		"ok": true,
		"data": {
			"records": {
				"id": "", "type": "", "species": "", "height": "", "weight": "",
				"evolution": []
			}
		}
	}`, marshal(t, env))
}

func TestGet_EscapesName(t *testing.T) {
	m := sessiontest.NewManager(sessiontest.Behavior{HTML: fixture(t, "detail_missing_vitals.html")})

	newService(m).Get(context.Background(), "mr. mime/../x")

	assert.Equal(t, []string{baseURL + "/pokedex/mr.%20mime%2F..%2Fx"}, m.URLs())
}

func TestGet_EmptyName(t *testing.T) {
	m := sessiontest.NewManager(sessiontest.Behavior{})

	env := newService(m).Get(context.Background(), "  ")

	require.False(t, env.OK)
	assert.Equal(t, models.ErrCodeInvalidInput, env.Error.Code)
	assert.Zero(t, m.Acquired())
}

func TestSpecs_Compile(t *testing.T) {
	e := extract.NewEngine()
	for _, spec := range []models.ExtractionSpec{pokedex.List(""), pokedex.Detail("")} {
		spec.Defaults()
		assert.NoError(t, e.Compile(&spec), spec.Name)
	}
	assert.Equal(t, "https://pokemondb.net/pokedex/all", pokedex.List("").URLTemplate)
	assert.Equal(t, "https://pokemondb.net/pokedex/{name}", pokedex.Detail("").URLTemplate)
}

func TestGet_ReadsFirstVitalsTableOnly(t *testing.T) {
	m := sessiontest.NewManager(sessiontest.Behavior{HTML: fixture(t, "detail_short_vitals.html")})

	env := newService(m).Get(context.Background(), "pikachu")

	assert.JSONEq(t, `{
		"ok": true,
		"data": {
			"records": {
				"id": "0025", "type": "Electric", "species": "Mouse Pokémon",
				"height": "0.4 m", "weight": "",
				"evolution": []
			}
		}
	}`, marshal(t, env))
}
