// Package pokedex declares the two built-in use cases: the full Pokédex
// listing and a single Pokémon's detail page.
package pokedex

import (
	"context"
	"fmt"
	"strings"

	"github.com/use-agent/pokedex/models"
)

// DefaultBaseURL is the public site the use cases target.
const DefaultBaseURL = "https://pokemondb.net"

// Use case names, reported in logs and metrics.
const (
	UseCaseList   = "list"
	UseCaseDetail = "detail"
)

// Only the first vitals table holds the Pokédex data; later ones hold
// training and breeding rows.
const (
	vitalsTable = "main#main table.vitals-table > tbody"
	vitalsCell  = "tr:nth-child(%d) > td"
)

// List returns the listing spec: one record per row of the national dex
// table. Rows without an id or name cell yield null; a missing type cell
// yields "".
func List(baseURL string) models.ExtractionSpec {
	return models.ExtractionSpec{
		Name:        UseCaseList,
		URLTemplate: base(baseURL) + "/pokedex/all",
		Readiness:   models.Both("table#pokedex"),
		Rows:        "table#pokedex tbody tr",
		Fields: models.FieldMapping{
			{Key: "id", Selector: "td:nth-child(1) .infocard-cell-data", Scope: models.ScopeRow},
			{Key: "name", Selector: "td:nth-child(2)", Scope: models.ScopeRow},
			{Key: "type", Selector: "td:nth-child(3)", Scope: models.ScopeRow, Default: models.StringPtr("")},
		},
	}
}

// Detail returns the detail spec for the page at {base}/pokedex/{name}.
// Vitals are read from the first vitals table only; rows missing from it
// yield "". Evolution is one list of stage names per evolution line.
func Detail(baseURL string) models.ExtractionSpec {
	vital := func(key string, row int) models.Field {
		return models.Field{
			Key:      key,
			Within:   vitalsTable,
			Selector: fmt.Sprintf(vitalsCell, row),
			Default:  models.StringPtr(""),
		}
	}
	return models.ExtractionSpec{
		Name:        UseCaseDetail,
		URLTemplate: base(baseURL) + "/pokedex/{name}",
		Readiness:   models.NavigationSettled(),
		Fields: models.FieldMapping{
			vital("id", 1),
			vital("type", 2),
			vital("species", 3),
			vital("height", 4),
			vital("weight", 5),
			{
				Key:          "evolution",
				Selector:     ".infocard-list-evo",
				Multiplicity: models.MultiplicityMany,
				Transform:    models.TransformListOfText,
				Item:         ".infocard",
			},
		},
	}
}

func base(baseURL string) string {
	if baseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// Runner executes an extraction spec and wraps the outcome.
type Runner interface {
	Run(ctx context.Context, spec models.ExtractionSpec, params map[string]string) models.Envelope
}

// Service runs the built-in use cases against one site.
type Service struct {
	runner  Runner
	baseURL string
}

// NewService returns a Service targeting baseURL (DefaultBaseURL if empty).
func NewService(runner Runner, baseURL string) *Service {
	return &Service{runner: runner, baseURL: base(baseURL)}
}

// List runs the listing use case.
func (s *Service) List(ctx context.Context) models.Envelope {
	return s.runner.Run(ctx, List(s.baseURL), nil)
}

// Get runs the detail use case for name. An empty name is rejected as
// INVALID_INPUT without running anything.
func (s *Service) Get(ctx context.Context, name string) models.Envelope {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.ErrorEnvelope(models.ErrCodeInvalidInput, "Bad request: pokemon name is required")
	}
	return s.runner.Run(ctx, Detail(s.baseURL), map[string]string{"name": name})
}
