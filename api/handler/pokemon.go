package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pokedex/models"
)

// Pokedex runs the built-in use cases.
type Pokedex interface {
	List(ctx context.Context) models.Envelope
	Get(ctx context.Context, name string) models.Envelope
}

// ListPokemon returns a handler for GET /v1/pokemon.
func ListPokemon(p Pokedex) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, p.List(c.Request.Context()))
	}
}

// GetPokemon returns a handler for GET /v1/pokemon/:name.
func GetPokemon(p Pokedex) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, p.Get(c.Request.Context(), c.Param("name")))
	}
}
