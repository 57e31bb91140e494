package pipeline

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pokedex/models"
)

func marshal(t *testing.T, env models.Envelope) string {
	t.Helper()
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return string(b)
}

func TestWrap_List(t *testing.T) {
	a := models.NewRecord(2)
	a.Set("id", "0001")
	a.Set("name", nil)

	env := Wrap(models.Outcome{Records: []*models.Record{a}, List: true})

	assert.JSONEq(t, `{"ok":true,"data":{"count":1,"records":[{"id":"0001","name":null}]}}`, marshal(t, env))
}

func TestWrap_EmptyList(t *testing.T) {
	env := Wrap(models.Outcome{List: true})

	assert.JSONEq(t, `{"ok":true,"data":{"count":0,"records":[]}}`, marshal(t, env))
}

func TestWrap_SingleRecordHasNoCount(t *testing.T) {
	rec := models.NewRecord(1)
	rec.Set("species", "Mouse Pokémon")

	env := Wrap(models.Outcome{Record: rec})

	assert.JSONEq(t, `{"ok":true,"data":{"records":{"species":"Mouse Pokémon"}}}`, marshal(t, env))
}

func TestWrap_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "taxonomy error",
			err:  models.NewPipelineError(models.ErrCodeNavigationTimeout, "page did not become ready within 30s", nil),
			want: `{"ok":false,"error":{"code":"NAVIGATION_TIMEOUT","message":"page did not become ready within 30s"}}`,
		},
		{
			name: "wrapped taxonomy error",
			err:  errors.Join(models.NewPipelineError(models.ErrCodeLaunchFailure, "failed to launch browser", nil)),
			want: `{"ok":false,"error":{"code":"LAUNCH_FAILURE","message":"failed to launch browser"}}`,
		},
		{
			name: "foreign error",
			err:  errors.New("boom"),
			want: `{"ok":false,"error":{"code":"INTERNAL_ERROR","message":"boom"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, marshal(t, Wrap(models.Failed(tt.err))))
		})
	}
}
