package mapview_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
	"github.com/tutumi2011kt-gif/mulmochat/tools/mapview"
)

func TestDefinition(t *testing.T) {
	p, err := mapview.New()
	require.NoError(t, err)

	js, err := json.Marshal(p.Definition.Parameters.Properties)
	require.NoError(t, err)
	assert.JSONEq(t, `{"location":{"type":"string","description":"The location name, address, or place to show on the map (e.g., 'Seattle', 'Paris, France', '123 Main St, New York')"}}`, string(js))

	assert.False(t, p.Available(nil))
	assert.True(t, p.Available(tools.Capabilities{tools.CapabilityMapKey}))
}

func TestShow(t *testing.T) {
	ctx := context.Background()
	p, err := mapview.New()
	require.NoError(t, err)
	d := tools.NewDispatcher(tools.MustRegistry(p))

	sess := tools.NewSessionContext("m1", tools.CapabilityMapKey)
	sess.AppendImage("QQ==")

	res, err := d.Execute(ctx, sess, "map", map[string]any{"location": "Paris, France"})
	require.NoError(t, err)
	assert.Equal(t, "Showing Paris, France on the map", res.Message)
	require.NotNil(t, res.Location)
	assert.Equal(t, "Paris, France", res.Location.Name)
	assert.Nil(t, res.Location.Coordinates)
	assert.Equal(t, []string{"QQ=="}, sess.Images())

	res, err = d.Execute(ctx, sess, "map", map[string]any{"location": "47.6062, -122.3321"})
	require.NoError(t, err)
	require.NotNil(t, res.Location)
	assert.Equal(t, &tools.LatLng{Lat: 47.6062, Lng: -122.3321}, res.Location.Coordinates)

	js, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Showing 47.6062, -122.3321 on the map","location":{"lat":47.6062,"lng":-122.3321}}`, string(js))

	res, err = d.Execute(ctx, sess, "map", map[string]any{"location": "   "})
	require.NoError(t, err)
	assert.Equal(t, "Location parameter is required and must be a string", res.Message)
	assert.Nil(t, res.Location)
	assert.Equal(t, []string{"QQ=="}, sess.Images())
}

func TestShow_Unavailable(t *testing.T) {
	p, err := mapview.New()
	require.NoError(t, err)
	d := tools.NewDispatcher(tools.MustRegistry(p))

	res, err := d.Execute(context.Background(), tools.NewSessionContext("m2"), "map", map[string]any{"location": "Seattle"})
	assert.True(t, errors.Is(err, tools.ErrToolUnavailable))
	require.NotNil(t, res)
	assert.Nil(t, res.Location)
}
