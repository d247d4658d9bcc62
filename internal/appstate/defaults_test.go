package appstate

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGolden(t *testing.T) {
	doc, err := Default()
	require.NoError(t, err)

	pretty, err := doc.Indent()
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "default_state", append(pretty, '\n'))
}

func TestDefaultShape(t *testing.T) {
	doc, err := Default()
	require.NoError(t, err)

	var decoded struct {
		Users map[string]struct {
			Received  map[string]int `json:"received"`
			Badges    []string       `json:"badges"`
			AdminLobs *int           `json:"adminLobs"`
		} `json:"users"`
		Logs    []any `json:"logs"`
		Rewards []struct {
			ID   int `json:"id"`
			Cost int `json:"cost"`
		} `json:"rewards"`
	}
	require.NoError(t, json.Unmarshal(doc.Bytes(), &decoded))

	assert.Len(t, decoded.Users, 4)
	for _, name := range SeedUsers {
		u, ok := decoded.Users[name]
		require.True(t, ok, "missing seed user %s", name)
		assert.Len(t, u.Received, len(SeedUsers)-1)
		assert.NotContains(t, u.Received, name)
		assert.Empty(t, u.Badges)
		assert.NotNil(t, u.Badges)
		assert.Nil(t, u.AdminLobs)
	}
	admin := decoded.Users[AdminUser]
	require.NotNil(t, admin.AdminLobs)
	assert.Equal(t, 0, *admin.AdminLobs)
	assert.Empty(t, admin.Received)

	assert.NotNil(t, decoded.Logs)
	assert.Empty(t, decoded.Logs)
	require.Len(t, decoded.Rewards, 3)
	assert.Equal(t, []int{20, 50, 100}, []int{decoded.Rewards[0].Cost, decoded.Rewards[1].Cost, decoded.Rewards[2].Cost})
}

func TestDefaultIsStable(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)
	assert.Equal(t, a.Bytes(), b.Bytes())
}
