package maharera

import (
	"context"
	"testing"

	"maharera-api/internal/agents"

	"github.com/stretchr/testify/require"
)

const divisionsFragment = `
<option value="">Select Division</option>
<option value="1">Konkan</option>
<option value="2"> Pune </option>
<option value="3">Nashik</option>
<option value="4">Aurangabad</option>
<option value="5">Amravati</option>
<option value="6">Nagpur</option>
<option value="all">All Divisions</option>
`

const districtsFragment = `
<option value="">District</option>
<option value="519">Pune</option>
<option value="520">Satara</option>
<option value="521">Sangli</option>
<option value="522">Solapur</option>
<option value="523">Kolhapur</option>
`

func TestDivisions(t *testing.T) {
	fake, server := newFakeRegistry(t)
	fake.SetDivisions(divisionsFragment)
	registry, _ := fake.newRegistry(server)

	divisions, err := registry.Divisions(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Option{
		{Id: 1, Name: "Konkan"},
		{Id: 2, Name: "Pune"},
		{Id: 3, Name: "Nashik"},
		{Id: 4, Name: "Aurangabad"},
		{Id: 5, Name: "Amravati"},
		{Id: 6, Name: "Nagpur"},
	}, divisions)

	require.Equal(t, []map[string]string{{
		"stateCode":  "27",
		"langID":     "1",
		"form_code":  "custom_search_form",
		"field_code": "agent_division",
	}}, fake.Queries())
}

func TestDistricts(t *testing.T) {
	fake, server := newFakeRegistry(t)
	fake.SetDistricts("2", districtsFragment)
	registry, _ := fake.newRegistry(server)

	districts, err := registry.Districts(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, []Option{
		{Id: 519, Name: "Pune"},
		{Id: 520, Name: "Satara"},
		{Id: 521, Name: "Sangli"},
		{Id: 522, Name: "Solapur"},
		{Id: 523, Name: "Kolhapur"},
	}, districts)

	require.Equal(t, []map[string]string{{
		"state_code":     "27",
		"lang_id":        "1",
		"division_code":  "2",
		"district_form":  "custom_search_form",
		"distruct_field": "agent_district",
	}}, fake.Queries())
}

func TestDistrictsEmpty(t *testing.T) {
	fake, server := newFakeRegistry(t)
	fake.SetDistricts("9", `<option value="">District</option>`)
	registry, _ := fake.newRegistry(server)

	districts, err := registry.Districts(context.Background(), 9)
	require.NoError(t, err)
	require.NotNil(t, districts)
	require.Empty(t, districts)
}

func TestDistrictsUpstreamFailure(t *testing.T) {
	fake, server := newFakeRegistry(t)
	registry, recorder := fake.newRegistry(server)

	_, err := registry.Districts(context.Background(), 42)
	require.ErrorIs(t, err, agents.ErrUpstreamRequestFailed)
	require.NotEmpty(t, recorder.Find("broken", report_reference_districts))
}

func TestMatchOption(t *testing.T) {
	options := []Option{
		{Id: 1, Name: "Konkan"},
		{Id: 2, Name: "Pune"},
		{Id: 3, Name: "Nashik"},
		{Id: 4, Name: "Chhatrapati Sambhajinagar"},
		{Id: 6, Name: "Nagpur"},
	}

	table := []struct {
		query string
		id    int
		ok    bool
	}{
		{query: "2", id: 2, ok: true},
		{query: " 6 ", id: 6, ok: true},
		{query: "7", ok: false},
		{query: "pune", id: 2, ok: true},
		{query: "  NASHIK ", id: 3, ok: true},
		{query: "chhatrapati   sambhajinagar", id: 4, ok: true},
		{query: "Nasik", id: 3, ok: true},
		{query: "Konkann", id: 1, ok: true},
		{query: "Vidarbha", ok: false},
		{query: "", ok: false},
	}

	for _, row := range table {
		opt, ok := MatchOption(options, row.query)
		require.Equal(t, row.ok, ok, row.query)
		if row.ok {
			require.Equal(t, row.id, opt.Id, row.query)
		}
	}
}
