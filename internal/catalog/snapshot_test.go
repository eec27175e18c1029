package catalog_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/service-desk/internal/catalog"
	"github.com/spec-kit/service-desk/internal/catalog/catalogtest"
	"github.com/spec-kit/service-desk/internal/domain"
)

func TestNormalizeText(t *testing.T) {
	cases := map[string]string{
		"My AC is NOT cooling!!":  "my ac is not cooling",
		"  towels,please  ":       "towels please",
		"Room #204 - late-checkout": "room 204 late checkout",
		"":                        "",
		"¿Dónde está?":            "dónde está",
	}
	for in, want := range cases {
		assert.Equal(t, want, catalog.NormalizeText(in), in)
	}
}

func TestNewSnapshot_Indexes(t *testing.T) {
	s := catalogtest.Snapshot()

	assert.Equal(t, int64(1), s.Version())
	assert.Equal(t, 3, s.TotalWeight(catalogtest.TypeAirConditioning))

	o, ok := s.Override(catalogtest.DeptMaintenance, catalogtest.TypeAirConditioning, domain.TicketPriorityHigh)
	require.True(t, ok)
	assert.Equal(t, 5, o.ResponseMinutes)

	assert.Equal(t, []int64{catalogtest.DeptHousekeeping, catalogtest.DeptFrontDesk},
		s.OverrideDepartments(catalogtest.TypeLateCheckout))

	menu := s.Menu()
	require.Len(t, menu, 5)
	assert.Equal(t, catalogtest.TypeAirConditioning, menu[0].ID)

	assert.Equal(t, "ac", s.Rules()[0].Normalized)
}

func TestNewSnapshot_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *catalog.Data)
	}{
		{"duplicate keyword ignoring case", func(d *catalog.Data) {
			d.KeywordRules = append(d.KeywordRules, domain.KeywordRule{ID: 99, Keyword: "Towel", RequestTypeID: catalogtest.TypeFoodOrder, Weight: 1})
		}},
		{"zero weight", func(d *catalog.Data) { d.KeywordRules[0].Weight = 0 }},
		{"non-positive policy", func(d *catalog.Data) { d.Policies[0].ResolutionMinutes = 0 }},
		{"non-positive override", func(d *catalog.Data) { d.Overrides[0].ResponseMinutes = -1 }},
		{"unknown priority", func(d *catalog.Data) { d.Policies[0].Priority = "URGENT" }},
		{"unknown request type", func(d *catalog.Data) { d.KeywordRules[0].RequestTypeID = 999 }},
		{"blank keyword", func(d *catalog.Data) { d.KeywordRules[0].Keyword = " ?! " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := catalogtest.Data()
			tt.mutate(&data)
			_, err := catalog.NewSnapshot(2, time.Now(), data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))
		})
	}
}
