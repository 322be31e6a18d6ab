package mapping

import (
	"testing"

	"cadbridge/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestResolveRoster(t *testing.T) {
	t.Run("dedup keeps first occurrence", func(t *testing.T) {
		activity := []domain.RawActivity{
			{ActorType: "unit", UnitName: "M51"},
			{ActorType: "unit", UnitName: "E51"},
			{ActorType: "unit", UnitName: "M51"},
		}
		dispatches := []domain.RawDispatch{
			{ActorType: "unit", UnitName: "E51"},
			{ActorType: "unit", UnitName: "BC5"},
		}

		assert.Equal(t, []string{"M51", "E51", "BC5"}, ResolveRoster(activity, dispatches))
	})

	t.Run("dispatch-only units are included", func(t *testing.T) {
		dispatches := []domain.RawDispatch{{ActorType: "unit", UnitName: "R12"}}
		assert.Equal(t, []string{"R12"}, ResolveRoster(nil, dispatches))
	})

	t.Run("non-unit actors and blank names are ignored", func(t *testing.T) {
		activity := []domain.RawActivity{
			{ActorType: "user", UnitName: "dispatcher1"},
			{ActorType: "UNIT", UnitName: " M7 "},
			{ActorType: "unit", UnitName: ""},
		}
		dispatches := []domain.RawDispatch{{ActorType: "station", UnitName: "St 5"}}

		assert.Equal(t, []string{"M7"}, ResolveRoster(activity, dispatches))
	})

	t.Run("empty roster is an empty slice", func(t *testing.T) {
		roster := ResolveRoster(nil, nil)
		assert.NotNil(t, roster)
		assert.Empty(t, roster)
	})
}

func TestFirstUnitLocation(t *testing.T) {
	dispatches := []domain.RawDispatch{
		{ActorType: "station", UnitName: "St 5", Location: "Station 5"},
		{ActorType: "unit", UnitName: "M51"},
		{ActorType: "unit", UnitName: "E51", Location: "Quarters"},
	}
	assert.Equal(t, "Quarters", FirstUnitLocation(dispatches))
	assert.Equal(t, "", FirstUnitLocation(nil))
}
