package queries_test

import (
	"testing"

	"orderflow/internal/core/application/usecases/queries"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGetAllCouriersQuery(t *testing.T) {
	t.Run("should carry the online filter", func(t *testing.T) {
		for _, onlineOnly := range []bool{true, false} {
			query := queries.NewGetAllCouriersQuery(onlineOnly)

			require.NoError(t, query.Validate())
			assert.Equal(t, onlineOnly, query.OnlineOnly())
		}
	})

	t.Run("should reject a zero value query", func(t *testing.T) {
		err := queries.GetAllCouriersQuery{}.Validate()

		require.ErrorIs(t, err, queries.ErrGetAllCouriersQueryIsNotConstructed)
	})
}
