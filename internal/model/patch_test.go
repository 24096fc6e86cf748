package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldThreeStates(t *testing.T) {
	type patch struct {
		LastName Field[string] `json:"last_name"`
		Height   Field[int]    `json:"height"`
	}

	t.Run("absent leaves current", func(t *testing.T) {
		var p patch
		require.NoError(t, json.Unmarshal([]byte(`{}`), &p))
		assert.False(t, p.LastName.Present())
		assert.Equal(t, "Rodriguez", p.LastName.Apply("Rodriguez"))
	})

	t.Run("explicit null clears", func(t *testing.T) {
		var p patch
		require.NoError(t, json.Unmarshal([]byte(`{"last_name": null}`), &p))
		assert.True(t, p.LastName.Present())
		assert.True(t, p.LastName.Null())
		assert.Equal(t, "", p.LastName.Apply("Rodriguez"))
	})

	t.Run("value replaces", func(t *testing.T) {
		var p patch
		require.NoError(t, json.Unmarshal([]byte(`{"last_name": "Perez", "height": 180}`), &p))
		v, ok := p.LastName.Value()
		require.True(t, ok)
		assert.Equal(t, "Perez", v)
		assert.Equal(t, 180, p.Height.Apply(170))
	})
}
