package write

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrittenEvent(t *testing.T) {
	written := NewRecord()
	written.SetScalar("shop_uuid", "shop-1")
	written.Append("product", map[string]any{"uuid": "B"})

	rowErr := NewRowWriteError("product", ErrCodeRequired, "name is required")
	rowErr.Row = Row{"uuid": "A"}
	errs := []RowWriteError{*rowErr}

	input := Batch{map[string]any{"uuid": "A"}, map[string]any{"uuid": "B", "name": "Bar"}}
	event := NewWrittenEvent("product", ModeCreate, "shop-1", written, input, errs)

	t.Run("accessors", func(t *testing.T) {
		assert.Equal(t, "product.written", event.EventType())
		assert.Equal(t, "product", event.Resource())
		assert.Equal(t, ModeCreate, event.Mode())
		assert.Equal(t, input, event.Input())
		assert.True(t, event.HasErrors())
		assert.NotEqual(t, "", event.EventID().String())
		assert.False(t, event.OccurredAt().IsZero())
	})

	t.Run("errors are copied", func(t *testing.T) {
		errs[0].Code = "CHANGED"
		got := event.Errors()
		got[0].Message = "changed"

		assert.Equal(t, ErrCodeRequired, event.Errors()[0].Code)
		assert.Equal(t, "name is required", event.Errors()[0].Message)
	})

	t.Run("written data cannot be changed through the accessor", func(t *testing.T) {
		w := event.Written()
		w.Append("product", "extra")

		assert.Len(t, event.Written().List("product"), 1)
	})

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(event)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))

		assert.Equal(t, "product.written", decoded["type"])
		assert.Equal(t, "create", decoded["mode"])
		assert.Equal(t, "shop-1", decoded["shop_uuid"])
		assert.Equal(t, map[string]any{
			"shop_uuid": "shop-1",
			"product":   []any{map[string]any{"uuid": "B"}},
		}, decoded["written"])
		assert.Len(t, decoded["input"], 2)
		errsJSON := decoded["errors"].([]any)
		require.Len(t, errsJSON, 1)
		assert.Equal(t, "REQUIRED", errsJSON[0].(map[string]any)["code"])
		assert.Equal(t, map[string]any{"uuid": "A"}, errsJSON[0].(map[string]any)["row"])
	})

	t.Run("empty event encodes empty collections", func(t *testing.T) {
		empty := NewWrittenEvent("product", ModeUpsert, "shop-1", NewRecord(), nil, nil)

		data, err := json.Marshal(empty)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, map[string]any{}, decoded["written"])
		assert.Equal(t, []any{}, decoded["input"])
		assert.Equal(t, []any{}, decoded["errors"])
		assert.False(t, empty.HasErrors())
	})
}
