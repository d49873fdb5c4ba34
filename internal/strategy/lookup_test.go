package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupFlatField(t *testing.T) {
	body := map[string]any{"username": "sclaus"}
	assert.Equal(t, "sclaus", lookup(body, "username"))
	assert.Equal(t, "", lookup(body, "password"))
}

func TestLookupBracketPath(t *testing.T) {
	body := map[string]any{
		"login": map[string]any{
			"user": map[string]any{
				"name": "sclaus",
			},
		},
	}
	assert.Equal(t, "sclaus", lookup(body, "login[user][name]"))
	assert.Equal(t, "", lookup(body, "login[user][missing]"))
	assert.Equal(t, "", lookup(body, "login[missing][name]"))
}

func TestLookupNonStringValues(t *testing.T) {
	body := map[string]any{
		"count": 3,
		"user":  map[string]any{"name": 42},
	}
	assert.Equal(t, "", lookup(body, "count"))
	assert.Equal(t, "", lookup(body, "user[name]"))
	// A path into a non-object value dead-ends.
	assert.Equal(t, "", lookup(body, "count[deep]"))
}

func TestParseFieldPath(t *testing.T) {
	assert.Equal(t, []string{"username"}, parseFieldPath("username"))
	assert.Equal(t, []string{"a", "b", "c"}, parseFieldPath("a[b][c]"))

	// Malformed paths resolve to nothing.
	assert.Nil(t, parseFieldPath(""))
	assert.Nil(t, parseFieldPath("[b]"))
	assert.Nil(t, parseFieldPath("a[]"))
	assert.Nil(t, parseFieldPath("a[b"))
	assert.Nil(t, parseFieldPath("a[b]x"))
}
