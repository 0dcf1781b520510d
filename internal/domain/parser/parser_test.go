package parser

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/reviewdesk/internal/domain/model"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     model.Candidate
		strategy Strategy
	}{
		{
			name:     "strict object",
			raw:      `{"name":"A","score":10}`,
			want:     model.Candidate{"name": "A", "score": json.Number("10")},
			strategy: StrategyStrict,
		},
		{
			name:     "strict with surrounding whitespace",
			raw:      "\n  {\"decision\":\"Selected\"}\t\n",
			want:     model.Candidate{"decision": "Selected"},
			strategy: StrategyStrict,
		},
		{
			name:     "prose around object",
			raw:      `Sure! {"name":"A","score":10}  thanks`,
			want:     model.Candidate{"name": "A", "score": json.Number("10")},
			strategy: StrategyFallback,
		},
		{
			name:     "markdown fence",
			raw:      "```json\n{\"name\":\"A\"}\n```",
			want:     model.Candidate{"name": "A"},
			strategy: StrategyFallback,
		},
		{
			name:     "braces inside strings",
			raw:      `Result: {"feedback":"uses {curly} and \"}\" inside","score":5} done`,
			want:     model.Candidate{"feedback": `uses {curly} and "}" inside`, "score": json.Number("5")},
			strategy: StrategyFallback,
		},
		{
			name:     "nested object",
			raw:      `x {"a":{"b":1},"c":2} y`,
			want:     model.Candidate{"a": map[string]any{"b": json.Number("1")}, "c": json.Number("2")},
			strategy: StrategyFallback,
		},
		{
			name:     "array falls back to its first object",
			raw:      `[{"name":"A"},{"name":"B"}]`,
			want:     model.Candidate{"name": "A"},
			strategy: StrategyFallback,
		},
		{
			name:     "only the first object is taken",
			raw:      `{"name":"first"} and then {"name":"second"}`,
			want:     model.Candidate{"name": "first"},
			strategy: StrategyFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, strategy, err := ParseDetailed(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.strategy, strategy)
		})
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "whitespace", raw: " \n\t "},
		{name: "no braces", raw: "I could not evaluate this resume."},
		{name: "unbalanced", raw: `here {"name":"A"`},
		{name: "invalid inside braces", raw: `see {name: A}`},
		{name: "first candidate invalid", raw: `{oops} {"name":"A"}`},
		{name: "top level scalar", raw: `42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, errors.Is(err, ErrUnparseable))

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.raw, pe.Raw)
			assert.NotEmpty(t, pe.Reason)
		})
	}
}

func TestParseIsDeterministic(t *testing.T) {
	inputs := []string{
		`Sure! {"name":"A","score":10}  thanks`,
		`nothing here`,
		`{"decision":"selected"}`,
	}
	for _, in := range inputs {
		c1, err1 := Parse(in)
		c2, err2 := Parse(in)
		assert.Equal(t, c1, c2)
		assert.Equal(t, err1, err2)
	}
}

func TestParseEnvelope(t *testing.T) {
	t.Run("list under key", func(t *testing.T) {
		raw := "Here you go:\n" + `{"results":[{"FR_id":"FR-1"},{"FR_id":"FR-2"}]}`
		got, err := ParseEnvelope(raw, "results")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "FR-2", got[1]["FR_id"])
	})

	t.Run("bare object", func(t *testing.T) {
		got, err := ParseEnvelope(`{"FR_id":"FR-1"}`, "results")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "FR-1", got[0]["FR_id"])
	})

	t.Run("key is not a list", func(t *testing.T) {
		_, err := ParseEnvelope(`{"results":"none"}`, "results")
		assert.ErrorIs(t, err, ErrUnparseable)
	})

	t.Run("item is not an object", func(t *testing.T) {
		_, err := ParseEnvelope(`{"results":[1]}`, "results")
		assert.ErrorIs(t, err, ErrUnparseable)
	})
}

func TestFirstObject(t *testing.T) {
	got, ok := firstObject(`prefix {"k":"}"} suffix }`)
	require.True(t, ok)
	assert.Equal(t, `{"k":"}"}`, got)

	_, ok = firstObject("no object")
	assert.False(t, ok)

	_, ok = firstObject(`{"k":"v"`)
	assert.False(t, ok)
}
