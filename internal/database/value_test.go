package database

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null(), `null`},
		{"int", Int(42), `42`},
		{"negative int", Int(-7), `-7`},
		{"float", Float(1.5), `1.5`},
		{"bool", Bool(true), `true`},
		{"string", String(`say "hi"`), `"say \"hi\""`},
		{"zero value is null", Value{}, `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(b))
		})
	}
}

func TestValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
		want any
	}{
		{`null`, KindNull, nil},
		{`12`, KindNumber, int64(12)},
		{`12.25`, KindNumber, 12.25},
		{`false`, KindBool, false},
		{`"x"`, KindString, "x"},
		{`{"a":1}`, KindString, `{"a":1}`},
		{`[1,"b"]`, KindString, `[1,"b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tt.in), &v))
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.want, v.Interface())
		})
	}
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "", Null().String())
	assert.Equal(t, "3", Int(3).String())
	assert.Equal(t, "0.25", Float(0.25).String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "abc", String("abc").String())
}

func TestValue_Accessors(t *testing.T) {
	assert.True(t, Int(9).IsInt())
	assert.False(t, Float(9).IsInt())
	assert.Equal(t, float64(9), Int(9).AsFloat())
	assert.Equal(t, int64(2), Float(2.9).AsInt())
	assert.True(t, Null().IsNull())
	assert.Equal(t, "number", KindNumber.String())
}

func TestFiniteFloat(t *testing.T) {
	assert.True(t, FiniteFloat(1))
	assert.False(t, FiniteFloat(math.NaN()))
	assert.False(t, FiniteFloat(math.Inf(1)))
	assert.False(t, FiniteFloat(math.Inf(-1)))
}

func TestQueryResult_JSON(t *testing.T) {
	res := NewResult([]string{"id", "name"}, [][]Value{{Int(1), String("a")}, {Int(2), Null()}})
	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["id","name"],"rows":[[1,"a"],[2,null]],"row_count":2}`, string(b))

	b, err = json.Marshal(NewResult([]string{"id"}, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":[],"rows":[],"row_count":0}`, string(b))
}
