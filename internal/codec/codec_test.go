package codec_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lc/stash/internal/codec"
)

type endpoint struct {
	Host    string        `stash:"host"`
	Port    int           `stash:"port"`
	Timeout time.Duration `stash:"timeout"`
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	c := codec.New()

	testCases := []struct {
		name  string
		value any
	}{
		{name: "int", value: 42},
		{name: "negative int", value: -7},
		{name: "float", value: 3.25},
		{name: "string", value: "héllo wörld"},
		{name: "bool", value: true},
		{name: "duration", value: 90 * time.Second},
		{name: "string slice", value: []string{"a", "b"}},
		{name: "int slice", value: []int{1, 2, 3}},
		{name: "string map", value: map[string]string{"k": "v"}},
		{name: "struct", value: endpoint{Host: "db", Port: 5432, Timeout: time.Minute}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			typ := reflect.TypeOf(tc.value)
			raw, err := c.Encode(tc.value, typ)
			require.NoError(t, err)

			back, err := c.Decode(raw, typ)
			require.NoError(t, err)
			assert.Equal(t, tc.value, back)
		})
	}
}

func TestEncode_DurationAsString(t *testing.T) {
	t.Parallel()

	c := codec.New()
	raw, err := c.Encode(90*time.Second, reflect.TypeOf(time.Duration(0)))
	require.NoError(t, err)
	assert.Equal(t, "1m30s", raw)
}

func TestEncode_Unencodable(t *testing.T) {
	t.Parallel()

	c := codec.New()
	ch := make(chan int)
	_, err := c.Encode(ch, reflect.TypeOf(ch))
	assert.Error(t, err)
}

func TestDecode_Coercion(t *testing.T) {
	t.Parallel()

	c := codec.New()

	testCases := []struct {
		name string
		raw  any
		typ  reflect.Type
		want any
	}{
		// json.Unmarshal hands back float64 for every number; the codec
		// must coerce it onto the declared type.
		{name: "float64 to int", raw: float64(42), typ: reflect.TypeOf(0), want: 42},
		{name: "string to int", raw: "17", typ: reflect.TypeOf(0), want: 17},
		{name: "float64 to int8", raw: float64(7), typ: reflect.TypeOf(int8(0)), want: int8(7)},
		{name: "float64 to uint", raw: float64(9), typ: reflect.TypeOf(uint(0)), want: uint(9)},
		{name: "int to float64", raw: 4, typ: reflect.TypeOf(0.0), want: 4.0},
		{name: "string to bool", raw: "true", typ: reflect.TypeOf(false), want: true},
		{name: "string to duration", raw: "1m30s", typ: reflect.TypeOf(time.Duration(0)), want: 90 * time.Second},
		{name: "int nanoseconds to duration", raw: int64(time.Second), typ: reflect.TypeOf(time.Duration(0)), want: time.Second},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := c.Decode(tc.raw, tc.typ)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecode_NamedScalarType(t *testing.T) {
	t.Parallel()

	type mode string
	c := codec.New()
	got, err := c.Decode("fast", reflect.TypeOf(mode("")))
	require.NoError(t, err)
	assert.Equal(t, mode("fast"), got)
}

func TestDecode_Time(t *testing.T) {
	t.Parallel()

	c := codec.New()
	ts := time.Date(2024, 11, 5, 12, 30, 0, 0, time.UTC)

	raw, err := c.Encode(ts, reflect.TypeOf(time.Time{}))
	require.NoError(t, err)

	back, err := c.Decode(raw, reflect.TypeOf(time.Time{}))
	require.NoError(t, err)
	assert.True(t, ts.Equal(back.(time.Time)))
}

func TestDecode_CompositeFromLooseMap(t *testing.T) {
	t.Parallel()

	c := codec.New()
	raw := map[string]any{
		"host":    "db.internal",
		"port":    float64(5432), // as json.Unmarshal would produce
		"timeout": "45s",
	}

	got, err := c.Decode(raw, reflect.TypeOf(endpoint{}))
	require.NoError(t, err)
	assert.Equal(t, endpoint{Host: "db.internal", Port: 5432, Timeout: 45 * time.Second}, got)
}

func TestDecode_Failure(t *testing.T) {
	t.Parallel()

	c := codec.New()

	_, err := c.Decode("not a number", reflect.TypeOf(0))
	assert.Error(t, err)

	_, err = c.Decode([]any{"x"}, reflect.TypeOf(false))
	assert.Error(t, err)

	_, err = c.Decode("way out", reflect.TypeOf(time.Duration(0)))
	assert.Error(t, err)
}

func TestDecode_OverflowRejected(t *testing.T) {
	t.Parallel()

	c := codec.New()
	_, err := c.Decode(float64(300), reflect.TypeOf(int8(0)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overflows")
}
