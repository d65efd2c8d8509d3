package result_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotlist/pkg/result"
)

func TestOk(t *testing.T) {
	r := result.Ok(42)

	assert.True(t, r.OK())
	assert.NoError(t, r.Err())

	v, ok := r.Value()
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestErr(t *testing.T) {
	boom := errors.New("boom")
	r := result.Err[int](boom)

	assert.False(t, r.OK())
	assert.Equal(t, boom, r.Err())

	_, ok := r.Value()
	assert.False(t, ok)
}

func TestErrWithNilErrorIsSuccess(t *testing.T) {
	r := result.Err[string](nil)

	assert.True(t, r.OK())
	v, ok := r.Value()
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestFrom(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		err    error
		wantOK bool
	}{
		{name: "success", value: "data", err: nil, wantOK: true},
		{name: "failure", value: "", err: errors.New("nope"), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := result.From(tt.value, tt.err)
			assert.Equal(t, tt.wantOK, r.OK())

			v, err := r.Unpack()
			assert.Equal(t, tt.value, v)
			assert.Equal(t, tt.err, err)
		})
	}
}

func TestOrElse(t *testing.T) {
	assert.Equal(t, 7, result.Ok(7).OrElse(99))
	assert.Equal(t, 99, result.Err[int](errors.New("x")).OrElse(99))
}

func TestMap(t *testing.T) {
	double := func(n int) int { return n * 2 }

	v, ok := result.Map(result.Ok(21), double).Value()
	require.True(t, ok)
	assert.Equal(t, 42, v)

	boom := errors.New("boom")
	mapped := result.Map(result.Err[int](boom), double)
	assert.False(t, mapped.OK())
	assert.Equal(t, boom, mapped.Err())
}
