package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{name: "small size gets minimum", input: 1, expected: 4096},
		{name: "exactly one step", input: 4096, expected: 4096},
		{name: "just over one step", input: 4097, expected: 8192},
		{name: "vga frame", input: 640 * 480, expected: 307200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestGetPutFloat64(t *testing.T) {
	buf := GetFloat64(1000)
	require.Len(t, buf, 1000)
	assert.Equal(t, 4096, cap(buf))
	for i := range buf {
		buf[i] = 7
	}
	PutFloat64(buf)

	z := GetFloat64Zeroed(1000)
	require.Len(t, z, 1000)
	for _, v := range z {
		assert.Zero(t, v)
	}
	PutFloat64(z)
}

func TestPutFloat64_ForeignAndNil(t *testing.T) {
	assert.NotPanics(t, func() {
		PutFloat64(nil)
		PutFloat64(make([]float64, 10))
	})
	buf := GetFloat64(4096)
	assert.Len(t, buf, 4096)
}

func TestFloat64Pool_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for range 100 {
				b := GetFloat64Zeroed(n)
				if len(b) != n {
					t.Errorf("len = %d, want %d", len(b), n)
				}
				PutFloat64(b)
			}
		}((g + 1) * 3000)
	}
	wg.Wait()
}
