package mempool

import (
	"sync"
)

// Sized pools for the []float64 grayscale planes the detector allocates per
// captured frame. A 1080p frame is ~2M pixels, so reuse matters.

var float64Pools sync.Map // key: size class (int), value: *sync.Pool

const classStep = 4096

// sizeClass rounds n up to the next multiple of classStep.
func sizeClass(n int) int {
	if n <= classStep {
		return classStep
	}
	r := (n + classStep - 1) / classStep
	return r * classStep
}

func poolFor(cls int) *sync.Pool {
	pAny, _ := float64Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]float64, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return nil
	}
	return p
}

// GetFloat64 retrieves a []float64 buffer of length n. Contents are
// unspecified; callers overwrite every element or use GetFloat64Zeroed.
// Return it via PutFloat64 when done.
func GetFloat64(n int) []float64 {
	cls := sizeClass(n)
	p := poolFor(cls)
	if p == nil {
		return make([]float64, n, cls)
	}
	buf, ok := p.Get().([]float64)
	if !ok || cap(buf) < cls {
		buf = make([]float64, cls)
	}
	return buf[:n]
}

// GetFloat64Zeroed is GetFloat64 with every element set to zero.
func GetFloat64Zeroed(n int) []float64 {
	buf := GetFloat64(n)
	clear(buf)
	return buf
}

// PutFloat64 returns a buffer to the pool. It is safe to pass a nil slice.
func PutFloat64(buf []float64) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	if cls != cap(buf) {
		// foreign slice; pooling it would hand out a buffer shorter than its class
		return
	}
	p := poolFor(cls)
	if p == nil {
		return
	}
	p.Put(buf[:cap(buf)]) //nolint:staticcheck
}
