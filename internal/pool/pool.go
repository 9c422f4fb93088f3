// Package pool provides bucketed sync.Pool instances for reducing allocations
// in hot paths. Byte buffers back per-frame index maps and resample scratch;
// color buffers back per-frame OKLab conversion scratch.
package pool

import (
	"sync"

	"github.com/deepteams/animgif/oklab"
)

// Size classes for bucketed byte pools. A 64x64 index frame fits 4K,
// a 256x256 RGBA frame fits 256K.
const (
	Size1K   = 1024
	Size4K   = 4096
	Size16K  = 16384
	Size64K  = 65536
	Size256K = 262144
	Size1M   = 1048576
)

var sizes = [6]int{Size1K, Size4K, Size16K, Size64K, Size256K, Size1M}

// bucketIndex returns the pool index for a given size.
func bucketIndex(size int) int {
	for i, s := range sizes {
		if size <= s {
			return i
		}
	}
	return len(sizes) - 1
}

var bytePools [6]sync.Pool

func init() {
	for i := range bytePools {
		sz := sizes[i]
		bytePools[i] = sync.Pool{
			New: func() any {
				b := make([]byte, sz)
				return &b
			},
		}
	}
}

// GetBytes returns a byte slice of length size from the pool. The slice may
// have a larger capacity. The caller must call PutBytes when done.
func GetBytes(size int) []byte {
	bp := bytePools[bucketIndex(size)].Get().(*[]byte)
	b := *bp
	if cap(b) < size {
		b = make([]byte, size)
		*bp = b
		return b
	}
	return b[:size]
}

// PutBytes returns a byte slice to the pool. Slices smaller than the
// smallest size class are not pooled.
func PutBytes(b []byte) {
	c := cap(b)
	if c < Size1K {
		return
	}
	b = b[:c]
	bytePools[bucketIndex(c)].Put(&b)
}

var colorPool = sync.Pool{
	New: func() any {
		s := make([]oklab.Color, 0, Size16K/4)
		return &s
	},
}

// GetColors returns an oklab.Color slice of length n from the pool.
// Contents are unspecified; the caller overwrites every element.
func GetColors(n int) []oklab.Color {
	sp := colorPool.Get().(*[]oklab.Color)
	s := *sp
	if cap(s) < n {
		s = make([]oklab.Color, n)
		*sp = s
		return s
	}
	return s[:n]
}

// PutColors returns a color slice to the pool.
func PutColors(s []oklab.Color) {
	colorPool.Put(&s)
}
