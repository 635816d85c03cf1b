package randomx

/*
#cgo LDFLAGS: -lrandomx -lstdc++
#include <stdlib.h>
#include "randomx.h"

static randomx_cache *rx_alloc_cache(int flags) {
	return randomx_alloc_cache((randomx_flags)flags);
}
static randomx_dataset *rx_alloc_dataset(int flags) {
	return randomx_alloc_dataset((randomx_flags)flags);
}
*/
import "C"

import (
	"errors"
	"runtime"
	"unsafe"
)

// ErrAllocationFailed is returned when the native allocator refuses
// both the large-pages and standard allocation paths (§4.1 step 3,
// §7 Fatal: HasherAllocationFailed).
var ErrAllocationFailed = errors.New("randomx: native allocation failed")

// cache wraps a randomx_cache*, initialized from a seed.
type cache struct {
	ptr   *C.randomx_cache
	flags Flags
	seed  []byte
}

func newCache(seed []byte, flags Flags) (*cache, error) {
	p := C.rx_alloc_cache(C.int(flags &^ FlagFullMem))
	if p == nil {
		return nil, ErrAllocationFailed
	}
	c := &cache{ptr: p, flags: flags &^ FlagFullMem, seed: append([]byte(nil), seed...)}
	C.randomx_init_cache(p, unsafe.Pointer(&seed[0]), C.size_t(len(seed)))
	runtime.SetFinalizer(c, (*cache).close)
	return c, nil
}

func (c *cache) close() {
	if c.ptr != nil {
		C.randomx_release_cache(c.ptr)
		c.ptr = nil
		runtime.SetFinalizer(c, nil)
	}
}

// dataset wraps a randomx_dataset*, the full 2GiB+ mining table
// derived from a cache. Only built when mining is enabled.
type dataset struct {
	ptr *C.randomx_dataset
}

func newDataset(c *cache, flags Flags) (*dataset, error) {
	p := C.rx_alloc_dataset(C.int(flags))
	if p == nil {
		return nil, ErrAllocationFailed
	}
	count := C.randomx_dataset_item_count()
	C.randomx_init_dataset(p, c.ptr, 0, count)
	d := &dataset{ptr: p}
	runtime.SetFinalizer(d, (*dataset).close)
	return d, nil
}

func (d *dataset) close() {
	if d.ptr != nil {
		C.randomx_release_dataset(d.ptr)
		d.ptr = nil
		runtime.SetFinalizer(d, nil)
	}
}

// HashVM is a single native randomx_vm bound to one cache (light mode)
// or cache+dataset (mining mode). It is not safe for concurrent use by
// multiple goroutines; EpochKeyedHasher hands out one HashVM per
// caller and serializes access to the underlying epoch state, not to
// the VM itself.
type HashVM struct {
	ptr     *C.randomx_vm
	mining  bool
	release func() // decrements the owning hasher's outstanding-VM counter
}

func newHashVM(c *cache, d *dataset, flags Flags, release func()) (*HashVM, error) {
	var dsPtr *C.randomx_dataset
	if d != nil {
		dsPtr = d.ptr
	}
	p := C.randomx_create_vm(C.randomx_flags(flags), c.ptr, dsPtr)
	if p == nil {
		release()
		return nil, ErrAllocationFailed
	}
	vm := &HashVM{ptr: p, mining: d != nil, release: release}
	runtime.SetFinalizer(vm, (*HashVM).Close)
	return vm, nil
}

// Hash computes the 32-byte RandomX digest of input.
func (vm *HashVM) Hash(input []byte) [32]byte {
	var out [32]byte
	var inPtr unsafe.Pointer
	if len(input) > 0 {
		inPtr = unsafe.Pointer(&input[0])
	}
	C.randomx_calculate_hash(vm.ptr, inPtr, C.size_t(len(input)), unsafe.Pointer(&out[0]))
	return out
}

// IsMining reports whether this VM was built with a dataset attached.
func (vm *HashVM) IsMining() bool { return vm.mining }

// Close releases the native VM and signals the owning hasher that one
// fewer VM is outstanding. Safe to call more than once.
func (vm *HashVM) Close() {
	if vm.ptr != nil {
		C.randomx_destroy_vm(vm.ptr)
		vm.ptr = nil
		runtime.SetFinalizer(vm, nil)
	}
	if vm.release != nil {
		vm.release()
		vm.release = nil
	}
}
