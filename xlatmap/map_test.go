package xlatmap_test

import (
	"testing"

	"github.com/delphix/libkdumpfile/xlatmap"
)

func tilesFullSpace(t *testing.T, m *xlatmap.Map) {
	t.Helper()
	var sum uint64
	n := len(m.Ranges())
	for i, r := range m.Ranges() {
		sum += r.EndOff + 1
		if i < n-1 && sum == 0 {
			t.Fatalf("range %d overflowed before the last entry", i)
		}
	}
	if sum != 0 { // wraps to exactly 2^64 only when it covers everything
		t.Fatalf("ranges sum to %d, want exactly 2^64 (wraps to 0)", sum)
	}
}

func TestNewMapCoversEverything(t *testing.T) {
	m := xlatmap.NewMap()
	tilesFullSpace(t, m)
	if got := m.Search(0); got != xlatmap.NoMethod {
		t.Fatalf("fresh map Search(0) = %d, want NoMethod", got)
	}
	if got := m.Search(^uint64(0)); got != xlatmap.NoMethod {
		t.Fatalf("fresh map Search(max) = %d, want NoMethod", got)
	}
}

func TestSetBasic(t *testing.T) {
	m := xlatmap.NewMap()
	m.Set(0x1000, 0xfff, 3) // [0x1000, 0x1fff] -> method 3
	tilesFullSpace(t, m)

	if got := m.Search(0x1000); got != 3 {
		t.Fatalf("Search(0x1000) = %d, want 3", got)
	}
	if got := m.Search(0x1fff); got != 3 {
		t.Fatalf("Search(0x1fff) = %d, want 3", got)
	}
	if got := m.Search(0x2000); got != xlatmap.NoMethod {
		t.Fatalf("Search(0x2000) = %d, want NoMethod", got)
	}
	if got := m.Search(0xfff); got != xlatmap.NoMethod {
		t.Fatalf("Search(0xfff) = %d, want NoMethod", got)
	}
}

func TestSetMergesAdjacentSameMethod(t *testing.T) {
	m := xlatmap.NewMap()
	m.Set(0, 0xff, 1)
	m.Set(0x100, 0xff, 1)
	tilesFullSpace(t, m)

	// Adjacent same-method ranges must merge into one.
	count := 0
	for _, r := range m.Ranges() {
		if r.Method == 1 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected one merged range for method 1, got %d pieces", count)
	}
}

func TestSetSplitsExistingRange(t *testing.T) {
	m := xlatmap.NewMap()
	m.Set(0, 0xffff, 1) // big range, method 1
	m.Set(0x100, 0xff, 2) // carve a hole in the middle, method 2
	tilesFullSpace(t, m)

	if got := m.Search(0x50); got != 1 {
		t.Fatalf("before hole: Search(0x50) = %d, want 1", got)
	}
	if got := m.Search(0x150); got != 2 {
		t.Fatalf("in hole: Search(0x150) = %d, want 2", got)
	}
	if got := m.Search(0x300); got != 1 {
		t.Fatalf("after hole: Search(0x300) = %d, want 1", got)
	}
}

func TestSetExactBoundaryFavorsNewRange(t *testing.T) {
	m := xlatmap.NewMap()
	m.Set(0, 0, 1)       // single address 0 -> method 1
	m.Set(0, 0, 2)       // overwrite with method 2
	if got := m.Search(0); got != 2 {
		t.Fatalf("Search(0) = %d, want 2 (new range wins)", got)
	}
	tilesFullSpace(t, m)
}

func TestSetSingleAddressAdjacentDifferentMethods(t *testing.T) {
	m := xlatmap.NewMap()
	m.Set(0, 0, 1)
	m.Set(1, 0, 2)
	tilesFullSpace(t, m)
	if got := m.Search(0); got != 1 {
		t.Fatalf("Search(0) = %d, want 1", got)
	}
	if got := m.Search(1); got != 2 {
		t.Fatalf("Search(1) = %d, want 2", got)
	}
}

func TestClonePreservesOrderAndIsIndependent(t *testing.T) {
	m := xlatmap.NewMap()
	m.Set(0x1000, 0xfff, 5)
	cl := m.Clone()

	cl.Set(0x1000, 0xfff, 9)
	if got := m.Search(0x1000); got != 5 {
		t.Fatalf("mutating clone affected original: Search = %d, want 5", got)
	}
	if got := cl.Search(0x1000); got != 9 {
		t.Fatalf("clone Search(0x1000) = %d, want 9", got)
	}
}
