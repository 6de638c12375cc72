package kaddr_test

import (
	"testing"

	"github.com/delphix/libkdumpfile/kaddr"
)

func TestParseSpaceRoundTrip(t *testing.T) {
	cases := []kaddr.Space{kaddr.NOADDR, kaddr.KPHYSADDR, kaddr.MACHPHYSADDR, kaddr.KVADDR}
	for _, sp := range cases {
		tok := sp.String()
		got, ok := kaddr.ParseSpace(tok)
		if !ok {
			t.Fatalf("ParseSpace(%q) rejected", tok)
		}
		if got != sp {
			t.Fatalf("ParseSpace(%q) = %v, want %v", tok, got, sp)
		}
	}
	if _, ok := kaddr.ParseSpace("bogus"); ok {
		t.Fatal("ParseSpace accepted an unknown token")
	}
}

func TestParseSpaceCaseInsensitive(t *testing.T) {
	got, ok := kaddr.ParseSpace("kvaddr")
	if !ok || got != kaddr.KVADDR {
		t.Fatalf("ParseSpace(\"kvaddr\") = %v, %v", got, ok)
	}
}

func TestCapsHas(t *testing.T) {
	caps := kaddr.CapKPhys | kaddr.CapKVirt
	if !caps.Has(kaddr.KPHYSADDR) || !caps.Has(kaddr.KVADDR) {
		t.Fatal("Has missed a set bit")
	}
	if caps.Has(kaddr.MACHPHYSADDR) {
		t.Fatal("Has reported an unset bit")
	}
}

func TestAddrAddWraps(t *testing.T) {
	a := kaddr.Addr{Space: kaddr.KVADDR, Value: 0}
	got := a.Add(-1)
	if got.Value != ^uint64(0) {
		t.Fatalf("Add(-1) from 0 = %#x, want all-ones", got.Value)
	}
}

func TestAddrRoundTripLinear(t *testing.T) {
	a := kaddr.Addr{Space: kaddr.KVADDR, Value: 0xffff800012345678}
	k := int64(0x1000)
	out := a.Add(k).Add(-k)
	if out != a {
		t.Fatalf("round trip mismatch: got %v want %v", out, a)
	}
}
