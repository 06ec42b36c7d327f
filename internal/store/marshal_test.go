package store

import (
	"testing"

	"github.com/ipfs/go-cid"

	"github.com/roach88/fnser/internal/ir"
)

func TestCIDOf_KnownValues(t *testing.T) {
	tests := []struct {
		name   string
		triple ir.Triple
		want   string
	}{
		{
			name:   "arrow",
			triple: ir.Triple{Params: []string{"x"}, Body: "return (x);", Type: ir.ShapeArrowFunction},
			want:   "bafkreiewobphhlchya25huxutdxi2c3hzlat5w7bnj6ttvdy535rjywlpm",
		},
		{
			name:   "function",
			triple: ir.Triple{Params: []string{"a"}, Body: "return a+1;", Type: ir.ShapeFunction},
			want:   "bafkreifw2pf66az2xedemlrklzh4727hpmefa242teoqcjscwxkdw3dp6m",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CIDOf(tt.triple)
			if err != nil {
				t.Fatalf("CIDOf() failed: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("CIDOf() = %s, want %s", got, tt.want)
			}
			if got.Prefix().Codec != cid.Raw {
				t.Errorf("codec = %x, want raw", got.Prefix().Codec)
			}
		})
	}
}

func TestCIDOf_IgnoresHash(t *testing.T) {
	tr := createTestTriple("x", "return (x);")
	plain, err := CIDOf(tr)
	if err != nil {
		t.Fatalf("CIDOf() failed: %v", err)
	}

	tr.Hash = "f0b032b61526a396dd321036dbbeac15f096b35c174b1a5be64e23dfe2f3f49d"
	hashed, err := CIDOf(tr)
	if err != nil {
		t.Fatalf("CIDOf() failed: %v", err)
	}

	if !plain.Equals(hashed) {
		t.Errorf("hash changed cid: %s vs %s", plain, hashed)
	}
}

func TestCIDOf_NilParamsMatchEmpty(t *testing.T) {
	a, err := CIDOf(ir.Triple{Body: "", Type: ir.ShapeFunction})
	if err != nil {
		t.Fatalf("CIDOf() failed: %v", err)
	}
	b, err := CIDOf(ir.Triple{Params: []string{}, Body: "", Type: ir.ShapeFunction})
	if err != nil {
		t.Fatalf("CIDOf() failed: %v", err)
	}
	if !a.Equals(b) {
		t.Errorf("nil and empty params differ: %s vs %s", a, b)
	}
}

func TestMarshalParams_RoundTrip(t *testing.T) {
	for _, params := range [][]string{nil, {}, {"a"}, {"a", "b = 1", "...rest"}} {
		data, err := marshalParams(params)
		if err != nil {
			t.Fatalf("marshalParams(%q) failed: %v", params, err)
		}
		got, err := unmarshalParams(data)
		if err != nil {
			t.Fatalf("unmarshalParams(%q) failed: %v", data, err)
		}
		if got == nil {
			t.Fatalf("unmarshalParams(%q) returned nil", data)
		}
		if len(got) != len(params) {
			t.Fatalf("round trip of %q = %q", params, got)
		}
		for i := range params {
			if got[i] != params[i] {
				t.Errorf("params[%d] = %q, want %q", i, got[i], params[i])
			}
		}
	}
}

func TestUnmarshalParams_Invalid(t *testing.T) {
	if _, err := unmarshalParams("{"); err == nil {
		t.Error("expected error for invalid JSON, got nil")
	}
}
