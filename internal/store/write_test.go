package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/roach88/fnser/internal/ir"
)

const arrowHash = "f0b032b61526a396dd321036dbbeac15f096b35c174b1a5be64e23dfe2f3f49d"

func TestPut_AssignsSequentialSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.Put(ctx, createTestTriple("x", "return (x);"))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	second, err := s.Put(ctx, createTestTriple("y", "return (y);"))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("seqs = %d, %d, want 1, 2", first.Seq, second.Seq)
	}
	if first.CID.Equals(second.CID) {
		t.Error("distinct triples share a cid")
	}
}

func TestPut_TakesNextSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, body := range []string{"return (x);", "return (x + 1);", "return (x + 2);"} {
		want, err := s.NextSeq(ctx)
		if err != nil {
			t.Fatalf("NextSeq() failed: %v", err)
		}
		entry, err := s.Put(ctx, createTestTriple("x", body))
		if err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
		if entry.Seq != want {
			t.Errorf("put %d: seq = %d, NextSeq() said %d", i, entry.Seq, want)
		}
	}
}

func TestPut_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tr := createTestTriple("x", "return (x);")

	first, err := s.Put(ctx, tr)
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	again, err := s.Put(ctx, tr)
	if err != nil {
		t.Fatalf("second Put() failed: %v", err)
	}

	if !first.CID.Equals(again.CID) || first.Seq != again.Seq {
		t.Errorf("second Put() = %s/%d, want %s/%d", again.CID, again.Seq, first.CID, first.Seq)
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("List() returned %d entries, want 1", len(entries))
	}
}

func TestPut_FillsMissingHash(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tr := createTestTriple("x", "return (x);")

	if _, err := s.Put(ctx, tr); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	tr.Hash = arrowHash
	entry, err := s.Put(ctx, tr)
	if err != nil {
		t.Fatalf("Put() with hash failed: %v", err)
	}
	if entry.Triple.Hash != arrowHash {
		t.Errorf("hash = %q, want %q", entry.Triple.Hash, arrowHash)
	}
	if entry.Seq != 1 {
		t.Errorf("seq = %d, want 1", entry.Seq)
	}
}

func TestPut_KeepsStoredHash(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tr := createTestTriple("x", "return (x);")
	tr.Hash = arrowHash

	if _, err := s.Put(ctx, tr); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	tr.Hash = "00"
	entry, err := s.Put(ctx, tr)
	if err != nil {
		t.Fatalf("second Put() failed: %v", err)
	}
	if entry.Triple.Hash != arrowHash {
		t.Errorf("hash = %q, want stored %q", entry.Triple.Hash, arrowHash)
	}

	tr.Hash = ""
	entry, err = s.Put(ctx, tr)
	if err != nil {
		t.Fatalf("unhashed Put() failed: %v", err)
	}
	if entry.Triple.Hash != arrowHash {
		t.Errorf("unhashed Put() cleared hash: %q", entry.Triple.Hash)
	}
}

func TestPut_RejectsInvalidTriple(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tests := []ir.Triple{
		{Params: []string{}, Body: "", Type: "Lambda"},
		{Params: []string{""}, Body: "", Type: ir.ShapeFunction},
		{Params: []string{}, Body: "", Type: ir.ShapeFunction, Hash: "ABC"},
	}
	for _, tr := range tests {
		if _, err := s.Put(ctx, tr); err == nil {
			t.Errorf("Put(%+v) succeeded, want error", tr)
		}
	}

	seq, err := s.NextSeq(ctx)
	if err != nil {
		t.Fatalf("NextSeq() failed: %v", err)
	}
	if seq != 1 {
		t.Errorf("NextSeq() = %d after rejected puts, want 1", seq)
	}
}

func TestPut_Concurrent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	bodies := []string{"return (a);", "return (b);", "return (c);", "return (d);"}
	var wg sync.WaitGroup
	errs := make(chan error, len(bodies)*2)
	for _, body := range bodies {
		for range 2 {
			wg.Add(1)
			go func(body string) {
				defer wg.Done()
				if _, err := s.Put(ctx, createTestTriple("v", body)); err != nil {
					errs <- err
				}
			}(body)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Put() failed: %v", err)
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(entries) != len(bodies) {
		t.Fatalf("List() returned %d entries, want %d", len(entries), len(bodies))
	}
	for i, e := range entries {
		if e.Seq != int64(i+1) {
			t.Errorf("entries[%d].Seq = %d, want %d", i, e.Seq, i+1)
		}
	}
}

func TestTag(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.Put(ctx, createTestTriple("x", "return (x);"))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	second, err := s.Put(ctx, createTestTriple("y", "return (y);"))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	if err := s.Tag(ctx, "identity", first.CID); err != nil {
		t.Fatalf("Tag() failed: %v", err)
	}
	got, err := s.Resolve(ctx, "identity")
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if !got.CID.Equals(first.CID) {
		t.Errorf("Resolve() = %s, want %s", got.CID, first.CID)
	}

	// Retag moves the name
	if err := s.Tag(ctx, "identity", second.CID); err != nil {
		t.Fatalf("retag failed: %v", err)
	}
	got, err = s.Resolve(ctx, "identity")
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if !got.CID.Equals(second.CID) {
		t.Errorf("Resolve() after retag = %s, want %s", got.CID, second.CID)
	}
}

func TestTag_Errors(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	entry, err := s.Put(ctx, createTestTriple("x", "return (x);"))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	if err := s.Tag(ctx, "", entry.CID); err == nil {
		t.Error("Tag() with empty name succeeded")
	}
	if err := s.Tag(ctx, entry.CID.String(), entry.CID); err == nil {
		t.Error("Tag() with cid-shaped name succeeded")
	}

	missing, err := CIDOf(createTestTriple("z", "return (z);"))
	if err != nil {
		t.Fatalf("CIDOf() failed: %v", err)
	}
	if err := s.Tag(ctx, "ghost", missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Tag() unknown cid = %v, want ErrNotFound", err)
	}
}
