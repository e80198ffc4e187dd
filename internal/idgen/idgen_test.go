package idgen

import (
	"context"
	"errors"
	"testing"

	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
)

func sequence(values ...int) func(int) int {
	i := 0
	return func(int) int {
		v := values[i%len(values)]
		i++
		return v
	}
}

func TestMintRedrawsOnCollision(t *testing.T) {
	m := Minter{Min: 1, Max: 100, Attempts: 3, IntN: sequence(4, 9)}
	seen := []int{}
	id, err := m.Mint(context.Background(), func(_ context.Context, c int) (bool, error) {
		seen = append(seen, c)
		return c == 5, nil
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if id != 10 {
		t.Fatalf("expected second candidate 10, got %d", id)
	}
	if len(seen) != 2 || seen[0] != 5 {
		t.Fatalf("unexpected candidates %v", seen)
	}
}

func TestMintConflictAfterAttempts(t *testing.T) {
	m := Minter{Min: 0, Max: 9, Attempts: 2, IntN: sequence(3)}
	calls := 0
	_, err := m.Mint(context.Background(), func(context.Context, int) (bool, error) {
		calls++
		return true, nil
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 checks, got %d", calls)
	}
}

func TestMintPropagatesLookupError(t *testing.T) {
	m := Minter{Min: 1, Max: 1}
	want := errors.New("store down")
	if _, err := m.Mint(context.Background(), func(context.Context, int) (bool, error) { return false, want }); !errors.Is(err, want) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestMintStaysInRange(t *testing.T) {
	m := Minter{Min: 1, Max: 3}
	for i := 0; i < 200; i++ {
		id, err := m.Mint(context.Background(), nil)
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		if id < 1 || id > 3 {
			t.Fatalf("id %d out of range", id)
		}
	}
	if _, err := (Minter{Min: 5, Max: 1}).Mint(context.Background(), nil); err == nil {
		t.Fatal("expected invalid range error")
	}
}
