package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestInMemoryPracticePhraseRepository(t *testing.T) {
	inactive := &PracticePhrase{ID: uuid.New(), Text: "cũ", Region: "north"}
	repo, err := NewInMemoryPracticePhraseRepository(append(DefaultPracticePhrases(), inactive)...)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	p, err := repo.GetByID(ctx, uuid.MustParse("6f1c2a40-0000-4000-8000-000000000001"))
	if err != nil || p.Text != "Xin chào" {
		t.Fatalf("GetByID = %+v, %v", p, err)
	}

	if _, err := repo.GetByID(ctx, inactive.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("inactive phrase err = %v", err)
	}
	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing phrase err = %v", err)
	}

	south, err := repo.List(ctx, "South", 0)
	if err != nil || len(south) != 1 || south[0].Region != "south" {
		t.Fatalf("List(south) = %v, %v", south, err)
	}

	limited, _ := repo.List(ctx, "", 2)
	if len(limited) != 2 {
		t.Fatalf("limit ignored: %d", len(limited))
	}
}

func TestInMemoryRepositoryRejectsDuplicates(t *testing.T) {
	p := DefaultPracticePhrases()[0]
	if _, err := NewInMemoryPracticePhraseRepository(p, p); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("err = %v", err)
	}
}
