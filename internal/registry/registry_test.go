package registry

import (
	"errors"
	"testing"
)

const user = int64(42)

func TestAddPreservesOrderAndTrims(t *testing.T) {
	s := New()

	added, total, err := s.Add(user, []string{"  tok-one  ", "", "tok-two", "   "})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if added != 2 || total != 2 {
		t.Errorf("Add = (%d, %d), want (2, 2)", added, total)
	}

	got := s.List(user)
	want := []string{"tok-one", "tok-two"}
	if len(got) != len(want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAddAppendsAfterExisting(t *testing.T) {
	s := New()
	s.Add(user, []string{"first"})

	_, total, err := s.Add(user, []string{"second", "third"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if got := s.List(user); got[0] != "first" || got[2] != "third" {
		t.Errorf("List = %v, want [first second third]", got)
	}
}

func TestAddKeepsDuplicates(t *testing.T) {
	s := New()
	added, total, err := s.Add(user, []string{"same", "same"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if added != 2 || total != 2 {
		t.Errorf("Add = (%d, %d), want (2, 2)", added, total)
	}
}

func TestAddRejectsEmptySubmission(t *testing.T) {
	s := New()
	_, _, err := s.Add(user, []string{"", "   ", "\t"})
	if !errors.Is(err, ErrNoValidTokens) {
		t.Errorf("err = %v, want ErrNoValidTokens", err)
	}
	if n := s.Count(user); n != 0 {
		t.Errorf("Count = %d after rejected add, want 0", n)
	}
}

func TestRemoveOutOfRangeDoesNotMutate(t *testing.T) {
	s := New()
	s.Add(user, []string{"only"})

	for _, index := range []int{-1, 1, 99} {
		if _, err := s.Remove(user, index); !errors.Is(err, ErrInvalidSelection) {
			t.Errorf("Remove(%d) err = %v, want ErrInvalidSelection", index, err)
		}
	}
	if n := s.Count(user); n != 1 {
		t.Errorf("Count = %d after failed removes, want 1", n)
	}
}

func TestRemoveShiftsIndices(t *testing.T) {
	s := New()
	s.Add(user, []string{"a", "b", "c"})

	removed, err := s.Remove(user, 1)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed != "b" {
		t.Errorf("removed = %q, want %q", removed, "b")
	}
	got := s.List(user)
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("List = %v, want [a c]", got)
	}
}

func TestGet(t *testing.T) {
	s := New()
	s.Add(user, []string{"a", "b"})

	if tok, err := s.Get(user, 1); err != nil || tok != "b" {
		t.Errorf("Get(1) = (%q, %v), want (b, nil)", tok, err)
	}
	if _, err := s.Get(user, 2); !errors.Is(err, ErrInvalidSelection) {
		t.Errorf("Get(2) err = %v, want ErrInvalidSelection", err)
	}
}

func TestListIsACopy(t *testing.T) {
	s := New()
	s.Add(user, []string{"a", "b"})

	snapshot := s.List(user)
	snapshot[0] = "mutated"

	if got := s.List(user); got[0] != "a" {
		t.Errorf("registry observed caller mutation: List[0] = %q", got[0])
	}
}

func TestListUnknownUserIsEmpty(t *testing.T) {
	s := New()
	if got := s.List(999); len(got) != 0 {
		t.Errorf("List for unknown user = %v, want empty", got)
	}
}
