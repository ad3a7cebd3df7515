package authz

import "testing"

func TestFromList(t *testing.T) {
	list := FromList(" 123, -1006004227082 ,oops, ,456")
	if list.Len() != 3 {
		t.Fatalf("len = %d, want 3 (malformed entries skipped)", list.Len())
	}
	for _, id := range []int64{123, -1006004227082, 456} {
		if !list.Allows(id) {
			t.Fatalf("id %d should be allowed", id)
		}
	}
}

func TestDenyByDefault(t *testing.T) {
	list := FromList("123")
	if list.Allows(999) {
		t.Fatal("unknown id allowed")
	}
	empty := FromList("")
	if empty.Allows(0) || empty.Allows(123) {
		t.Fatal("empty list allowed an id")
	}
}

func TestIDsSorted(t *testing.T) {
	list := FromList("5,-3,10")
	ids := list.IDs()
	want := []int64{-3, 5, 10}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}
