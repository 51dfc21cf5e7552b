package datastore

import (
	"testing"

	"github.com/gofrs/uuid/v5"
)

func TestAffectedKeys(t *testing.T) {
	t.Parallel()
	owner := uuid.Must(uuid.NewV4())

	got := AffectedKeys(MutCropCreate, owner)
	if len(got) != 1 || got[0] != "user-crops/"+owner.String() {
		t.Fatalf("crop create: %v", got)
	}

	// Farm deletion cascades to the crops key.
	got = AffectedKeys(MutFarmDelete, owner)
	if len(got) != 2 {
		t.Fatalf("farm delete: %v", got)
	}
	want := map[string]bool{
		"farm-locations/" + owner.String(): true,
		"user-crops/" + owner.String():     true,
	}
	for _, k := range got {
		if !want[k] {
			t.Fatalf("unexpected key %q", k)
		}
	}

	if got := AffectedKeys(Mutation("nope"), owner); len(got) != 0 {
		t.Fatalf("unknown mutation: %v", got)
	}
}
