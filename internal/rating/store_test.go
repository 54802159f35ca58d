package rating_test

import (
	"math/rand"
	"testing"

	"audiorating/internal/rating"
)

func valenceCatalog(t *testing.T) *rating.Catalog {
	t.Helper()
	defaultValue := 4
	catalog, err := rating.NewCatalog(rating.DimensionSpec{Title: "valence", NumValues: 8, DefaultValue: &defaultValue})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return catalog
}

func assertSegments(t *testing.T, got []rating.Segment, want ...rating.Segment) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("segment count: got %d (%v) want %d (%v)", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("segment %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestNewStoreStartsWithDefaultSegment(t *testing.T) {
	store := rating.NewStore(valenceCatalog(t), 10)
	assertSegments(t, store.Segments("valence"), rating.Segment{Start: 0, End: 10, Value: 4})
	if err := store.Validate("valence"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValenceScenario(t *testing.T) {
	store := rating.NewStore(valenceCatalog(t), 10)

	if !store.SplitAt("valence", 5) {
		t.Fatal("expected split at 5 to apply")
	}
	assertSegments(t, store.Segments("valence"),
		rating.Segment{Start: 0, End: 5, Value: 4},
		rating.Segment{Start: 5, End: 10, Value: 4},
	)

	applied, ok := store.MoveBoundary("valence", 1, 6)
	if !ok || applied != 6 {
		t.Fatalf("MoveBoundary: applied=%v ok=%v", applied, ok)
	}
	assertSegments(t, store.Segments("valence"),
		rating.Segment{Start: 0, End: 6, Value: 4},
		rating.Segment{Start: 6, End: 10, Value: 4},
	)

	if !store.DeleteBoundaryBefore("valence", 1) {
		t.Fatal("expected merge to apply")
	}
	assertSegments(t, store.Segments("valence"), rating.Segment{Start: 0, End: 10, Value: 4})
}

func TestSplitRespectsMinimumLength(t *testing.T) {
	store := rating.NewStore(valenceCatalog(t), 10)
	store.SplitAt("valence", 5)
	before := store.Segments("valence")

	for _, at := range []float64{0.05, 4.95, 5.03, 9.95, -1, 11} {
		if store.SplitAt("valence", at) {
			t.Fatalf("split at %v should be ignored", at)
		}
		assertSegments(t, store.Segments("valence"), before...)
	}
}

func TestMergeKeepsLeftValue(t *testing.T) {
	store := rating.NewStore(valenceCatalog(t), 10)
	store.SplitAt("valence", 3)
	store.SplitAt("valence", 7)
	store.SetValue("valence", 1, 6)
	store.SetValue("valence", 2, 1)

	if !store.DeleteBoundaryBefore("valence", 2) {
		t.Fatal("expected merge")
	}
	assertSegments(t, store.Segments("valence"),
		rating.Segment{Start: 0, End: 3, Value: 4},
		rating.Segment{Start: 3, End: 10, Value: 6},
	)
}

func TestDeleteBoundaryOutOfRangeIsNoop(t *testing.T) {
	store := rating.NewStore(valenceCatalog(t), 10)
	for _, idx := range []int{-1, 0, 1, 5} {
		if store.DeleteBoundaryBefore("valence", idx) {
			t.Fatalf("merge at %d should be ignored", idx)
		}
	}
	if store.Len("valence") != 1 {
		t.Fatalf("expected single segment, got %d", store.Len("valence"))
	}
}

func TestMoveBoundaryClampsToEpsilon(t *testing.T) {
	store := rating.NewStore(valenceCatalog(t), 10)
	store.SplitAt("valence", 5)

	applied, _ := store.MoveBoundary("valence", 1, -3)
	if applied != rating.BoundaryEpsilon {
		t.Fatalf("expected clamp to %v, got %v", rating.BoundaryEpsilon, applied)
	}
	end := 10.0
	applied, _ = store.MoveBoundary("valence", 1, 42)
	if want := end - rating.BoundaryEpsilon; applied != want {
		t.Fatalf("expected clamp to %v, got %v", want, applied)
	}
	if err := store.Validate("valence"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestSetValueClamps(t *testing.T) {
	store := rating.NewStore(valenceCatalog(t), 10)
	if got, _ := store.SetValue("valence", 0, -3); got != 0 {
		t.Fatalf("expected clamp to min, got %d", got)
	}
	if got, _ := store.SetValue("valence", 0, 99); got != 7 {
		t.Fatalf("expected clamp to max, got %d", got)
	}
	if _, changed := store.SetValue("valence", 0, 7); changed {
		t.Fatal("expected no change when value is unchanged")
	}
}

func TestFindSegmentAtInclusiveBounds(t *testing.T) {
	store := rating.NewStore(valenceCatalog(t), 10)
	store.SplitAt("valence", 5)

	cases := []struct {
		at   float64
		want int
	}{
		{0, 0},
		{5, 0},
		{5.01, 1},
		{10, 1},
		{10.5, -1},
		{-0.1, -1},
	}
	for _, tc := range cases {
		if got := store.FindSegmentAt("valence", tc.at); got != tc.want {
			t.Fatalf("FindSegmentAt(%v) = %d, want %d", tc.at, got, tc.want)
		}
	}
}

func TestPartitionSurvivesRandomEdits(t *testing.T) {
	store := rating.NewStore(valenceCatalog(t), 30)
	rng := rand.New(rand.NewSource(7))

	for step := 0; step < 2000; step++ {
		n := store.Len("valence")
		switch rng.Intn(4) {
		case 0:
			store.SplitAt("valence", rng.Float64()*32-1)
		case 1:
			store.DeleteBoundaryBefore("valence", rng.Intn(n+1))
		case 2:
			store.MoveBoundary("valence", rng.Intn(n+1), rng.Float64()*34-2)
		case 3:
			store.SetValue("valence", rng.Intn(n), rng.Intn(20)-5)
		}
		if err := store.Validate("valence"); err != nil {
			t.Fatalf("step %d: %v (%v)", step, err, store.Segments("valence"))
		}
		for _, seg := range store.Segments("valence") {
			if seg.Value < 0 || seg.Value > 7 {
				t.Fatalf("step %d: value %d out of range", step, seg.Value)
			}
		}
	}
}

func TestSetDurationTruncatesSegments(t *testing.T) {
	store := rating.NewStore(valenceCatalog(t), 0)
	store.SplitAt("valence", 5)
	store.SplitAt("valence", 20)
	store.SetDuration(12)

	assertSegments(t, store.Segments("valence"),
		rating.Segment{Start: 0, End: 5, Value: 4},
		rating.Segment{Start: 5, End: 12, Value: 4},
	)
}

func TestReplaceFillsMissingAndRepairsBroken(t *testing.T) {
	defaultValue := 2
	catalog, err := rating.NewCatalog(
		rating.DimensionSpec{Title: "valence", NumValues: 8},
		rating.DimensionSpec{Title: "arousal", NumValues: 5, DefaultValue: &defaultValue},
		rating.DimensionSpec{Title: "enjoyment", NumValues: 3},
	)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	store := rating.NewStore(catalog, 10)

	repaired := store.Replace(rating.DimensionData{
		"valence": {{Start: 0, End: 4, Value: 12}, {Start: 4, End: 10, Value: 1}},
		"arousal": {{Start: 0, End: 4, Value: 1}, {Start: 6, End: 10, Value: 1}},
		"unknown": {{Start: 0, End: 10, Value: 1}},
	})
	if len(repaired) != 1 || repaired[0] != "arousal" {
		t.Fatalf("expected arousal to be repaired, got %v", repaired)
	}

	data := store.Snapshot()
	if _, ok := data["unknown"]; ok {
		t.Fatal("expected unknown dimension to be dropped")
	}
	assertSegments(t, data["valence"],
		rating.Segment{Start: 0, End: 4, Value: 7},
		rating.Segment{Start: 4, End: 10, Value: 1},
	)
	assertSegments(t, data["arousal"], rating.Segment{Start: 0, End: 10, Value: 2})
	assertSegments(t, data["enjoyment"], rating.Segment{Start: 0, End: 10, Value: 1})
}

func TestSnapshotDoesNotAlias(t *testing.T) {
	store := rating.NewStore(valenceCatalog(t), 10)
	snap := store.Snapshot()
	snap["valence"][0].Value = 0
	snap["valence"] = append(snap["valence"], rating.Segment{Start: 10, End: 11})

	assertSegments(t, store.Segments("valence"), rating.Segment{Start: 0, End: 10, Value: 4})
}

func TestRoundTripIsIdempotent(t *testing.T) {
	store := rating.NewStore(valenceCatalog(t), 10)
	store.SplitAt("valence", 2.5)
	store.SetValue("valence", 1, 6)

	first := store.Snapshot()
	store.Replace(first)
	if second := store.Snapshot(); !second.Equal(first) {
		t.Fatalf("round trip changed data: %v vs %v", first, second)
	}
}
