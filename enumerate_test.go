package relay

import "testing"

func TestEnumerated_AttachesZeroBasedIndexes(t *testing.T) {
	prod := NewProducer[string, struct{}](0)
	numbered := Enumerated(prod.Channel)

	var rec record[Numbered[string], struct{}]
	numbered.OnEvent(Immediate(), rec.observe)

	prod.Update("a")
	prod.Update("b")
	prod.Update("c")
	prod.Finish(struct{}{})

	updates, results := rec.snapshot()
	if len(updates) != 3 {
		t.Fatalf("expected 3 numbered updates, got %d", len(updates))
	}
	wantValues := []string{"a", "b", "c"}
	for i, u := range updates {
		if u.Index != uint64(i) {
			t.Errorf("position %d: expected index %d, got %d", i, i, u.Index)
		}
		if u.Value != wantValues[i] {
			t.Errorf("position %d: expected %q, got %q", i, wantValues[i], u.Value)
		}
	}
	if len(results) != 1 {
		t.Errorf("expected completion, got %d", len(results))
	}
}

func TestEnumerated_IndexesFollowUpstreamProduction(t *testing.T) {
	// The counter tracks upstream production, not downstream
	// observation: an update produced before the downstream subscribed
	// still consumed index 0.
	prod := NewProducer[string, struct{}](0)
	numbered := Enumerated(prod.Channel)

	prod.Update("unobserved")

	var rec record[Numbered[string], struct{}]
	numbered.OnEvent(Immediate(), rec.observe)
	prod.Update("x")
	prod.Update("y")

	updates, _ := rec.snapshot()
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if updates[0].Index != 1 || updates[1].Index != 2 {
		t.Errorf("expected indexes 1,2, got %d,%d", updates[0].Index, updates[1].Index)
	}
}
