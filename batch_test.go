package relay

import "testing"

func TestBatch_EmitsFullBatches(t *testing.T) {
	prod := NewProducer[int, struct{}](0)
	batched := Batch(prod.Channel, 2)

	var rec record[[]int, struct{}]
	batched.OnEvent(Immediate(), rec.observe)

	for i := 1; i <= 4; i++ {
		prod.Update(i)
	}
	prod.Finish(struct{}{})

	updates, results := rec.snapshot()
	if len(updates) != 2 {
		t.Fatalf("expected 2 batches, got %d: %v", len(updates), updates)
	}
	if updates[0][0] != 1 || updates[0][1] != 2 || updates[1][0] != 3 || updates[1][1] != 4 {
		t.Errorf("unexpected batches: %v", updates)
	}
	if len(results) != 1 {
		t.Errorf("expected completion, got %d", len(results))
	}
}

func TestBatch_FlushesPartialOnCompletion(t *testing.T) {
	// buffered(n) on k updates emits floor(k/n) full batches plus a
	// final partial when k%n != 0.
	prod := NewProducer[int, struct{}](0)
	batched := Batch(prod.Channel, 3)

	var rec record[[]int, struct{}]
	batched.OnEvent(Immediate(), rec.observe)

	for i := 1; i <= 7; i++ {
		prod.Update(i)
	}
	prod.Finish(struct{}{})

	updates, results := rec.snapshot()
	if len(updates) != 3 {
		t.Fatalf("expected 2 full + 1 partial batch, got %d: %v", len(updates), updates)
	}
	if len(updates[0]) != 3 || len(updates[1]) != 3 || len(updates[2]) != 1 {
		t.Errorf("unexpected batch sizes: %v", updates)
	}
	if updates[2][0] != 7 {
		t.Errorf("expected partial [7], got %v", updates[2])
	}
	if len(results) != 1 {
		t.Errorf("expected completion after flush, got %d", len(results))
	}
}

func TestBatch_NoPartialFlushWhenEmpty(t *testing.T) {
	prod := NewProducer[int, struct{}](0)
	batched := Batch(prod.Channel, 2)

	var rec record[[]int, struct{}]
	batched.OnEvent(Immediate(), rec.observe)

	prod.Update(1)
	prod.Update(2)
	prod.Finish(struct{}{})

	updates, _ := rec.snapshot()
	if len(updates) != 1 {
		t.Errorf("expected exactly 1 batch, got %v", updates)
	}
}

func TestPairs_EmitsSlidingWindow(t *testing.T) {
	prod := NewProducer[string, struct{}](0)
	paired := Pairs(prod.Channel)

	var rec record[Paired[string], struct{}]
	paired.OnEvent(Immediate(), rec.observe)

	prod.Update("a")
	prod.Update("b")
	prod.Update("c")
	prod.Finish(struct{}{})

	updates, results := rec.snapshot()
	if len(updates) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(updates))
	}
	if updates[0].Previous != "a" || updates[0].Current != "b" {
		t.Errorf("expected (a,b), got (%s,%s)", updates[0].Previous, updates[0].Current)
	}
	if updates[1].Previous != "b" || updates[1].Current != "c" {
		t.Errorf("expected (b,c), got (%s,%s)", updates[1].Previous, updates[1].Current)
	}
	if len(results) != 1 {
		t.Errorf("expected completion, got %d", len(results))
	}
}

func TestPairs_SingleUpdateYieldsNothing(t *testing.T) {
	prod := NewProducer[int, struct{}](0)
	paired := Pairs(prod.Channel)

	var rec record[Paired[int], struct{}]
	paired.OnEvent(Immediate(), rec.observe)

	prod.Update(1)
	prod.Finish(struct{}{})

	updates, results := rec.snapshot()
	if len(updates) != 0 {
		t.Errorf("expected no pairs from a single update, got %v", updates)
	}
	if len(results) != 1 {
		t.Errorf("expected completion, got %d", len(results))
	}
}
