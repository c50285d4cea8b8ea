package relay

import (
	"errors"
	"testing"
)

func TestResult_Success(t *testing.T) {
	r := Success(42)

	if !r.IsSuccess() {
		t.Error("expected success")
	}
	if r.Err() != nil {
		t.Errorf("expected nil error, got %v", r.Err())
	}
	v, ok := r.Value()
	if !ok || v != 42 {
		t.Errorf("expected (42, true), got (%d, %v)", v, ok)
	}
}

func TestResult_Failure(t *testing.T) {
	boom := errors.New("boom")
	r := Failure[int](boom)

	if r.IsSuccess() {
		t.Error("expected failure")
	}
	if !errors.Is(r.Err(), boom) {
		t.Errorf("expected boom, got %v", r.Err())
	}
	if _, ok := r.Value(); ok {
		t.Error("expected no value")
	}
}

func TestMapResult_AppliesToSuccess(t *testing.T) {
	r := MapResult(Success(2), func(v int) (int, error) {
		return v + 1, nil
	})

	v, _ := r.Value()
	if v != 3 {
		t.Errorf("expected 3, got %d", v)
	}
}

func TestMapResult_PassesThroughFailure(t *testing.T) {
	boom := errors.New("boom")
	called := false
	r := MapResult(Failure[int](boom), func(v int) (string, error) {
		called = true
		return "", nil
	})

	if called {
		t.Error("transform must not run on failure")
	}
	if !errors.Is(r.Err(), boom) {
		t.Errorf("expected boom, got %v", r.Err())
	}
}

func TestMapResult_ConvertsPanicToFailure(t *testing.T) {
	r := MapResult(Success(1), func(v int) (int, error) {
		panic("kaboom")
	})

	if r.IsSuccess() {
		t.Fatal("expected failure")
	}
	var pe *PanicError
	if !errors.As(r.Err(), &pe) {
		t.Fatalf("expected PanicError, got %v", r.Err())
	}
	if pe.Value() != "kaboom" {
		t.Errorf("expected panic value 'kaboom', got %v", pe.Value())
	}
}

func TestMapResult_ConvertsErrorToFailure(t *testing.T) {
	boom := errors.New("boom")
	r := MapResult(Success(1), func(v int) (int, error) {
		return 0, boom
	})

	if !errors.Is(r.Err(), boom) {
		t.Errorf("expected boom, got %v", r.Err())
	}
}

func TestFlatMapResult_ChainsSuccess(t *testing.T) {
	r := FlatMapResult(Success(2), func(v int) Result[int] {
		return Success(v * 10)
	})

	v, _ := r.Value()
	if v != 20 {
		t.Errorf("expected 20, got %d", v)
	}
}

func TestResult_RecoverConvertsFailure(t *testing.T) {
	r := Failure[int](errors.New("boom")).Recover(func(err error) (int, error) {
		return 7, nil
	})

	v, ok := r.Value()
	if !ok || v != 7 {
		t.Errorf("expected (7, true), got (%d, %v)", v, ok)
	}
}

func TestResult_RecoverPassesThroughSuccess(t *testing.T) {
	called := false
	r := Success(1).Recover(func(err error) (int, error) {
		called = true
		return 0, nil
	})

	if called {
		t.Error("recover must not run on success")
	}
	v, _ := r.Value()
	if v != 1 {
		t.Errorf("expected 1, got %d", v)
	}
}
