package cache

import (
	"errors"
	"reflect"
	"testing"
)

func TestGetOrCreate(t *testing.T) {
	c := New[string, int](0, nil)

	calls := 0
	create := func() (int, error) {
		calls++
		return 42, nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrCreate("a", create)
		if err != nil || v != 42 {
			t.Fatalf("GetOrCreate() = %d, %v, want 42, nil", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 || s.Len != 1 {
		t.Errorf("Stats() = %+v, want 2 hits, 1 miss, len 1", s)
	}
}

func TestGetOrCreateError(t *testing.T) {
	c := New[string, int](0, nil)
	errBoom := errors.New("boom")
	if _, err := c.GetOrCreate("a", func() (int, error) { return 0, errBoom }); !errors.Is(err, errBoom) {
		t.Errorf("GetOrCreate() error = %v, want %v", err, errBoom)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after failed create, want 0", c.Len())
	}
}

func TestEvictionOrder(t *testing.T) {
	var evicted []string
	c := New[string, int](2, func(k string, _ int) { evicted = append(evicted, k) })

	value := func(v int) func() (int, error) { return func() (int, error) { return v, nil } }
	_, _ = c.GetOrCreate("a", value(1))
	_, _ = c.GetOrCreate("b", value(2))
	c.Get("a") // b is now least recently used
	_, _ = c.GetOrCreate("c", value(3))

	if want := []string{"b"}; !reflect.DeepEqual(evicted, want) {
		t.Errorf("evicted = %v, want %v", evicted, want)
	}
	if _, ok := c.Get("b"); ok {
		t.Error("Get(b) found an evicted entry")
	}

	var order []string
	c.Each(func(k string, _ int) { order = append(order, k) })
	if want := []string{"c", "a"}; !reflect.DeepEqual(order, want) {
		t.Errorf("Each order = %v, want %v", order, want)
	}
}

func TestDeleteAndClear(t *testing.T) {
	var evicted int
	c := New[int, int](0, func(int, int) { evicted++ })
	for i := 0; i < 4; i++ {
		_, _ = c.GetOrCreate(i, func() (int, error) { return i, nil })
	}

	if !c.Delete(2) {
		t.Error("Delete(2) = false")
	}
	if c.Delete(2) {
		t.Error("second Delete(2) = true")
	}
	if evicted != 0 {
		t.Errorf("Delete called onEvict %d times, want 0", evicted)
	}

	c.Clear()
	if evicted != 3 {
		t.Errorf("Clear evicted %d, want 3", evicted)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
}
