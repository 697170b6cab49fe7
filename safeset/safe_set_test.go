package safeset

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSafeSet(t *testing.T) {
	s := NewSafeSet[string]()
	require.NotNil(t, s)
	assert.Equal(t, 0, s.Size())
	assert.False(t, s.Contains("x"))
}

func TestSafeSet_Add_Contains(t *testing.T) {
	s := NewSafeSet[string]()

	t.Run("add and contains returns true", func(t *testing.T) {
		s.Add("a")
		assert.True(t, s.Contains("a"))
		assert.Equal(t, 1, s.Size())
	})

	t.Run("adding duplicate does not increase size", func(t *testing.T) {
		s.Add("a")
		s.Add("a")
		assert.True(t, s.Contains("a"))
		assert.Equal(t, 1, s.Size())
	})

	t.Run("contains missing returns false", func(t *testing.T) {
		assert.False(t, s.Contains("nonexistent"))
	})
}

func TestSafeSet_Remove(t *testing.T) {
	s := NewSafeSet[string]()
	s.Add("a")
	s.Add("b")

	t.Run("remove removes element", func(t *testing.T) {
		s.Remove("a")
		assert.False(t, s.Contains("a"))
		assert.True(t, s.Contains("b"))
		assert.Equal(t, 1, s.Size())
	})

	t.Run("remove missing is no-op", func(t *testing.T) {
		s.Remove("nonexistent")
		assert.Equal(t, 1, s.Size())
	})
}

func TestSafeSet_Size(t *testing.T) {
	s := NewSafeSet[int]()

	assert.Equal(t, 0, s.Size())
	s.Add(1)
	assert.Equal(t, 1, s.Size())
	s.Add(2)
	assert.Equal(t, 2, s.Size())
	s.Add(1) // duplicate
	assert.Equal(t, 2, s.Size())
	s.Remove(1)
	assert.Equal(t, 1, s.Size())
	s.Remove(2)
	assert.Equal(t, 0, s.Size())
}

func TestSafeSet_Values(t *testing.T) {
	t.Run("returns all elements", func(t *testing.T) {
		s := NewSafeSet[string]()
		s.Add("a")
		s.Add("b")
		got := s.Values()
		assert.ElementsMatch(t, []string{"a", "b"}, got)
	})

	t.Run("empty set yields empty slice", func(t *testing.T) {
		s := NewSafeSet[int]()
		assert.Empty(t, s.Values())
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		s := NewSafeSet[int]()
		s.Add(1)
		got := s.Values()
		got[0] = 99
		assert.True(t, s.Contains(1))
		assert.False(t, s.Contains(99))
	})
}

func TestSafeSet_ReplaceAll(t *testing.T) {
	s := NewSafeSet[string]()
	s.Add("old1")
	s.Add("old2")

	s.ReplaceAll([]string{"new1", "new2", "new3"})
	assert.Equal(t, 3, s.Size())
	assert.False(t, s.Contains("old1"))
	assert.False(t, s.Contains("old2"))
	assert.True(t, s.Contains("new1"))
	assert.True(t, s.Contains("new3"))

	t.Run("replace with empty clears the set", func(t *testing.T) {
		s.ReplaceAll(nil)
		assert.Equal(t, 0, s.Size())
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		s.ReplaceAll([]string{"a", "a", "b"})
		assert.Equal(t, 2, s.Size())
	})
}

func TestSortedStrings(t *testing.T) {
	s := NewSafeSet[string]()
	s.Add("charlie")
	s.Add("alice")
	s.Add("bob")

	got := SortedStrings(s)
	assert.Equal(t, []string{"alice", "bob", "charlie"}, got)
}

func TestSafeSet_Range(t *testing.T) {
	s := NewSafeSet[string]()
	s.Add("a")
	s.Add("b")
	s.Add("c")

	t.Run("iterates all elements", func(t *testing.T) {
		seen := make(map[string]bool)
		s.Range(func(v string) bool {
			seen[v] = true
			return true
		})
		assert.Len(t, seen, 3)
		assert.True(t, seen["a"])
		assert.True(t, seen["b"])
		assert.True(t, seen["c"])
	})

	t.Run("stops when f returns false", func(t *testing.T) {
		count := 0
		s.Range(func(v string) bool {
			count++
			return count < 2
		})
		assert.Equal(t, 2, count)
	})

	t.Run("empty set calls f zero times", func(t *testing.T) {
		empty := NewSafeSet[int]()
		calls := 0
		empty.Range(func(v int) bool {
			calls++
			return true
		})
		assert.Equal(t, 0, calls)
	})
}

func TestSafeSet_Concurrent(t *testing.T) {
	s := NewSafeSet[int]()
	const goroutines = 100
	const opsPerGoroutine = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for g := 0; g < goroutines; g++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < opsPerGoroutine; i++ {
				v := id*opsPerGoroutine + i
				s.Add(v)
				s.Contains(v)
				s.Size()
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, goroutines*opsPerGoroutine, s.Size())

	// Concurrent remove and read
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < opsPerGoroutine; i++ {
				v := id*opsPerGoroutine + i
				s.Remove(v)
				s.Contains(v)
				s.Size()
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 0, s.Size())
}

func TestSafeSet_ConcurrentRange(t *testing.T) {
	s := NewSafeSet[int]()
	for i := 0; i < 100; i++ {
		s.Add(i)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		count := 0
		s.Range(func(v int) bool {
			count++
			return true
		})
		assert.Equal(t, 100, count)
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			s.Contains(i)
		}
	}()
	wg.Wait()
}

func TestSafeSet_ConcurrentReplaceAll(t *testing.T) {
	s := NewSafeSet[int]()
	for i := 0; i < 50; i++ {
		s.Add(i)
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); s.ReplaceAll([]int{1, 2, 3}) }()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			s.Contains(i)
		}
	}()
	go func() { defer wg.Done(); _ = s.Values() }()
	wg.Wait()

	assert.Equal(t, 3, s.Size())
}
