package storage

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

// testDB runs the shared test suite against a DB implementation.
func testDB(t *testing.T, db DB) {
	t.Helper()

	t.Run("PutAndGet", func(t *testing.T) {
		if err := db.Put([]byte("key1"), []byte("value1")); err != nil {
			t.Fatalf("Put() error: %v", err)
		}
		val, err := db.Get([]byte("key1"))
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if !bytes.Equal(val, []byte("value1")) {
			t.Errorf("Get() = %q, want %q", val, "value1")
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := db.Get([]byte("missing"))
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("HasAndDelete", func(t *testing.T) {
		db.Put([]byte("del"), []byte("x"))

		ok, err := db.Has([]byte("del"))
		if err != nil || !ok {
			t.Fatalf("Has() = %v, %v; want true", ok, err)
		}
		if err := db.Delete([]byte("del")); err != nil {
			t.Fatalf("Delete() error: %v", err)
		}
		ok, err = db.Has([]byte("del"))
		if err != nil || ok {
			t.Fatalf("Has() after delete = %v, %v; want false", ok, err)
		}
	})

	t.Run("ForEachOrdered", func(t *testing.T) {
		for _, k := range []string{"p/c", "p/a", "p/b", "q/a"} {
			db.Put([]byte(k), []byte(k))
		}
		var got []string
		err := db.ForEach([]byte("p/"), func(key, value []byte) error {
			got = append(got, string(key))
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach() error: %v", err)
		}
		want := []string{"p/a", "p/b", "p/c"}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("ForEach() keys = %v, want %v", got, want)
		}
	})

	t.Run("ForEachStop", func(t *testing.T) {
		stop := errors.New("stop")
		calls := 0
		err := db.ForEach([]byte("p/"), func(_, _ []byte) error {
			calls++
			return stop
		})
		if !errors.Is(err, stop) {
			t.Errorf("ForEach() error = %v, want stop", err)
		}
		if calls != 1 {
			t.Errorf("callback called %d times, want 1", calls)
		}
	})

	t.Run("Batch", func(t *testing.T) {
		batcher, ok := db.(Batcher)
		if !ok {
			t.Skip("db does not batch")
		}
		db.Put([]byte("b/old"), []byte("x"))

		b := batcher.NewBatch()
		b.Put([]byte("b/1"), []byte("one"))
		b.Put([]byte("b/2"), []byte("two"))
		b.Delete([]byte("b/old"))

		if ok, _ := db.Has([]byte("b/1")); ok {
			t.Error("batch writes should not be visible before Commit")
		}
		if err := b.Commit(); err != nil {
			t.Fatalf("Commit() error: %v", err)
		}
		if v, _ := db.Get([]byte("b/2")); string(v) != "two" {
			t.Errorf("Get(b/2) = %q, want two", v)
		}
		if ok, _ := db.Has([]byte("b/old")); ok {
			t.Error("batched delete not applied")
		}
	})
}

func TestMemoryDB(t *testing.T) {
	db := NewMemory()
	defer db.Close()
	testDB(t, db)
}

func TestBadgerDB(t *testing.T) {
	db, err := NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	defer db.Close()
	testDB(t, db)
}

func TestBadgerDB_InMemory(t *testing.T) {
	db, err := NewBadgerInMemory()
	if err != nil {
		t.Fatalf("NewBadgerInMemory() error: %v", err)
	}
	defer db.Close()
	testDB(t, db)
}

func TestMemoryDB_GetReturnsCopy(t *testing.T) {
	db := NewMemory()
	db.Put([]byte("k"), []byte("abc"))

	v, _ := db.Get([]byte("k"))
	v[0] = 'z'

	again, _ := db.Get([]byte("k"))
	if string(again) != "abc" {
		t.Errorf("stored value mutated through Get result: %q", again)
	}
}
