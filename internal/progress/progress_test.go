package progress

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestStore_LoadMissing(t *testing.T) {
	store := NewStore(nil)
	target := filepath.Join(t.TempDir(), "physics.json")

	got := store.Load(target)
	if len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got.Sorted())
	}
}

func TestStore_SaveLoad(t *testing.T) {
	store := NewStore(nil)
	target := filepath.Join(t.TempDir(), "physics.json")

	if err := store.Save(target, NewSet(3, 1, 2)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(target + ".progress")
	if err != nil {
		t.Fatalf("sidecar not written: %v", err)
	}
	if string(data) != `{"processed_chunks":[1,2,3]}` {
		t.Errorf("unexpected sidecar contents: %s", data)
	}

	got := store.Load(target)
	if !reflect.DeepEqual(got.Sorted(), []int{1, 2, 3}) {
		t.Errorf("Load() = %v, want [1 2 3]", got.Sorted())
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	store := NewStore(nil)
	target := filepath.Join(t.TempDir(), "biology.json")

	set := NewSet(1)
	if err := store.Save(target, set); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	set.Add(2)
	if err := store.Save(target, set); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if got := store.Load(target).Sorted(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("Load() = %v, want [1 2]", got)
	}
}

func TestStore_LoadMalformed(t *testing.T) {
	store := NewStore(nil)
	target := filepath.Join(t.TempDir(), "math.json")
	if err := os.WriteFile(SidecarPath(target), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := store.Load(target); len(got) != 0 {
		t.Fatalf("expected empty set for malformed sidecar, got %v", got.Sorted())
	}
}

func TestStore_SaveFailure(t *testing.T) {
	store := NewStore(nil)
	target := filepath.Join(t.TempDir(), "missing-dir", "math.json")

	if err := store.Save(target, NewSet(1)); err == nil {
		t.Fatal("expected error when sidecar directory does not exist")
	}
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	store := NewStore(nil)
	dir := t.TempDir()
	target := filepath.Join(dir, "physics.json")

	for i := 0; i < 3; i++ {
		if err := store.Save(target, NewSet(0, i)); err != nil {
			t.Fatalf("Save() #%d error = %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "physics.json"+Suffix {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("directory contents = %v, want only the sidecar", names)
	}

	info, err := os.Stat(SidecarPath(target))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("sidecar mode = %v, want 0644", info.Mode().Perm())
	}
	if got := store.Load(target).Sorted(); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("Load() = %v, want [0 2]", got)
	}
}

func TestStore_SaveRenameFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "english.json")

	store := NewStore(nil)
	if err := store.Save(target, NewSet(1, 2)); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(SidecarPath(target))
	if err != nil {
		t.Fatal(err)
	}

	errRename := errors.New("disk full")
	store.rename = func(oldpath, newpath string) error { return errRename }
	if err := store.Save(target, NewSet(1, 2, 3)); !errors.Is(err, errRename) {
		t.Fatalf("Save() error = %v, want %v", err, errRename)
	}

	after, err := os.ReadFile(SidecarPath(target))
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != string(before) {
		t.Errorf("sidecar changed after failed Save: %s", after)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %d entries in %s", len(entries), dir)
	}
}

func TestStore_Remove(t *testing.T) {
	store := NewStore(nil)
	target := filepath.Join(t.TempDir(), "chemistry.json")

	if err := store.Remove(target); err != nil {
		t.Fatalf("Remove() on missing sidecar error = %v", err)
	}
	if err := store.Save(target, NewSet(1)); err != nil {
		t.Fatal(err)
	}
	if err := store.Remove(target); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(SidecarPath(target)); !os.IsNotExist(err) {
		t.Errorf("sidecar still present after Remove")
	}
}

func TestSet(t *testing.T) {
	s := NewSet()
	if s.Has(1) {
		t.Fatal("empty set should not contain 1")
	}
	s.Add(1)
	s.Add(1)
	if !s.Has(1) || len(s) != 1 {
		t.Fatalf("unexpected set state: %v", s.Sorted())
	}
}
