package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRegister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "register.yaml")

	r, err := LoadRegister(path)
	if err != nil {
		t.Fatalf("LoadRegister() on missing file error = %v", err)
	}
	if len(r.List()) != 0 {
		t.Fatalf("List() = %v, want empty", r.List())
	}

	if err := r.Add("bookstore", "sqlite:///tmp/books.db"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := r.Add("archive", " postgres://app@db/archive "); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	tests := []struct {
		name    string
		add     func() error
		wantErr error
	}{
		{"duplicate", func() error { return r.Add("bookstore", "sqlite:///other.db") }, ErrConnectionExists},
		{"bad name", func() error { return r.Add("book store", "sqlite:///x.db") }, ErrInvalidConnection},
		{"empty connection", func() error { return r.Add("empty", "  ") }, ErrInvalidConnection},
		{"remove missing", func() error { return r.Remove("nope") }, ErrConnectionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.add(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := r.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != registerFilePerm {
		t.Errorf("register permissions = %o, want %o", perm, registerFilePerm)
	}

	loaded, err := LoadRegister(path)
	if err != nil {
		t.Fatalf("LoadRegister() error = %v", err)
	}
	entries := loaded.List()
	if len(entries) != 2 || entries[0].Name != "archive" || entries[1].Name != "bookstore" {
		t.Fatalf("List() = %v, want archive, bookstore", entries)
	}
	if entries[0].Connection != "postgres://app@db/archive" {
		t.Errorf("archive connection = %q, want trimmed", entries[0].Connection)
	}

	if err := loaded.Remove("archive"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := loaded.Get("archive"); !errors.Is(err, ErrConnectionNotFound) {
		t.Errorf("Get(removed) error = %v, want ErrConnectionNotFound", err)
	}
}

func TestRegisterResolve(t *testing.T) {
	r, err := LoadRegister(filepath.Join(t.TempDir(), "register.yaml"))
	if err != nil {
		t.Fatalf("LoadRegister() error = %v", err)
	}
	if err := r.Add("bookstore", "sqlite:///tmp/books.db"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"bookstore", "sqlite:///tmp/books.db", nil},
		{"postgres://app@db/books", "postgres://app@db/books", nil},
		{"./books.db", "./books.db", nil},
		{":memory:", ":memory:", nil},
		{"unknown", "", ErrConnectionNotFound},
	}
	for _, tt := range tests {
		got, err := r.Resolve(tt.in)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Resolve(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadRegisterInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "register.yaml")
	if err := os.WriteFile(path, []byte("connections: [not, a, map]"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	_, err := LoadRegister(path)
	if err == nil || !strings.Contains(err.Error(), "parsing register") {
		t.Errorf("LoadRegister() error = %v, want parse error", err)
	}
}

func TestDefaultRegisterPath(t *testing.T) {
	t.Setenv("HOME", "/home/ann")
	got, err := DefaultRegisterPath()
	if err != nil {
		t.Fatalf("DefaultRegisterPath() error = %v", err)
	}
	if want := filepath.Join("/home/ann", ".microdb", "db", "register.yaml"); got != want {
		t.Errorf("DefaultRegisterPath() = %q, want %q", got, want)
	}
}
