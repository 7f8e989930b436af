package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/quillnotes/quill/pkg/hash"
	"github.com/quillnotes/quill/pkg/note"
)

// loadNotes reads every .md and .txt file under dir into an in-memory store.
// The file's path relative to dir becomes the note path, its first line the
// note name. IDs are derived from the path so they are stable across runs,
// which the durable cache relies on.
//
// Hierarchy follows the directory tree: a note's parent is the index note
// (_index.md) of its directory, when one exists.
func loadNotes(dir string) (*note.MapStore, error) {
	store := note.NewMapStore()
	var notes []*note.Note
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".md" && ext != ".txt" {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		n, err := loadNote(path, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		notes = append(notes, n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	linkParents(notes)
	for _, n := range notes {
		store.Put(n)
	}
	return store, nil
}

func loadNote(path, rel string) (*note.Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	n := &note.Note{
		ID:       note.ID(hash.Sum(rel)[:16]),
		Name:     lines[0],
		Body:     lines[1:],
		Path:     rel,
		Modified: info.ModTime(),
		Created:  info.ModTime(),
		Viewed:   info.ModTime(),
	}
	return n, nil
}

func linkParents(notes []*note.Note) {
	index := make(map[string]note.ID)
	for _, n := range notes {
		base := strings.TrimSuffix(filepath.Base(n.Path), filepath.Ext(n.Path))
		if base == "_index" {
			index[filepath.ToSlash(filepath.Dir(n.Path))] = n.ID
		}
	}
	for _, n := range notes {
		dir := filepath.ToSlash(filepath.Dir(n.Path))
		if id, ok := index[dir]; ok && id != n.ID {
			n.Parent = id
			continue
		}
		// An index note's parent is the index of the directory above.
		if id, ok := index[filepath.ToSlash(filepath.Dir(dir))]; ok && id != n.ID {
			n.Parent = id
		}
	}
}

// sortedByPath returns the store's notes ordered by path for stable output.
func sortedByPath(store *note.MapStore) []*note.Note {
	notes := store.All()
	sort.Slice(notes, func(i, j int) bool { return notes[i].Path < notes[j].Path })
	return notes
}
