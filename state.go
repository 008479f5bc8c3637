package clsort

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	stateDirName   = ".clsort"
	stateFileName  = "history"
	BlobsDir       = "blobs"
	CacheDir       = "cache"
	entrySeparator = "\n===\n"
	opSeparator    = "\n---\n"
)

type Operation struct {
	Timestamp      int64
	Path           string
	OldContentHash string
	ContentHash    string
}

type HistoryEntry struct {
	ID         string
	Operations []Operation
}

type State struct {
	History      []HistoryEntry
	CurrentIndex int
}

// StateManager keeps the history of rewrite runs so they can be undone and redone.
type StateManager struct {
	statePath string
	state     *State
	blobs     *BlobStore
	StateDir  string
}

func NewStateManager(dir string) (*StateManager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	blobs, err := NewBlobStore(filepath.Join(dir, BlobsDir))
	if err != nil {
		return nil, err
	}
	m := &StateManager{
		statePath: filepath.Join(dir, stateFileName),
		StateDir:  dir,
		blobs:     blobs,
		state:     &State{CurrentIndex: -1},
	}
	if err := m.load(); err != nil && !os.IsNotExist(err) {
		blobs.Close()
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return m, nil
}

func (m *StateManager) Close() { m.blobs.Close() }

func (m *StateManager) load() error {
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		return err
	}

	blocks := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), entrySeparator)
	idx, err := strconv.Atoi(strings.TrimSpace(blocks[0]))
	if err != nil {
		return fmt.Errorf("bad history index %q", blocks[0])
	}
	m.state = &State{CurrentIndex: idx}

	for _, b := range blocks[1:] {
		id, rest, _ := strings.Cut(strings.TrimSpace(b), "\n")
		entry := HistoryEntry{ID: strings.TrimSpace(id)}
		for _, opBlock := range strings.Split(rest, opSeparator) {
			lines := strings.Split(strings.TrimSpace(opBlock), "\n")
			if len(lines) < 4 {
				continue
			}
			ts, _ := strconv.ParseInt(strings.TrimSpace(lines[0]), 10, 64)
			entry.Operations = append(entry.Operations, Operation{
				Timestamp:      ts,
				Path:           strings.TrimSpace(lines[1]),
				OldContentHash: strings.TrimSpace(lines[2]),
				ContentHash:    strings.TrimSpace(lines[3]),
			})
		}
		m.state.History = append(m.state.History, entry)
	}
	if m.state.CurrentIndex >= len(m.state.History) {
		m.state.CurrentIndex = len(m.state.History) - 1
	}
	return nil
}

func (m *StateManager) save() error {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", m.state.CurrentIndex)
	for _, e := range m.state.History {
		b.WriteString(entrySeparator)
		b.WriteString(e.ID)
		b.WriteString("\n")
		for i, op := range e.Operations {
			fmt.Fprintf(&b, "%d\n%s\n%s\n%s", op.Timestamp, op.Path, op.OldContentHash, op.ContentHash)
			if i < len(e.Operations)-1 {
				b.WriteString(opSeparator)
			}
		}
	}
	return WriteFileAtomic(m.statePath, []byte(b.String()), 0644)
}

// Record stores the before and after content of every modified outcome as one history
// entry. Entries beyond the current index are discarded.
func (m *StateManager) Record(outcomes []FileOutcome) error {
	now := time.Now().UTC().Unix()
	var ops []Operation
	for _, o := range outcomes {
		if !o.Modified || o.before == nil {
			continue
		}
		target := o.Target
		if target == "" {
			target = o.Path
		}
		abs, err := filepath.Abs(target)
		if err != nil {
			abs = target
		}
		oldHash, newHash := ContentSHA256(o.before), ContentSHA256(o.after)
		if err := m.blobs.Put(oldHash, o.before); err != nil {
			return err
		}
		if err := m.blobs.Put(newHash, o.after); err != nil {
			return err
		}
		ops = append(ops, Operation{Timestamp: now, Path: abs, OldContentHash: oldHash, ContentHash: newHash})
	}
	if len(ops) == 0 {
		return nil
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Path < ops[j].Path })

	m.state.History = m.state.History[:m.state.CurrentIndex+1]
	m.state.History = append(m.state.History, HistoryEntry{ID: uuid.NewString(), Operations: ops})
	m.state.CurrentIndex++
	return m.save()
}

// Undo restores the content from before the latest recorded run. Files edited since
// that run are left alone and reported as failed.
func (m *StateManager) Undo() (Summary, error) {
	if m.state.CurrentIndex < 0 {
		return Summary{Message: "Nothing to undo"}, nil
	}
	entry := m.state.History[m.state.CurrentIndex]
	s := m.restore(entry.Operations, func(op Operation) (string, string) {
		return op.ContentHash, op.OldContentHash
	})
	m.state.CurrentIndex--
	s.Message = "Undone"
	return s, m.save()
}

func (m *StateManager) Redo() (Summary, error) {
	if m.state.CurrentIndex+1 >= len(m.state.History) {
		return Summary{Message: "Nothing to redo"}, nil
	}
	m.state.CurrentIndex++
	entry := m.state.History[m.state.CurrentIndex]
	s := m.restore(entry.Operations, func(op Operation) (string, string) {
		return op.OldContentHash, op.ContentHash
	})
	s.Message = "Redone"
	return s, m.save()
}

func (m *StateManager) restore(ops []Operation, hashes func(Operation) (expect, restore string)) Summary {
	var s Summary
	for _, op := range ops {
		s.Scanned++
		expect, restore := hashes(op)
		if err := m.restoreFile(op.Path, expect, restore); err != nil {
			s.Failed = append(s.Failed, FileFailure{Path: op.Path, Err: err})
			continue
		}
		s.Modified = append(s.Modified, op.Path)
	}
	return s
}

func (m *StateManager) restoreFile(path, expect, restore string) error {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	actual, err := GetFileSHA256(path)
	if err != nil {
		return newError(KindIO, "cannot hash file", err)
	}
	if actual != expect {
		return newError(KindIO, "file changed since the recorded run", nil)
	}
	content, err := m.blobs.Get(restore)
	if err != nil {
		return newError(KindIO, "missing history blob", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return newError(KindIO, "cannot stat file", err)
	}
	if err := WriteFileAtomic(path, content, info.Mode().Perm()); err != nil {
		return newError(KindIO, "cannot restore file", err)
	}
	return nil
}

func (m *StateManager) Entries() []HistoryEntry {
	return m.state.History
}

func (m *StateManager) CurrentIndex() int {
	return m.state.CurrentIndex
}
