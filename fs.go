package clsort

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

func GetFileSHA256(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func ContentSHA256(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// WriteFileAtomic replaces path with content through a temp file in the same directory,
// so readers see either the old or the new content and never a partial write.
func WriteFileAtomic(path string, content []byte, perm os.FileMode) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func findGitRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	out, err := cmd.Output()
	if err != nil {
		return os.Getwd()
	}
	return strings.TrimSpace(string(out)), nil
}

// DefaultStateDir is the .clsort directory at the git top level, or in the working
// directory outside of a repository.
func DefaultStateDir() string {
	root, err := findGitRoot()
	if err != nil {
		root = "."
	}
	return filepath.Join(root, stateDirName)
}

// BlobStore keeps zstd-compressed blobs addressed by a hex key.
type BlobStore struct {
	dir string
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewBlobStore(dir string) (*BlobStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating blob directory '%s': %w", dir, err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &BlobStore{dir: dir, enc: enc, dec: dec}, nil
}

func (s *BlobStore) path(key string) string {
	if len(key) > 2 {
		return filepath.Join(s.dir, key[:2], key[2:])
	}
	return filepath.Join(s.dir, key)
}

func (s *BlobStore) Put(key string, content []byte) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	return WriteFileAtomic(p, s.enc.EncodeAll(content, nil), 0644)
}

// Get returns the blob stored under key. A missing blob is reported with an error
// satisfying errors.Is(err, os.ErrNotExist).
func (s *BlobStore) Get(key string) ([]byte, error) {
	if key == "" {
		return []byte{}, nil
	}
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, err
	}
	out, err := s.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("corrupt blob %s: %w", key, err)
	}
	return out, nil
}

func (s *BlobStore) Close() {
	s.enc.Close()
	s.dec.Close()
}
