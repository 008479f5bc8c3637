package clsort

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/neovim/go-client/nvim"
)

// NvimAddress returns the socket of the Neovim instance the tool runs under, if any.
func NvimAddress() string {
	if addr := os.Getenv("NVIM"); addr != "" {
		return addr
	}
	return os.Getenv("NVIM_LISTEN_ADDRESS")
}

// NvimManager asks a running Neovim to reload buffers whose files were rewritten.
type NvimManager struct {
	v *nvim.Nvim
}

func NewNvimManager(addr string) (*NvimManager, error) {
	if addr == "" {
		return nil, fmt.Errorf("no neovim address")
	}
	v, err := nvim.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to neovim at %s: %w", addr, err)
	}
	return &NvimManager{v: v}, nil
}

func (m *NvimManager) Close() {
	if m.v != nil {
		m.v.Close()
	}
}

// Reload runs :checktime for every loaded buffer that shows one of paths.
func (m *NvimManager) Reload(paths []string) (reloaded, failed []string) {
	want := make(map[string]string, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		want[abs] = p
	}

	bufs, err := m.v.Buffers()
	if err != nil {
		return nil, paths
	}

	for _, buf := range bufs {
		name, err := m.v.BufferName(buf)
		if err != nil || name == "" {
			continue
		}
		orig, ok := want[filepath.Clean(name)]
		if !ok {
			continue
		}
		if err := m.v.Command(fmt.Sprintf("checktime %d", int(buf))); err != nil {
			failed = append(failed, orig)
			continue
		}
		reloaded = append(reloaded, orig)
	}
	return reloaded, failed
}
