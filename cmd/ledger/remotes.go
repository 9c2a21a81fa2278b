package main

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// Remote is a saved server profile: where it lives, which firm the CLI acts
// for there, and how to reach its event bus.
type Remote struct {
	URL     string `toml:"url"`
	Tenant  string `toml:"tenant,omitempty"`
	Token   string `toml:"token,omitempty"`
	NATSURL string `toml:"nats_url,omitempty"`
}

// remoteBook is the remotes file, ~/.local/state/ledger/remotes.toml.
type remoteBook struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`

	path string
}

func remotesPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "ledger", "remotes.toml"), nil
}

// openRemotes reads the remotes file. A missing file is an empty book.
func openRemotes() (*remoteBook, error) {
	path, err := remotesPath()
	if err != nil {
		return nil, err
	}
	b := &remoteBook{path: path}
	if _, err := toml.DecodeFile(path, b); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if b.Remotes == nil {
		b.Remotes = map[string]Remote{}
	}
	return b, nil
}

// save writes the book owner-readable only, since it holds tokens.
func (b *remoteBook) save() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(b.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(b); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", b.path, err)
	}
	return f.Close()
}

func (b *remoteBook) lookup(name string) (Remote, error) {
	r, ok := b.Remotes[name]
	if !ok {
		return Remote{}, fmt.Errorf("remote %q not found", name)
	}
	return r, nil
}

func (b *remoteBook) remove(name string) error {
	if _, err := b.lookup(name); err != nil {
		return err
	}
	delete(b.Remotes, name)
	if b.Active == name {
		b.Active = ""
	}
	return nil
}

func (b *remoteBook) use(name string) error {
	if _, err := b.lookup(name); err != nil {
		return err
	}
	b.Active = name
	return nil
}

func (b *remoteBook) names() []string {
	return slices.Sorted(maps.Keys(b.Remotes))
}

// editRemotes applies fn to the book and saves it when fn succeeds.
func editRemotes(fn func(*remoteBook) error) error {
	b, err := openRemotes()
	if err != nil {
		return err
	}
	if err := fn(b); err != nil {
		return err
	}
	return b.save()
}

// activeRemote is read once per process; flag defaults consult it.
var activeRemote = sync.OnceValue(func() Remote {
	b, err := openRemotes()
	if err != nil || b.Active == "" {
		return Remote{}
	}
	return b.Remotes[b.Active]
})

func activeRemoteURL() string     { return activeRemote().URL }
func activeRemoteToken() string   { return activeRemote().Token }
func activeRemoteTenant() string  { return activeRemote().Tenant }
func activeRemoteNATSURL() string { return activeRemote().NATSURL }

// maskToken keeps the first n bytes of tok and replaces the rest with fill.
// A fill of "" stars out every hidden byte.
func maskToken(tok string, n int, fill string) string {
	if len(tok) <= n {
		return tok
	}
	if fill == "" {
		fill = strings.Repeat("*", len(tok)-n)
	}
	return tok[:n] + fill
}
