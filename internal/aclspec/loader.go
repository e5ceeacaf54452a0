package aclspec

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/webstead/aclengine/internal/acl"
)

// LoadFromReader parses a policy file from a reader. The path parameter is
// used for diagnostics only.
func LoadFromReader(path string, reader io.Reader) (*PolicyFile, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	var policy PolicyFile
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPolicy, path, err)
	}
	policy.Path = path
	return &policy, nil
}

// LoadFromFile loads a policy file from disk.
func LoadFromFile(path string) (*PolicyFile, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	return LoadFromReader(path, fd)
}

// LoadFile loads and compiles one policy file into an ACL list owned by the
// caller.
func LoadFile(path string) (*acl.ACLList, error) {
	policy, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	return policy.Compile()
}

// LoadDir loads every *.acl.yaml file under dir (non-recursive), parsing
// files concurrently, and compiles them into a single ACL list in lexical
// path order so the global ACE order is deterministic.
func LoadDir(dir string) (*acl.ACLList, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && IsPolicyFile(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no policy files in %s", ErrInvalidPolicy, dir)
	}

	var mu sync.Mutex
	policies := make(map[string]*PolicyFile, len(paths))

	var g errgroup.Group
	g.SetLimit(8)
	for _, path := range paths {
		g.Go(func() error {
			policy, err := LoadFromFile(path)
			if err != nil {
				return err
			}
			mu.Lock()
			policies[path] = policy
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	list := acl.NewACLList()
	for _, path := range paths {
		if err := policies[path].CompileInto(list); err != nil {
			list.Release()
			return nil, err
		}
	}
	slog.Debug("acl policies loaded", "dir", dir, "files", len(paths), "acls", list.Len())
	return list, nil
}
