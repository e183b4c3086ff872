package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var glbMagic = []byte("glTF")

// Object is an imported model
type Object struct {
	Name   string
	Source string
	Size   int64
}

// ImportAsset imports a binary glTF file and returns the new object's name.
// The name derives from the file name and is made unique.
func (s *Scene) ImportAsset(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open asset: %w", err)
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, len(glbMagic))
	if _, err := io.ReadFull(f, header); err != nil || !bytes.Equal(header, glbMagic) {
		return "", fmt.Errorf("%w: %s", ErrNotGLB, path)
	}

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat asset: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	s.mu.Lock()
	defer s.mu.Unlock()

	name := uniqueNameLocked(s.objects, base)
	s.objects[name] = &Object{Name: name, Source: path, Size: info.Size()}
	s.logger.Info("asset imported", "object", name, "path", path)
	return name, nil
}

// RenameObject renames an object and returns the name it actually got
func (s *Scene) RenameObject(oldName, newName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[oldName]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, oldName)
	}
	if oldName == newName {
		return newName, nil
	}

	delete(s.objects, oldName)
	name := uniqueNameLocked(s.objects, newName)
	obj.Name = name
	s.objects[name] = obj
	return name, nil
}

// Object returns a copy of the named object
func (s *Scene) Object(name string) (Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[name]
	if !ok {
		return Object{}, fmt.Errorf("%w: %s", ErrObjectNotFound, name)
	}
	return *obj, nil
}

// ObjectNames lists every object, sorted
func (s *Scene) ObjectNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.objects))
	for name := range s.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
