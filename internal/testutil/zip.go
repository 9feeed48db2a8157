package testutil

import (
	"bytes"
	"path"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

// ZipBuilder assembles an in-memory backup zip. Directory descriptors
// (__contents__.xml) are generated for every folder below the data root
// unless a descriptor was added explicitly or the folder was marked
// with OmitContents. Folders marked with EmptyDir get an empty descriptor
// only while nothing is stored below them.
type ZipBuilder struct {
	files map[string]string
	order []string
	omit  map[string]bool
	empty []string
}

// NewZip returns an empty builder
func NewZip() *ZipBuilder {
	return &ZipBuilder{
		files: make(map[string]string),
		omit:  make(map[string]bool),
	}
}

// Add stores content at name. Later adds replace earlier ones.
func (z *ZipBuilder) Add(name, content string) *ZipBuilder {
	if _, ok := z.files[name]; !ok {
		z.order = append(z.order, name)
	}
	z.files[name] = content
	return z
}

// AddData stores content below db/mom-data
func (z *ZipBuilder) AddData(name, content string) *ZipBuilder {
	return z.Add(path.Join("db/mom-data", name), content)
}

// OmitContents suppresses the generated descriptor for a folder below db/mom-data
func (z *ZipBuilder) OmitContents(dir string) *ZipBuilder {
	z.omit[path.Join("db/mom-data", dir)] = true
	return z
}

// Bytes writes the zip and returns its bytes
func (z *ZipBuilder) Bytes(t *testing.T) []byte {
	t.Helper()

	files := make(map[string]string, len(z.files))
	order := append([]string(nil), z.order...)
	for name, content := range z.files {
		files[name] = content
	}
	generated := z.descriptors()
	for _, dir := range z.empty {
		if _, ok := generated[dir]; !ok {
			generated[dir] = ContentsXML(nil, nil)
		}
	}
	dirs := make([]string, 0, len(generated))
	for dir := range generated {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		name := dir + "/__contents__.xml"
		if _, ok := files[name]; ok {
			continue
		}
		files[name] = generated[dir]
		order = append(order, name)
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range order {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("Failed to create zip entry %s: %v", name, err)
		}
		if _, err := f.Write([]byte(files[name])); err != nil {
			t.Fatalf("Failed to write zip entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to finish zip: %v", err)
	}
	return buf.Bytes()
}

// WriteTo writes the zip into dir and returns its path
func (z *ZipBuilder) WriteTo(t *testing.T, dir string) string {
	t.Helper()
	return WriteFile(t, dir, "backup.zip", string(z.Bytes(t)))
}

func (z *ZipBuilder) descriptors() map[string]string {
	subdirs := make(map[string]map[string]bool)
	resources := make(map[string]map[string]bool)
	add := func(m map[string]map[string]bool, dir, name string) {
		if m[dir] == nil {
			m[dir] = make(map[string]bool)
		}
		m[dir][name] = true
	}

	for name := range z.files {
		if !strings.HasPrefix(name, "db/mom-data/") || strings.HasSuffix(name, "/__contents__.xml") {
			continue
		}
		dir, file := path.Split(name)
		dir = strings.TrimSuffix(dir, "/")
		add(resources, dir, file)
		for dir != "db/mom-data" && dir != "db" && dir != "." {
			parent, child := path.Split(dir)
			parent = strings.TrimSuffix(parent, "/")
			add(subdirs, parent, child)
			dir = parent
		}
	}

	out := make(map[string]string)
	dirs := make(map[string]bool)
	for d := range subdirs {
		dirs[d] = true
	}
	for d := range resources {
		dirs[d] = true
	}
	for d := range dirs {
		if d == "db" || !strings.HasPrefix(d, "db/mom-data") || z.omit[d] {
			continue
		}
		out[d] = ContentsXML(sortedKeys(subdirs[d]), sortedKeys(resources[d]))
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EmptyDir makes a folder below db/mom-data exist even when no file is
// added to it
func (z *ZipBuilder) EmptyDir(dir string) *ZipBuilder {
	z.empty = append(z.empty, path.Join("db/mom-data", dir))
	return z
}
