package xmldoc

import (
	"fmt"
	"strings"
	"sync"

	"github.com/beevik/etree"
)

var (
	pathCacheMu sync.Mutex
	pathCache   = map[string]etree.Path{}
)

// compile turns a lookup path written with the prefixes from Namespaces
// into an etree path. Each "p:name" step becomes
// "*[local-name()='name'][namespace-uri()='uri']" so documents may bind any
// prefix to the namespace.
func compile(path string) (etree.Path, error) {
	pathCacheMu.Lock()
	defer pathCacheMu.Unlock()

	if compiled, ok := pathCache[path]; ok {
		return compiled, nil
	}

	steps := strings.Split(path, "/")
	for i, s := range steps {
		if s == "" || s == "." || s == ".." || s == "*" {
			continue
		}
		step, err := translateStep(s)
		if err != nil {
			return etree.Path{}, fmt.Errorf("invalid path %q: %w", path, err)
		}
		steps[i] = step
	}

	compiled, err := etree.CompilePath(strings.Join(steps, "/"))
	if err != nil {
		return etree.Path{}, fmt.Errorf("invalid path %q: %w", path, err)
	}
	pathCache[path] = compiled
	return compiled, nil
}

func translateStep(s string) (string, error) {
	name, filters, _ := strings.Cut(s, "[")
	if filters != "" {
		filters = "[" + filters
	}

	prefix, local, ok := strings.Cut(name, ":")
	if !ok {
		return "", fmt.Errorf("step %q needs a namespace prefix", s)
	}
	uri, known := Namespaces[prefix]
	if !known {
		return "", fmt.Errorf("unknown namespace prefix %q", prefix)
	}
	return fmt.Sprintf("*[local-name()='%s'][namespace-uri()='%s']%s", local, uri, filters), nil
}
