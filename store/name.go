package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Well-known namespace URIs.
const (
	NamespaceJCR = "http://www.jcp.org/jcr/1.0"
	NamespaceNT  = "http://www.jcp.org/jcr/nt/1.0"
	NamespaceMix = "http://www.jcp.org/jcr/mix/1.0"
	NamespaceNav = "http://www.zero-day.ai/nav/1.0"
)

// Name is a namespace-qualified item name.
type Name struct {
	Space string
	Local string
}

// NewName returns the name local in namespace space.
func NewName(space, local string) Name {
	return Name{Space: space, Local: local}
}

// IsZero reports whether n is the empty name.
func (n Name) IsZero() bool {
	return n.Space == "" && n.Local == ""
}

// String returns the expanded form {space}local, or local for the default
// namespace.
func (n Name) String() string {
	if n.Space == "" {
		return n.Local
	}
	return "{" + n.Space + "}" + n.Local
}

// PathElement is a single step of a Path. Index is 1-based; zero means the
// index was not given. Parent marks a ".." step.
type PathElement struct {
	Name   Name
	Index  int
	Parent bool
}

// Path is a resolved absolute or relative path.
type Path struct {
	Absolute bool
	Elements []PathElement
}

// Depth returns the number of elements.
func (p Path) Depth() int {
	return len(p.Elements)
}

// Namespaces maps name prefixes to namespace URIs. It is safe for concurrent
// use; prefixes are normally registered once at startup.
type Namespaces struct {
	mu       sync.RWMutex
	prefixes map[string]string
}

// NewNamespaces returns a namespace registry seeded with the jcr, nt, mix and
// nav prefixes plus the empty default namespace.
func NewNamespaces() *Namespaces {
	ns := &Namespaces{prefixes: make(map[string]string)}
	ns.prefixes[""] = ""
	ns.prefixes["jcr"] = NamespaceJCR
	ns.prefixes["nt"] = NamespaceNT
	ns.prefixes["mix"] = NamespaceMix
	ns.prefixes["nav"] = NamespaceNav
	return ns
}

// Register maps prefix to uri. Remapping an existing prefix to a different
// URI fails.
func (ns *Namespaces) Register(prefix, uri string) error {
	if prefix == "" || strings.ContainsAny(prefix, ":/{}[] ") {
		return fmt.Errorf("%w: prefix %q", ErrIllegalName, prefix)
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()

	if existing, ok := ns.prefixes[prefix]; ok && existing != uri {
		return fmt.Errorf("%w: prefix %q already mapped to %q", ErrNamespace, prefix, existing)
	}
	ns.prefixes[prefix] = uri
	return nil
}

// URI returns the namespace URI registered for prefix.
func (ns *Namespaces) URI(prefix string) (string, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	uri, ok := ns.prefixes[prefix]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNamespace, prefix)
	}
	return uri, nil
}

// Prefix returns a prefix registered for uri.
func (ns *Namespaces) Prefix(uri string) (string, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	var found []string
	for prefix, u := range ns.prefixes {
		if u == uri {
			found = append(found, prefix)
		}
	}
	if len(found) == 0 {
		return "", fmt.Errorf("%w: no prefix for %q", ErrNamespace, uri)
	}
	sort.Strings(found)
	return found[0], nil
}

// ResolveName parses "prefix:local", "local" or "{uri}local".
func (ns *Namespaces) ResolveName(s string) (Name, error) {
	if s == "" {
		return Name{}, fmt.Errorf("%w: empty name", ErrIllegalName)
	}

	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return Name{}, fmt.Errorf("%w: %q", ErrIllegalName, s)
		}
		local := s[end+1:]
		if err := checkLocal(local); err != nil {
			return Name{}, fmt.Errorf("%w: %q", err, s)
		}
		return Name{Space: s[1:end], Local: local}, nil
	}

	prefix, local := "", s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		prefix, local = s[:i], s[i+1:]
		if prefix == "" {
			return Name{}, fmt.Errorf("%w: %q", ErrIllegalName, s)
		}
	}
	if err := checkLocal(local); err != nil {
		return Name{}, fmt.Errorf("%w: %q", err, s)
	}

	uri, err := ns.URI(prefix)
	if err != nil {
		return Name{}, err
	}
	return Name{Space: uri, Local: local}, nil
}

// FormatName renders n in prefix:local form.
func (ns *Namespaces) FormatName(n Name) (string, error) {
	if n.Space == "" {
		return n.Local, nil
	}
	prefix, err := ns.Prefix(n.Space)
	if err != nil {
		return "", err
	}
	return prefix + ":" + n.Local, nil
}

// ResolvePath parses a slash separated path whose elements are names with an
// optional [index] suffix, "." or "..".
func (ns *Namespaces) ResolvePath(s string) (Path, error) {
	if s == "" {
		return Path{}, fmt.Errorf("%w: empty path", ErrMalformedPath)
	}

	var p Path
	rest := s
	if strings.HasPrefix(rest, "/") {
		p.Absolute = true
		rest = rest[1:]
	}
	if rest == "" {
		if p.Absolute {
			return p, nil
		}
		return Path{}, fmt.Errorf("%w: %q", ErrMalformedPath, s)
	}

	for _, seg := range strings.Split(rest, "/") {
		switch seg {
		case "":
			return Path{}, fmt.Errorf("%w: empty segment in %q", ErrMalformedPath, s)
		case ".":
			continue
		case "..":
			if n := len(p.Elements); n > 0 && !p.Elements[n-1].Parent {
				p.Elements = p.Elements[:n-1]
				continue
			}
			if p.Absolute {
				return Path{}, fmt.Errorf("%w: %q escapes the root", ErrMalformedPath, s)
			}
			p.Elements = append(p.Elements, PathElement{Parent: true})
			continue
		}

		elem, err := ns.resolveElement(seg)
		if err != nil {
			return Path{}, fmt.Errorf("%w: %q: %v", ErrMalformedPath, s, err)
		}
		p.Elements = append(p.Elements, elem)
	}
	return p, nil
}

func (ns *Namespaces) resolveElement(seg string) (PathElement, error) {
	var elem PathElement
	if i := strings.IndexByte(seg, '['); i >= 0 {
		if !strings.HasSuffix(seg, "]") {
			return elem, fmt.Errorf("unterminated index in %q", seg)
		}
		idx, err := strconv.Atoi(seg[i+1 : len(seg)-1])
		if err != nil || idx < 1 {
			return elem, fmt.Errorf("bad index in %q", seg)
		}
		elem.Index = idx
		seg = seg[:i]
	}

	name, err := ns.ResolveName(seg)
	if err != nil {
		return elem, err
	}
	elem.Name = name
	return elem, nil
}

func checkLocal(local string) error {
	if local == "" || strings.TrimSpace(local) == "" {
		return ErrIllegalName
	}
	if local == "." || local == ".." {
		return ErrIllegalName
	}
	if strings.ContainsAny(local, "/:[]*|{}") {
		return ErrIllegalName
	}
	return nil
}

// ParseExpandedName parses the {space}local form produced by Name.String
// without consulting a namespace registry.
func ParseExpandedName(s string) (Name, error) {
	if !strings.HasPrefix(s, "{") {
		if err := checkLocal(s); err != nil {
			return Name{}, fmt.Errorf("%w: %q", err, s)
		}
		return Name{Local: s}, nil
	}
	end := strings.IndexByte(s, '}')
	if end < 0 {
		return Name{}, fmt.Errorf("%w: %q", ErrIllegalName, s)
	}
	local := s[end+1:]
	if err := checkLocal(local); err != nil {
		return Name{}, fmt.Errorf("%w: %q", err, s)
	}
	return Name{Space: s[1:end], Local: local}, nil
}
