// Package lang resolves message keys into prefixed, parameterised chat text
package lang

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

//go:embed lang.yml
var defaultCatalog []byte

var (
	paramPattern = regexp.MustCompile(`\{(\d+)\}`)
	colorPattern = regexp.MustCompile(`&[0-9a-fk-orA-FK-OR]`)
)

// Meta fills the {version} and {author} placeholders
type Meta struct {
	Version string
	Author  string
}

type entries struct {
	messages map[string]string
	prefix   string
}

// Catalog is safe for concurrent use; Load and SetPrefix swap the whole table
type Catalog struct {
	meta Meta
	cur  atomic.Pointer[entries]
}

// New returns a catalog holding the embedded defaults
func New(meta Meta, prefix string) *Catalog {
	c := &Catalog{meta: meta}
	msgs, err := parse(defaultCatalog, meta)
	if err != nil {
		panic(fmt.Sprintf("lang: embedded catalog: %v", err))
	}
	c.cur.Store(&entries{messages: msgs, prefix: prefix})
	return c
}

// LoadFile overlays a user catalog on the embedded defaults
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog %s: %w", path, err)
	}
	return c.LoadBytes(data)
}

// LoadBytes overlays YAML messages on the embedded defaults
func (c *Catalog) LoadBytes(data []byte) error {
	overlay, err := parse(data, c.meta)
	if err != nil {
		return err
	}
	base, _ := parse(defaultCatalog, c.meta)
	maps.Copy(base, overlay)

	old := c.cur.Load()
	c.cur.Store(&entries{messages: base, prefix: old.prefix})
	return nil
}

// SetPrefix replaces the prefix put before every message
func (c *Catalog) SetPrefix(prefix string) {
	old := c.cur.Load()
	c.cur.Store(&entries{messages: old.messages, prefix: prefix})
}

// Message resolves key with positional arguments; unknown keys render as the key itself
func (c *Catalog) Message(key string, args ...any) string {
	return c.cur.Load().prefix + c.Raw(key, args...)
}

// Raw resolves key without the prefix
func (c *Catalog) Raw(key string, args ...any) string {
	text, ok := c.cur.Load().messages[key]
	if !ok {
		text = key
	}
	if len(args) == 0 {
		return text
	}
	return paramPattern.ReplaceAllStringFunc(text, func(m string) string {
		i, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil || i >= len(args) {
			return m
		}
		return fmt.Sprint(args[i])
	})
}

// Has reports whether key is defined
func (c *Catalog) Has(key string) bool {
	_, ok := c.cur.Load().messages[key]
	return ok
}

// Keys returns every defined key, sorted
func (c *Catalog) Keys() []string {
	return slices.Sorted(maps.Keys(c.cur.Load().messages))
}

// Strip removes & colour codes
func Strip(text string) string {
	return colorPattern.ReplaceAllString(text, "")
}

func parse(data []byte, meta Meta) (map[string]string, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if raw == nil {
		raw = make(map[string]string)
	}
	r := strings.NewReplacer("{version}", meta.Version, "{author}", meta.Author)
	for k, v := range raw {
		raw[k] = r.Replace(v)
	}
	return raw, nil
}
