package book

import "path/filepath"

// Cache keeps loaded document configurations for the duration of a program
// run. It is owned by the session which creates it and is not safe for
// concurrent use.
type Cache struct {
	entries map[string]*Config
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Config)}
}

// Load returns cached configuration or loads it from disk.
func (c *Cache) Load(sourceDir, path string) (*Config, error) {
	abs, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, err
	}
	key := resolvePath(abs, path)
	if cfg, ok := c.entries[key]; ok {
		return cfg, nil
	}
	cfg, err := Load(abs, path)
	if err != nil {
		return nil, err
	}
	c.entries[key] = cfg
	return cfg, nil
}

// Forget drops cached entry, next Load will read the file again.
func (c *Cache) Forget(sourceDir, path string) {
	abs, err := filepath.Abs(sourceDir)
	if err != nil {
		return
	}
	delete(c.entries, resolvePath(abs, path))
}

func (c *Cache) Len() int {
	return len(c.entries)
}
