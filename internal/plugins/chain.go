package plugins

// Chain is the ordered list of plugins run for every file.
type Chain struct {
	plugins []Plugin
}

// NewChain returns a chain running plugins in the given order.
func NewChain(plugins ...Plugin) *Chain {
	return &Chain{plugins: append([]Plugin(nil), plugins...)}
}

// Plugins returns the plugins in execution order.
func (c *Chain) Plugins() []Plugin {
	return c.plugins
}

// Accepts reports whether any plugin handles path.
func (c *Chain) Accepts(path string) bool {
	for _, p := range c.plugins {
		if Accepts(p, path) {
			return true
		}
	}
	return false
}

// Target predicts the final identity of path by folding every renaming
// plugin over it in chain order.
func (c *Chain) Target(path string) string {
	for _, p := range c.plugins {
		t, ok := p.(Targeter)
		if !ok || !Accepts(p, path) {
			continue
		}
		path = t.Target(path)
	}
	return path
}
