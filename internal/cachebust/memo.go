package cachebust

import "sync"

// Memo caches hash tokens by resolved input-relative asset path for the
// lifetime of one build run.
type Memo struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewMemo creates an empty memo.
func NewMemo() *Memo {
	return &Memo{tokens: make(map[string]string)}
}

// Get returns the cached token for path.
func (m *Memo) Get(path string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.tokens[path]
	return token, ok
}

// Set stores the token for path.
func (m *Memo) Set(path, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[path] = token
}

// Forget drops the token for path.
func (m *Memo) Forget(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, path)
}

// Len returns the number of cached tokens.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}

// Artifacts holds files produced during the current run, keyed by
// output-relative path, so references to them resolve before they are
// visible anywhere on disk.
type Artifacts struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewArtifacts creates an empty artifact table.
func NewArtifacts() *Artifacts {
	return &Artifacts{files: make(map[string][]byte)}
}

// Put records the bytes produced for path.
func (a *Artifacts) Put(path string, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[path] = data
}

// Get returns the bytes produced for path during this run.
func (a *Artifacts) Get(path string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.files[path]
	return data, ok
}
