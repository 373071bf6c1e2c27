package plugins

// Action is what a plugin asks the orchestrator to do with a file. It is a
// closed set: Content, Rename, Remove, Batch and Keep.
type Action interface {
	isAction()
}

// Content replaces the file's content, keeping its identity.
type Content struct {
	Data []byte
}

// Rename retires the file's identity and continues it under Path with Data.
type Rename struct {
	Path string
	Data []byte
}

// Remove drops Path from the output set. Path may be the file itself or a
// side-effect file such as a stylesheet source compiled elsewhere.
type Remove struct {
	Path string
}

// Batch applies its actions in order.
type Batch []Action

// Keep leaves the file untouched.
type Keep struct{}

func (Content) isAction() {}
func (Rename) isAction()  {}
func (Remove) isAction()  {}
func (Batch) isAction()   {}
func (Keep) isAction()    {}
