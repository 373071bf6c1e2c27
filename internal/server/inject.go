package server

import (
	"bytes"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/conneroisu/simplest/internal/config"
)

// ReloadPath is the websocket endpoint the injected client connects to.
const ReloadPath = "/__simplest/ws"

const reloadScript = `<script>(function(){` +
	`var p=location.protocol==="https:"?"wss:":"ws:";` +
	`function connect(){` +
	`var s=new WebSocket(p+"//"+location.host+"` + ReloadPath + `");` +
	`s.onmessage=function(e){var m=JSON.parse(e.data);if(m.type==="reload"){location.reload();}};` +
	`s.onclose=function(){setTimeout(connect,1000);};}` +
	`connect();})();</script>`

// InjectReload inserts the live-reload client before the last </body>, or
// appends it when the document has none.
func InjectReload(doc []byte) []byte {
	i := bytes.LastIndex(bytes.ToLower(doc), []byte("</body>"))
	if i < 0 {
		return append(append([]byte(nil), doc...), reloadScript...)
	}

	out := make([]byte, 0, len(doc)+len(reloadScript))
	out = append(out, doc[:i]...)
	out = append(out, reloadScript...)
	return append(out, doc[i:]...)
}

// staticHandler serves the output tree, injecting the live-reload client
// into HTML documents.
type staticHandler struct {
	root   http.FileSystem
	files  http.Handler
	cfg    *config.Config
	inject bool
}

func newStaticHandler(cfg *config.Config, inject bool) *staticHandler {
	root := http.Dir(cfg.Output)
	return &staticHandler{
		root:   root,
		files:  http.FileServer(root),
		cfg:    cfg,
		inject: inject,
	}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")

	if !h.inject || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		h.files.ServeHTTP(w, r)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	if strings.HasSuffix(r.URL.Path, "/") {
		name = path.Join(name, "index.html")
	}
	if !h.cfg.IsHTML(name) {
		h.files.ServeHTTP(w, r)
		return
	}

	doc, modTime, ok := h.read(name)
	if !ok {
		h.files.ServeHTTP(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, name, modTime, bytes.NewReader(InjectReload(doc)))
}

func (h *staticHandler) read(name string) ([]byte, time.Time, bool) {
	f, err := h.root.Open(name)
	if err != nil {
		return nil, time.Time{}, false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return nil, time.Time{}, false
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, time.Time{}, false
	}
	return buf.Bytes(), info.ModTime(), true
}
