package httpserver

import (
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// WelcomeText is served at the catch-all when no web build is present.
const WelcomeText = "Welcome to Ayush's AI-powered Health System 🚑🤖"

const alivePage = "<h1>Backend Server is Alive 🚀</h1>"

// spaHandler serves the built web app from dir. Unknown paths get
// index.html so client-side routes survive a reload.
type spaHandler struct {
	dir string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	index := filepath.Join(h.dir, "index.html")
	if h.dir == "" || !isFile(index) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, WelcomeText)
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	file := filepath.Join(h.dir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	if clean != "/" && isFile(file) {
		http.ServeFile(w, r, file)
		return
	}
	http.ServeFile(w, r, index)
}

func isFile(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
