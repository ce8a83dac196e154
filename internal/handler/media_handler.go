package handler

import (
	"net/http"
	"os"
	"strings"
)

// NewMediaHandler はroot配下の保存済み画像を配信するハンドラーを返す。
// /media/ プレフィックスを除いたパスを参照名として扱い、ディレクトリ一覧は返さない。
func NewMediaHandler(root string) http.Handler {
	files := http.FileServerFS(os.DirFS(root))
	return http.StripPrefix("/media", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimPrefix(r.URL.Path, "/")
		if ref == "" || strings.Contains(ref, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		files.ServeHTTP(w, r)
	}))
}
