package handler

import (
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// NewPageHandler はフロントエンドのビルド成果物を配信するハンドラーを返す。
// 存在しないパスとディレクトリにはindex.htmlを返し、クライアント側ルーティングに任せる。
// rootがnilの場合は全リクエストに404を返す。
func NewPageHandler(root fs.FS) http.Handler {
	if root == nil {
		return http.NotFoundHandler()
	}
	fileServer := http.FileServer(http.FS(root))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" {
			name = "."
		}

		info, err := fs.Stat(root, name)
		if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
			serveIndex(w, r, root)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

func serveIndex(w http.ResponseWriter, r *http.Request, root fs.FS) {
	data, err := fs.ReadFile(root, "index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
