package server

import (
	"embed"
	"io/fs"
	"os"
	"path"
)

//go:embed shell/index.html
var shellFS embed.FS

// placeholderHTML はビルド出力に index.html が無い場合のHTMLシェル
func placeholderHTML() []byte {
	data, err := shellFS.ReadFile("shell/index.html")
	if err != nil {
		// 埋め込みファイルは必ず存在する
		panic(err)
	}
	return data
}

// BuildFS はビルド出力ディレクトリのファイルシステムを返す
// ディレクトリが存在しない場合は nil を返す
func BuildFS(dir string) fs.FS {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil
	}
	return os.DirFS(dir)
}

// subFS は fsys の dir 以下を返す。存在しない場合は nil
func subFS(fsys fs.FS, dir string) fs.FS {
	if fsys == nil {
		return nil
	}
	info, err := fs.Stat(fsys, dir)
	if err != nil || !info.IsDir() {
		return nil
	}
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return nil
	}
	return sub
}

// readIndex は fsys から HTMLシェルを読み込む。無い場合は埋め込みのページを返す
func readIndex(fsys fs.FS, name string) []byte {
	if fsys != nil {
		if data, err := fs.ReadFile(fsys, path.Clean(name)); err == nil {
			return data
		}
	}
	return placeholderHTML()
}
