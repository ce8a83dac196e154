// Package media はアップロード画像の保存を提供する。
package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/hitoshi/bitmeme/internal/model"
)

// allowedTypes は許可する拡張子と、内容から判定したMIMEタイプの対応。
var allowedTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
}

// Storage は画像ファイルをローカルディレクトリに保存する。
type Storage struct {
	root string
}

// NewStorage はStorageを生成する。root ディレクトリが存在しない場合は作成する。
func NewStorage(root string) (*Storage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("メディアディレクトリの作成に失敗しました: %w", err)
	}
	return &Storage{root: root}, nil
}

// Root は保存先ディレクトリを返す。
func (s *Storage) Root() string {
	return s.root
}

// Store は画像を保存して参照名を返す。
// ファイル名の拡張子と内容の両方が許可された画像形式でない場合は REJECTED_FILE_TYPE を返す。
func (s *Storage) Store(ctx context.Context, data []byte, filenameHint string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filenameHint), "."))
	wantMIME, ok := allowedTypes[ext]
	if !ok {
		return "", model.NewRejectedFileTypeError(filenameHint)
	}
	detected := mimetype.Detect(data)
	if !detected.Is(wantMIME) {
		slog.Warn("uploaded file content does not match extension",
			slog.String("filename", filenameHint),
			slog.String("detected", detected.String()),
		)
		return "", model.NewRejectedFileTypeError(filenameHint)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref := uuid.New().String() + detected.Extension()
	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("画像の書き込みに失敗しました: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("画像の書き込みに失敗しました: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("画像の権限設定に失敗しました: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.root, ref)); err != nil {
		return "", fmt.Errorf("画像の保存に失敗しました: %w", err)
	}
	return ref, nil
}

// Delete は保存済みの画像を削除する。存在しない場合は何もしない。
func (s *Storage) Delete(_ context.Context, ref string) error {
	if !validRef(ref) {
		return fmt.Errorf("不正な画像参照です: %q", ref)
	}
	if err := os.Remove(filepath.Join(s.root, ref)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("画像の削除に失敗しました: %w", err)
	}
	return nil
}

// validRef は参照名がディレクトリ外を指さないことを確認する。
func validRef(ref string) bool {
	return ref != "" && ref == filepath.Base(ref) && !strings.HasPrefix(ref, ".")
}
