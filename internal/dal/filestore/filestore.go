package filestore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

var (
	ErrEmptyFile           = errors.New("file is empty")
	ErrExtensionNotAllowed = errors.New("file extension is not allowed")
	ErrFileTooLarge        = errors.New("file is too large")
)

const defaultMaxSize = 10 << 20

var defaultExtensions = []string{".pdf", ".eml", ".msg", ".png", ".jpg", ".jpeg"}

// Upload is a document attached to an order mutation.
type Upload struct {
	Name string
	Data []byte
}

// Store writes uploaded documents under a directory.
type Store struct {
	fs      afero.Fs
	dir     string
	allowed map[string]struct{}
	maxSize int64
	newName func() string
}

// option is a function that configures the Store.
type option func(*Store)

// WithAllowedExtensions replaces the accepted file extensions.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAllowedExtensions(exts ...string) option {
	return func(s *Store) {
		s.allowed = extensionSet(exts)
	}
}

// WithMaxSize sets the largest accepted payload in bytes.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithMaxSize(n int64) option {
	return func(s *Store) {
		s.maxSize = n
	}
}

// WithNameGenerator replaces the generator of stored file base names.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithNameGenerator(f func() string) option {
	return func(s *Store) {
		s.newName = f
	}
}

// NewStore creates a Store writing to dir on fs.
func NewStore(fs afero.Fs, dir string, opts ...option) *Store {
	s := &Store{
		fs:      fs,
		dir:     dir,
		allowed: extensionSet(defaultExtensions),
		maxSize: defaultMaxSize,
		newName: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// MustNewStore creates a Store on the OS filesystem configured from viper.
func MustNewStore() *Store {
	dir := viper.GetString("files.dir")
	if dir == "" {
		dir = filepath.Join(afero.GetTempDir(afero.NewOsFs(), ""), "order-desk")
	}

	opts := []option{}
	if exts := viper.GetStringSlice("files.allowed_extensions"); len(exts) > 0 {
		opts = append(opts, WithAllowedExtensions(exts...))
	}
	if size := viper.GetInt64("files.max_size_bytes"); size > 0 {
		opts = append(opts, WithMaxSize(size))
	}

	s := NewStore(afero.NewOsFs(), dir, opts...)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		panic(fmt.Sprintf("failed to create files directory: %v", err))
	}

	return s
}

// Validate checks that u can be stored.
func (s *Store) Validate(u Upload) error {
	if len(u.Data) == 0 {
		return ErrEmptyFile
	}

	ext := strings.ToLower(filepath.Ext(u.Name))
	if _, ok := s.allowed[ext]; !ok {
		return fmt.Errorf("%w: %q", ErrExtensionNotAllowed, ext)
	}

	if int64(len(u.Data)) > s.maxSize {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(u.Data))
	}

	return nil
}

// Save validates and writes u under a fresh unique name keeping its extension,
// and returns the path it was written to.
func (s *Store) Save(ctx context.Context, u Upload) (string, error) {
	if err := s.Validate(u); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create files directory: %w", err)
	}

	path := filepath.Join(s.dir, s.newName()+strings.ToLower(filepath.Ext(u.Name)))
	if err := afero.WriteFile(s.fs, path, u.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path, nil
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}

	return set
}
