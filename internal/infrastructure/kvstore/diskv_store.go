package kvstore

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/peterbourgon/diskv/v3"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/repository"
)

var _ repository.KVStore = (*DiskvStore)(nil)

// DiskvStore almacén clave-valor en disco. Cada segmento de la clave separado
// por "/" se convierte en un directorio ("empresa/eta/12" -> empresa/eta/12).
type DiskvStore struct {
	d *diskv.Diskv
}

// NewDiskvStore abre (o crea) el almacén bajo basePath.
func NewDiskvStore(basePath string) *DiskvStore {
	return &DiskvStore{d: diskv.New(diskv.Options{
		BasePath:          basePath,
		AdvancedTransform: keyToPathTransform,
		InverseTransform:  pathToKeyTransform,
		CacheSizeMax:      1024 * 1024, // 1MB
	})}
}

// Get devuelve domain.ErrNotFound si la clave no existe.
func (s *DiskvStore) Get(key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	val, err := s.d.Read(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("diskv read %s: %w", key, err)
	}
	return val, nil
}

// Set escribe el valor de forma atómica (archivo temporal + rename).
func (s *DiskvStore) Set(key string, value []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := s.d.WriteStream(key, strings.NewReader(string(value)), true); err != nil {
		return fmt.Errorf("diskv write %s: %w", key, err)
	}
	return nil
}

// Delete elimina la clave; domain.ErrNotFound si no existía.
func (s *DiskvStore) Delete(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if !s.d.Has(key) {
		return domain.ErrNotFound
	}
	if err := s.d.Erase(key); err != nil {
		return fmt.Errorf("diskv erase %s: %w", key, err)
	}
	return nil
}

// Keys lista las claves con el prefijo dado.
func (s *DiskvStore) Keys(prefix string) ([]string, error) {
	cancel := make(chan struct{})
	defer close(cancel)
	var keys []string
	for k := range s.d.KeysPrefix(prefix, cancel) {
		keys = append(keys, k)
	}
	return keys, nil
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return fmt.Errorf("clave %q: %w", key, domain.ErrInvalidInput)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("clave %q: %w", key, domain.ErrInvalidInput)
		}
	}
	return nil
}

func keyToPathTransform(key string) *diskv.PathKey {
	parts := strings.Split(key, "/")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	if len(pathKey.Path) == 0 {
		return pathKey.FileName
	}
	return strings.Join(pathKey.Path, "/") + "/" + pathKey.FileName
}
