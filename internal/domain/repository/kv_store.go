package repository

// KVStore almacén clave-valor durable para el estado local del motor de temporizadores.
// Las claves usan "/" como separador de espacio de nombres (ej. "empresa-1/timers").
// Get devuelve domain.ErrNotFound si la clave no existe.
type KVStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}
