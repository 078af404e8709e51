package kvstore

import "context"

// Store es el almacenamiento clave/valor opaco.
// Get devuelve ok=false si la clave no existe.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}
