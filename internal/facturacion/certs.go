package facturacion

import (
	"fmt"
	"os"
	"path/filepath"

	"facturante.ar/internal/cuit"
)

// DirCerts resolves signing material from a directory laid out as
// <dir>/<cuit>.crt and <dir>/<cuit>.key.
type DirCerts struct {
	Dir string
}

func (d DirCerts) Certificate(taxID string) ([]byte, []byte, error) {
	clean := cuit.Clean(taxID)
	cert, err := os.ReadFile(filepath.Join(d.Dir, clean+".crt"))
	if err != nil {
		return nil, nil, fmt.Errorf("read certificate: %w", err)
	}
	key, err := os.ReadFile(filepath.Join(d.Dir, clean+".key"))
	if err != nil {
		return nil, nil, fmt.Errorf("read private key: %w", err)
	}
	return cert, key, nil
}
