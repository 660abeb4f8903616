package facturacion

import (
	"context"
	"sort"
	"sync"
	"time"

	"facturante.ar/internal/ids"
)

// InMemory implements Store with in-process concurrency safety. It backs
// tests and local development; production uses the Postgres store.
type InMemory struct {
	mu           sync.RWMutex
	empresas     map[string]Empresa
	puntosVenta  map[string]PuntoVenta
	clientes     map[string]Cliente
	comprobantes map[string]Comprobante
	items        map[string][]ComprobanteItem
	certificados map[string]Certificado
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		empresas:     make(map[string]Empresa),
		puntosVenta:  make(map[string]PuntoVenta),
		clientes:     make(map[string]Cliente),
		comprobantes: make(map[string]Comprobante),
		items:        make(map[string][]ComprobanteItem),
		certificados: make(map[string]Certificado),
	}
}

// PutEmpresa inserts an empresa, assigning an id when absent.
func (s *InMemory) PutEmpresa(e Empresa) Empresa {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.empresas[e.ID] = e
	return e
}

// PutPuntoVenta inserts a punto de venta, assigning an id when absent.
func (s *InMemory) PutPuntoVenta(pv PuntoVenta) PuntoVenta {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pv.ID == "" {
		pv.ID = ids.New()
	}
	if pv.CreatedAt.IsZero() {
		pv.CreatedAt = time.Now().UTC()
	}
	s.puntosVenta[pv.ID] = pv
	return pv
}

// PutCertificado inserts a certificado, assigning an id when absent.
func (s *InMemory) PutCertificado(c Certificado) Certificado {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = ids.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.certificados[c.ID] = c
	return c
}

func (s *InMemory) Empresa(ctx context.Context, id string) (Empresa, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.empresas[id]
	if !ok {
		return Empresa{}, ErrNotFound
	}
	return e, nil
}

func (s *InMemory) PuntoVenta(ctx context.Context, id string) (PuntoVenta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pv, ok := s.puntosVenta[id]
	if !ok {
		return PuntoVenta{}, ErrNotFound
	}
	return pv, nil
}

func (s *InMemory) Cliente(ctx context.Context, id string) (Cliente, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clientes[id]
	if !ok {
		return Cliente{}, ErrNotFound
	}
	return c, nil
}

func (s *InMemory) CreateCliente(ctx context.Context, c Cliente) (Cliente, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = ids.New()
	}
	c.CreatedAt = time.Now().UTC()
	s.clientes[c.ID] = c
	return c, nil
}

func (s *InMemory) UltimoNumero(ctx context.Context, empresaID, puntoVentaID string, tipoComprobante int) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max int64
	for _, c := range s.comprobantes {
		if c.EmpresaID == empresaID && c.PuntoVentaID == puntoVentaID && c.TipoComprobante == tipoComprobante && c.Numero > max {
			max = c.Numero
		}
	}
	return max, nil
}

func (s *InMemory) CreateComprobante(ctx context.Context, c Comprobante, items []ComprobanteItem) (Comprobante, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = ids.New()
	}
	c.CreatedAt = time.Now().UTC()
	s.comprobantes[c.ID] = c

	stored := make([]ComprobanteItem, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			it.ID = ids.New()
		}
		it.ComprobanteID = c.ID
		stored = append(stored, it)
	}
	s.items[c.ID] = stored
	return c, nil
}

func (s *InMemory) Comprobante(ctx context.Context, id string) (Comprobante, []ComprobanteItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comprobantes[id]
	if !ok {
		return Comprobante{}, nil, ErrNotFound
	}
	items := make([]ComprobanteItem, len(s.items[id]))
	copy(items, s.items[id])
	return c, items, nil
}

func (s *InMemory) Certificados(ctx context.Context, empresaID string) ([]Certificado, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Certificado
	for _, c := range s.certificados {
		if c.EmpresaID == empresaID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
