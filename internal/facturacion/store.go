package facturacion

import "context"

// Store is the persistence collaborator of the emission flow. Lookups return
// ErrNotFound when the row does not exist.
type Store interface {
	Empresa(ctx context.Context, id string) (Empresa, error)
	PuntoVenta(ctx context.Context, id string) (PuntoVenta, error)
	Cliente(ctx context.Context, id string) (Cliente, error)
	CreateCliente(ctx context.Context, c Cliente) (Cliente, error)

	// UltimoNumero returns the highest persisted comprobante number for the
	// (empresa, punto de venta, tipo) tuple, 0 when none exist.
	UltimoNumero(ctx context.Context, empresaID, puntoVentaID string, tipoComprobante int) (int64, error)

	CreateComprobante(ctx context.Context, c Comprobante, items []ComprobanteItem) (Comprobante, error)
	Comprobante(ctx context.Context, id string) (Comprobante, []ComprobanteItem, error)

	// Certificados lists the signing certificates registered for an empresa,
	// newest first.
	Certificados(ctx context.Context, empresaID string) ([]Certificado, error)
}
