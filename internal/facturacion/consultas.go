package facturacion

import (
	"context"
	"fmt"

	"facturante.ar/internal/arca"
)

// Consulta is the read side of the remote invoicing service: status checks,
// issued-comprobante lookups and parameter tables.
type Consulta interface {
	Dummy(ctx context.Context) (arca.DummyStatus, error)
	UltimoAutorizado(ctx context.Context, ptoVta, cbteTipo int) (int64, error)
	ConsultarComprobante(ctx context.Context, ptoVta, cbteTipo int, numero int64) (arca.ComprobanteConsulta, error)
	TiposComprobante(ctx context.Context) ([]arca.Parametro, error)
	TiposDocumento(ctx context.Context) ([]arca.Parametro, error)
	TiposIva(ctx context.Context) ([]arca.Parametro, error)
	TiposConcepto(ctx context.Context) ([]arca.Parametro, error)
	TiposMoneda(ctx context.Context) ([]arca.Moneda, error)
	CotizacionMoneda(ctx context.Context, monID string) (arca.Cotizacion, error)
	PuntosVenta(ctx context.Context) ([]arca.PuntoVentaInfo, error)
}

// ConsultaFactory builds a Consulta bound to a fresh ticket.
type ConsultaFactory func(ambiente arca.Ambiente, ticket arca.Ticket, taxID string) Consulta

// Consultas opens authenticated read clients for an empresa. Unlike the
// emission flow it holds no locks; every call is independent.
type Consultas struct {
	store      Store
	tickets    TicketSource
	certs      CertSource
	newCliente ConsultaFactory
}

// ConsultasOption configures the consultation service.
type ConsultasOption func(*Consultas)

// WithConsultaFactory overrides how the read client is built, mainly for
// tests.
func WithConsultaFactory(f ConsultaFactory) ConsultasOption {
	return func(c *Consultas) { c.newCliente = f }
}

// NewConsultas wires the read side against the same ticket and certificate
// sources the emission flow uses.
func NewConsultas(store Store, tickets TicketSource, certs CertSource, opts ...ConsultasOption) *Consultas {
	c := &Consultas{
		store:   store,
		tickets: tickets,
		certs:   certs,
		newCliente: func(amb arca.Ambiente, t arca.Ticket, taxID string) Consulta {
			return arca.NewWSFEClient(amb, t, taxID)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cliente resolves the empresa, loads its certificate, obtains a ticket and
// returns a read client bound to it.
func (c *Consultas) Cliente(ctx context.Context, empresaID string) (Consulta, error) {
	empresa, err := c.store.Empresa(ctx, empresaID)
	if err != nil {
		return nil, err
	}
	certData, keyData, err := c.certs.Certificate(empresa.CUIT)
	if err != nil {
		return nil, fmt.Errorf("load certificate for %s: %w", empresa.CUIT, err)
	}
	ticket, err := c.tickets.Login(ctx, empresa.CUIT, arca.ServiceWSFE, certData, keyData, false)
	if err != nil {
		return nil, err
	}
	return c.newCliente(c.tickets.Ambiente(), ticket, empresa.CUIT), nil
}

// Certificado inspects the signing certificate configured for an empresa and
// returns its logical metadata.
func (c *Consultas) Certificado(ctx context.Context, empresaID string) (arca.CertInfo, error) {
	empresa, err := c.store.Empresa(ctx, empresaID)
	if err != nil {
		return arca.CertInfo{}, err
	}
	certData, _, err := c.certs.Certificate(empresa.CUIT)
	if err != nil {
		return arca.CertInfo{}, fmt.Errorf("load certificate for %s: %w", empresa.CUIT, err)
	}
	return arca.InspectCertificate(certData)
}

// Estado reports whether the remote application, database and authentication
// servers are up.
func (c *Consultas) Estado(ctx context.Context, empresaID string) (arca.DummyStatus, error) {
	cliente, err := c.Cliente(ctx, empresaID)
	if err != nil {
		return arca.DummyStatus{}, err
	}
	return cliente.Dummy(ctx)
}

// UltimoAutorizado asks the authority for the last authorized number of a
// punto de venta and comprobante type.
func (c *Consultas) UltimoAutorizado(ctx context.Context, empresaID, puntoVentaID string, tipoComprobante int) (int64, error) {
	pv, err := c.store.PuntoVenta(ctx, puntoVentaID)
	if err != nil {
		return 0, err
	}
	if pv.EmpresaID != empresaID {
		return 0, ErrNotFound
	}
	cliente, err := c.Cliente(ctx, empresaID)
	if err != nil {
		return 0, err
	}
	return cliente.UltimoAutorizado(ctx, pv.Numero, tipoComprobante)
}

// ComprobanteEmitido fetches an already issued comprobante from the authority
// by its protocol coordinates.
func (c *Consultas) ComprobanteEmitido(ctx context.Context, empresaID, puntoVentaID string, tipoComprobante int, numero int64) (arca.ComprobanteConsulta, error) {
	pv, err := c.store.PuntoVenta(ctx, puntoVentaID)
	if err != nil {
		return arca.ComprobanteConsulta{}, err
	}
	if pv.EmpresaID != empresaID {
		return arca.ComprobanteConsulta{}, ErrNotFound
	}
	cliente, err := c.Cliente(ctx, empresaID)
	if err != nil {
		return arca.ComprobanteConsulta{}, err
	}
	return cliente.ConsultarComprobante(ctx, pv.Numero, tipoComprobante, numero)
}
