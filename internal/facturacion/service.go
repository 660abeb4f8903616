package facturacion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"facturante.ar/internal/arca"
	"facturante.ar/internal/cuit"
	"facturante.ar/internal/obs"
)

// TicketSource obtains access tickets for the invoicing service.
type TicketSource interface {
	Login(ctx context.Context, taxID, service string, certData, keyData []byte, forceNew bool) (arca.Ticket, error)
	Ambiente() arca.Ambiente
}

// Authority requests authorization codes from the remote invoicing service.
type Authority interface {
	SolicitarCAE(ctx context.Context, req arca.ComprobanteRequest) (arca.CAEResponse, error)
}

// CertSource resolves the signing certificate and key for an issuer CUIT.
type CertSource interface {
	Certificate(cuit string) (cert, key []byte, err error)
}

// AuthorityFactory builds an Authority bound to a fresh ticket.
type AuthorityFactory func(ambiente arca.Ambiente, ticket arca.Ticket, taxID string) Authority

// Service runs the emission flow: validate, assign the next number, compute
// totals, request the authorization code and persist the result. Number
// assignment and the persisted row form one critical section per
// (empresa, punto de venta, tipo) tuple.
type Service struct {
	store        Store
	tickets      TicketSource
	certs        CertSource
	newAuthority AuthorityFactory
	now          func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures the service.
type Option func(*Service)

// WithAuthorityFactory overrides how the authority client is built, mainly
// for tests.
func WithAuthorityFactory(f AuthorityFactory) Option {
	return func(s *Service) { s.newAuthority = f }
}

// WithClock injects the clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the emission flow.
func NewService(store Store, tickets TicketSource, certs CertSource, opts ...Option) *Service {
	s := &Service{
		store:   store,
		tickets: tickets,
		certs:   certs,
		newAuthority: func(amb arca.Ambiente, t arca.Ticket, taxID string) Authority {
			return arca.NewWSFEClient(amb, t, taxID)
		},
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// seqLock returns the mutex guarding the numbering sequence of one tuple.
func (s *Service) seqLock(empresaID, puntoVentaID string, tipo int) *sync.Mutex {
	key := fmt.Sprintf("%s|%s|%d", empresaID, puntoVentaID, tipo)
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	return m
}

// Emitir runs the full emission flow for one comprobante. Validation
// failures and authority rejections come back as a failed EmisionResultado;
// the returned error is reserved for infrastructure failures (certificate,
// authentication, transport, storage).
func (s *Service) Emitir(ctx context.Context, req EmisionRequest) (EmisionResultado, error) {
	empresa, puntoVenta, err := s.validar(ctx, req)
	if err != nil {
		var rule *RuleError
		if errors.As(err, &rule) {
			obs.Log("emision rechazada por validacion", map[string]any{
				"empresa": req.EmpresaID,
				"tipo":    req.TipoComprobante,
				"regla":   rule.Regla,
			})
			return EmisionResultado{
				TipoComprobante: req.TipoComprobante,
				Fecha:           s.today(),
				Total:           decimal.Zero,
				Mensaje:         "error de validación",
				Errores:         []string{rule.Regla},
			}, nil
		}
		return EmisionResultado{}, err
	}

	certData, keyData, err := s.certs.Certificate(empresa.CUIT)
	if err != nil {
		return EmisionResultado{}, fmt.Errorf("load certificate for %s: %w", empresa.CUIT, err)
	}

	// Number assignment, the authority call and the persisted row share one
	// lock so concurrent emissions for the same tuple never duplicate a
	// number.
	lock := s.seqLock(req.EmpresaID, req.PuntoVentaID, req.TipoComprobante)
	lock.Lock()
	defer lock.Unlock()

	ultimo, err := s.store.UltimoNumero(ctx, req.EmpresaID, req.PuntoVentaID, req.TipoComprobante)
	if err != nil {
		return EmisionResultado{}, fmt.Errorf("query last number: %w", err)
	}
	numero := ultimo + 1

	totales := CalcularTotales(req.Items)

	ticket, err := s.tickets.Login(ctx, empresa.CUIT, arca.ServiceWSFE, certData, keyData, false)
	if err != nil {
		return EmisionResultado{}, err
	}
	authority := s.newAuthority(s.tickets.Ambiente(), ticket, empresa.CUIT)

	resultado, err := authority.SolicitarCAE(ctx, s.armarRequest(req, numero, totales, puntoVenta.Numero))
	if err != nil {
		switch arca.KindOf(err) {
		case arca.KindValidation, arca.KindService:
			obs.Log("cae rechazado", map[string]any{
				"empresa": req.EmpresaID,
				"pto_vta": puntoVenta.Numero,
				"tipo":    req.TipoComprobante,
				"nro":     numero,
				"error":   err.Error(),
			})
			return EmisionResultado{
				TipoComprobante: req.TipoComprobante,
				PuntoVenta:      puntoVenta.Numero,
				Numero:          numero,
				Fecha:           s.today(),
				Total:           totales.Total,
				Mensaje:         "la autoridad rechazó la solicitud de CAE",
				Errores:         []string{err.Error()},
			}, nil
		default:
			return EmisionResultado{}, err
		}
	}

	comprobante, err := s.guardar(ctx, req, numero, totales, resultado, puntoVenta)
	if err != nil {
		return EmisionResultado{}, fmt.Errorf("persist comprobante: %w", err)
	}

	obs.Log("comprobante emitido", map[string]any{
		"id":      comprobante.ID,
		"empresa": req.EmpresaID,
		"pto_vta": puntoVenta.Numero,
		"tipo":    req.TipoComprobante,
		"nro":     numero,
		"cae":     resultado.CAE,
	})
	return EmisionResultado{
		Exito:           true,
		ComprobanteID:   comprobante.ID,
		TipoComprobante: req.TipoComprobante,
		PuntoVenta:      puntoVenta.Numero,
		Numero:          numero,
		Fecha:           comprobante.FechaEmision,
		CAE:             resultado.CAE,
		CAEVencimiento:  comprobante.CAEVencimiento,
		Total:           totales.Total,
		Mensaje:         "comprobante emitido exitosamente",
	}, nil
}

// ProximoNumero reports the next available number for a tuple without
// reserving it.
func (s *Service) ProximoNumero(ctx context.Context, empresaID, puntoVentaID string, tipoComprobante int) (int64, error) {
	ultimo, err := s.store.UltimoNumero(ctx, empresaID, puntoVentaID, tipoComprobante)
	if err != nil {
		return 0, err
	}
	return ultimo + 1, nil
}

// tiposA are the full tax-invoice class documents that require a CUIT
// recipient.
var tiposA = map[int]bool{1: true, 2: true, 3: true}

func (s *Service) validar(ctx context.Context, req EmisionRequest) (Empresa, PuntoVenta, error) {
	if tiposA[req.TipoComprobante] && req.TipoDocumento != arca.DocTipoCUIT {
		return Empresa{}, PuntoVenta{}, &RuleError{Regla: "para comprobantes tipo A el receptor debe tener CUIT (tipo documento 80)"}
	}
	if req.Concepto == arca.ConceptoServicios || req.Concepto == arca.ConceptoAmbos {
		if req.FechaServDesde == "" {
			return Empresa{}, PuntoVenta{}, &RuleError{Regla: "para servicios debe indicar fecha desde"}
		}
		if req.FechaServHasta == "" {
			return Empresa{}, PuntoVenta{}, &RuleError{Regla: "para servicios debe indicar fecha hasta"}
		}
		if req.FechaVtoPago == "" {
			return Empresa{}, PuntoVenta{}, &RuleError{Regla: "para servicios debe indicar fecha de vencimiento de pago"}
		}
	}
	if len(req.Items) == 0 {
		return Empresa{}, PuntoVenta{}, &RuleError{Regla: "debe incluir al menos un ítem"}
	}

	empresa, err := s.store.Empresa(ctx, req.EmpresaID)
	if errors.Is(err, ErrNotFound) {
		return Empresa{}, PuntoVenta{}, &RuleError{Regla: "empresa no encontrada"}
	}
	if err != nil {
		return Empresa{}, PuntoVenta{}, err
	}
	puntoVenta, err := s.store.PuntoVenta(ctx, req.PuntoVentaID)
	if errors.Is(err, ErrNotFound) {
		return Empresa{}, PuntoVenta{}, &RuleError{Regla: "punto de venta no encontrado"}
	}
	if err != nil {
		return Empresa{}, PuntoVenta{}, err
	}
	return empresa, puntoVenta, nil
}

// armarRequest builds the wire request. Each present tax bucket becomes a
// rate line over its own base; a comprobante with no taxed lines gets no
// lines here and the protocol client adds the 0% one.
func (s *Service) armarRequest(req EmisionRequest, numero int64, t Totales, ptoVtaNro int) arca.ComprobanteRequest {
	var iva []arca.IvaItem
	if t.Iva21.IsPositive() {
		iva = append(iva, arca.IvaItem{ID: arca.IvaID21, BaseImp: t.Base21, Importe: t.Iva21})
	}
	if t.Iva105.IsPositive() {
		iva = append(iva, arca.IvaItem{ID: arca.IvaID105, BaseImp: t.Base105, Importe: t.Iva105})
	}
	if t.Iva27.IsPositive() {
		iva = append(iva, arca.IvaItem{ID: arca.IvaID27, BaseImp: t.Base27, Importe: t.Iva27})
	}

	out := arca.ComprobanteRequest{
		PuntoVenta: ptoVtaNro,
		TipoCbte:   req.TipoComprobante,
		Concepto:   req.Concepto,
		DocTipo:    req.TipoDocumento,
		DocNro:     cuit.Numeric(req.NumeroDocumento),
		CbteDesde:  numero,
		CbteHasta:  numero,
		CbteFch:    arca.FormatFecha(s.today()),
		ImpTotal:   t.Total,
		ImpNeto:    t.Subtotal,
		ImpIVA:     t.ImpIVA(),
		MonID:      req.Moneda,
		MonCotiz:   req.Cotizacion,
		Iva:        iva,
	}
	if req.Concepto == arca.ConceptoServicios || req.Concepto == arca.ConceptoAmbos {
		out.FchServDesde = req.FechaServDesde
		out.FchServHasta = req.FechaServHasta
		out.FchVtoPago = req.FechaVtoPago
	}
	return out
}

func (s *Service) guardar(ctx context.Context, req EmisionRequest, numero int64, t Totales, res arca.CAEResponse, pv PuntoVenta) (Comprobante, error) {
	clienteID := req.ClienteID
	if clienteID == "" {
		cliente, err := s.store.CreateCliente(ctx, Cliente{
			EmpresaID:       req.EmpresaID,
			RazonSocial:     req.RazonSocial,
			TipoDocumento:   req.TipoDocumento,
			NumeroDocumento: req.NumeroDocumento,
			CondicionIVA:    req.CondicionIVA,
			Domicilio:       req.Domicilio,
			Activo:          true,
		})
		if err != nil {
			return Comprobante{}, err
		}
		clienteID = cliente.ID
	}

	var vto time.Time
	if res.CAEFchVto != "" {
		parsed, err := arca.ParseFecha(res.CAEFchVto)
		if err != nil {
			obs.Log("fecha de vencimiento de CAE ilegible", map[string]any{"valor": res.CAEFchVto})
		} else {
			vto = parsed
		}
	}

	items := make([]ComprobanteItem, 0, len(req.Items))
	for idx, it := range req.Items {
		orden := it.Orden
		if orden <= 0 {
			orden = idx
		}
		items = append(items, ComprobanteItem{
			Codigo:              it.Codigo,
			Descripcion:         it.Descripcion,
			Cantidad:            it.Cantidad,
			Unidad:              it.Unidad,
			PrecioUnitario:      it.PrecioUnitario,
			DescuentoPorcentaje: it.DescuentoPorcentaje,
			IvaPorcentaje:       it.IvaPorcentaje,
			Subtotal:            lineSubtotal(it).Round(2),
			Orden:               orden,
		})
	}

	return s.store.CreateComprobante(ctx, Comprobante{
		EmpresaID:       req.EmpresaID,
		PuntoVentaID:    pv.ID,
		ClienteID:       clienteID,
		TipoComprobante: req.TipoComprobante,
		Numero:          numero,
		FechaEmision:    s.today(),
		Subtotal:        t.Subtotal,
		Descuento:       decimal.Zero,
		Iva21:           t.Iva21,
		Iva105:          t.Iva105,
		Iva27:           t.Iva27,
		OtrosImpuestos:  decimal.Zero,
		Total:           t.Total,
		CAE:             res.CAE,
		CAEVencimiento:  vto,
		Estado:          EstadoAutorizado,
		Moneda:          req.Moneda,
		Cotizacion:      req.Cotizacion,
		Observaciones:   req.Observaciones,
	}, items)
}

func (s *Service) today() time.Time {
	return s.now().UTC().Truncate(24 * time.Hour)
}
