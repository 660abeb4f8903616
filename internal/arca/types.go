package arca

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket is an access ticket issued by WSAA. It is valid while now is before
// Expiration and is required on every WSFEv1 call.
type Ticket struct {
	Token      string    `json:"token"`
	Sign       string    `json:"sign"`
	Expiration time.Time `json:"expiracion"`
	Service    string    `json:"servicio"`
}

// Expired reports whether the ticket is unusable at the given instant.
func (t Ticket) Expired(now time.Time) bool {
	return !now.Before(t.Expiration)
}

// IVA rate ids fixed by the WSFEv1 protocol.
const (
	IvaID0   = 3 // 0%
	IvaID105 = 4 // 10.5%
	IvaID21  = 5 // 21%
	IvaID27  = 6 // 27%
	IvaID5   = 8 // 5%
	IvaID25  = 9 // 2.5%
)

// Comprobante concepts.
const (
	ConceptoProductos = 1
	ConceptoServicios = 2
	ConceptoAmbos     = 3
)

// Recipient document types.
const (
	DocTipoCUIT  = 80
	DocTipoDNI   = 96
	DocTipoSinID = 99
)

// IvaItem is one tax-rate line of a comprobante.
type IvaItem struct {
	ID      int             `json:"id"`
	BaseImp decimal.Decimal `json:"base_imp"`
	Importe decimal.Decimal `json:"importe"`
}

// TributoItem is one additional-charge line of a comprobante.
type TributoItem struct {
	ID      int             `json:"id"`
	Desc    string          `json:"descripcion"`
	BaseImp decimal.Decimal `json:"base_imp"`
	Alic    decimal.Decimal `json:"alic"`
	Importe decimal.Decimal `json:"importe"`
}

// ComprobanteRequest carries everything FECAESolicitar needs for one
// comprobante. Dates are 8-digit YYYYMMDD strings as the protocol requires;
// amounts are rendered with two decimals on the wire.
type ComprobanteRequest struct {
	PuntoVenta int
	TipoCbte   int
	Concepto   int

	DocTipo int
	DocNro  int64

	CbteDesde int64
	CbteHasta int64

	CbteFch      string
	FchServDesde string
	FchServHasta string
	FchVtoPago   string

	ImpTotal   decimal.Decimal
	ImpNeto    decimal.Decimal
	ImpIVA     decimal.Decimal
	ImpOpEx    decimal.Decimal
	ImpTotConc decimal.Decimal
	ImpTrib    decimal.Decimal

	MonID    string
	MonCotiz decimal.Decimal

	Iva      []IvaItem
	Tributos []TributoItem
}

// Observacion is a coded message attached to a response. Remote errors share
// the same wire shape.
type Observacion struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// CAEResponse is the outcome of a CAE request. CAE is set only when Resultado
// is "A" (approved); "R" is surfaced as a KindValidation error and never as a
// successful response.
type CAEResponse struct {
	CAE           string        `json:"cae"`
	CAEFchVto     string        `json:"cae_vencimiento"`
	CbteNro       int64         `json:"numero_comprobante"`
	TipoCbte      int           `json:"tipo_cbte"`
	PuntoVenta    int           `json:"punto_venta"`
	Resultado     string        `json:"resultado"`
	Observaciones []Observacion `json:"observaciones,omitempty"`
	Errores       []Observacion `json:"errores,omitempty"`
}

// Aprobado reports whether the comprobante was approved.
func (r CAEResponse) Aprobado() bool { return r.Resultado == "A" }

// ComprobanteConsulta is the result of FECompConsultar.
type ComprobanteConsulta struct {
	PuntoVenta int             `json:"punto_venta"`
	TipoCbte   int             `json:"tipo_cbte"`
	Numero     int64           `json:"numero"`
	CuitEmisor string          `json:"cuit_emisor"`
	CAE        string          `json:"cae"`
	CAEFchVto  string          `json:"cae_vencimiento"`
	CbteFch    string          `json:"fecha_cbte"`
	FchProceso string          `json:"fecha_proceso"`
	ImpTotal   decimal.Decimal `json:"imp_total"`
	ImpNeto    decimal.Decimal `json:"imp_neto"`
	ImpIVA     decimal.Decimal `json:"imp_iva"`
	ImpOpEx    decimal.Decimal `json:"imp_op_ex"`
	ImpTotConc decimal.Decimal `json:"imp_tot_conc"`
	ImpTrib    decimal.Decimal `json:"imp_trib"`
	MonID      string          `json:"moneda_id"`
	MonCotiz   decimal.Decimal `json:"moneda_cotiz"`
	DocTipo    int             `json:"tipo_doc"`
	DocNro     int64           `json:"nro_doc"`
	Resultado  string          `json:"resultado"`
}

// DummyStatus is the FEDummy liveness probe result.
type DummyStatus struct {
	AppServer  string `json:"app_server"`
	DbServer   string `json:"db_server"`
	AuthServer string `json:"auth_server"`
}

// Parametro is one entry of an id-keyed reference table (tipos de
// comprobante, documento, IVA, concepto).
type Parametro struct {
	ID       int    `json:"id"`
	Desc     string `json:"descripcion"`
	FchDesde string `json:"fecha_desde"`
	FchHasta string `json:"fecha_hasta,omitempty"`
}

// Moneda is one entry of the currency table; currency ids are alphabetic.
type Moneda struct {
	ID       string `json:"id"`
	Desc     string `json:"descripcion"`
	FchDesde string `json:"fecha_desde"`
	FchHasta string `json:"fecha_hasta,omitempty"`
}

// Cotizacion is a currency quote.
type Cotizacion struct {
	MonID    string          `json:"moneda_id"`
	MonCotiz decimal.Decimal `json:"cotizacion"`
	FchCotiz string          `json:"fecha"`
}

// PuntoVentaInfo is one enabled point of sale as reported by the service.
type PuntoVentaInfo struct {
	Nro         int    `json:"numero"`
	EmisionTipo string `json:"emision_tipo"`
	Bloqueado   string `json:"bloqueado"`
	FchBaja     string `json:"fecha_baja,omitempty"`
}

// FormatFecha renders a date in the YYYYMMDD form the protocol expects.
func FormatFecha(t time.Time) string { return t.Format("20060102") }

// ParseFecha parses a YYYYMMDD protocol date.
func ParseFecha(s string) (time.Time, error) { return time.Parse("20060102", s) }
