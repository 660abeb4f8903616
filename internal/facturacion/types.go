package facturacion

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Comprobante states. A row is only written once the authority answered, so
// the stored states are the two terminal ones.
const (
	EstadoAutorizado = "autorizado"
	EstadoRechazado  = "rechazado"
)

// Empresa is an issuing company.
type Empresa struct {
	ID                string    `json:"id"`
	RazonSocial       string    `json:"razon_social"`
	CUIT              string    `json:"cuit"`
	CondicionIVA      string    `json:"condicion_iva"`
	Domicilio         string    `json:"domicilio"`
	Localidad         string    `json:"localidad"`
	Provincia         string    `json:"provincia"`
	CodigoPostal      string    `json:"codigo_postal"`
	Email             string    `json:"email,omitempty"`
	Telefono          string    `json:"telefono,omitempty"`
	InicioActividades time.Time `json:"inicio_actividades"`
	CreatedAt         time.Time `json:"created_at"`
}

// PuntoVenta is a numbered sales channel registered with the tax authority.
// Numbering sequences are scoped to it.
type PuntoVenta struct {
	ID        string    `json:"id"`
	EmpresaID string    `json:"empresa_id"`
	Numero    int       `json:"numero"`
	Nombre    string    `json:"nombre,omitempty"`
	Activo    bool      `json:"activo"`
	CreatedAt time.Time `json:"created_at"`
}

// Cliente is a comprobante recipient.
type Cliente struct {
	ID              string    `json:"id"`
	EmpresaID       string    `json:"empresa_id"`
	RazonSocial     string    `json:"razon_social"`
	TipoDocumento   int       `json:"tipo_documento"`
	NumeroDocumento string    `json:"numero_documento"`
	CondicionIVA    string    `json:"condicion_iva,omitempty"`
	Domicilio       string    `json:"domicilio,omitempty"`
	Activo          bool      `json:"activo"`
	CreatedAt       time.Time `json:"created_at"`
}

// Certificado holds the metadata of a stored signing certificate. The key
// material itself lives on disk under the configured certificate directory.
type Certificado struct {
	ID               string    `json:"id"`
	EmpresaID        string    `json:"empresa_id"`
	Nombre           string    `json:"nombre"`
	CUIT             string    `json:"cuit"`
	FechaEmision     time.Time `json:"fecha_emision"`
	FechaVencimiento time.Time `json:"fecha_vencimiento"`
	ArchivoCrt       string    `json:"archivo_crt"`
	ArchivoKey       string    `json:"archivo_key"`
	Ambiente         string    `json:"ambiente"`
	Activo           bool      `json:"activo"`
	CreatedAt        time.Time `json:"created_at"`
}

// Item is one line of an emission request.
type Item struct {
	Codigo              string          `json:"codigo,omitempty"`
	Descripcion         string          `json:"descripcion"`
	Cantidad            decimal.Decimal `json:"cantidad"`
	Unidad              string          `json:"unidad,omitempty"`
	PrecioUnitario      decimal.Decimal `json:"precio_unitario"`
	DescuentoPorcentaje decimal.Decimal `json:"descuento_porcentaje"`
	IvaPorcentaje       decimal.Decimal `json:"iva_porcentaje"`
	Orden               int             `json:"orden,omitempty"`
}

// Comprobante is a persisted invoice, credit note or debit note header.
type Comprobante struct {
	ID              string          `json:"id"`
	EmpresaID       string          `json:"empresa_id"`
	PuntoVentaID    string          `json:"punto_venta_id"`
	ClienteID       string          `json:"cliente_id"`
	TipoComprobante int             `json:"tipo_comprobante"`
	Numero          int64           `json:"numero"`
	FechaEmision    time.Time       `json:"fecha_emision"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Descuento       decimal.Decimal `json:"descuento"`
	Iva21           decimal.Decimal `json:"iva_21"`
	Iva105          decimal.Decimal `json:"iva_10_5"`
	Iva27           decimal.Decimal `json:"iva_27"`
	OtrosImpuestos  decimal.Decimal `json:"otros_impuestos"`
	Total           decimal.Decimal `json:"total"`
	CAE             string          `json:"cae,omitempty"`
	CAEVencimiento  time.Time       `json:"cae_vencimiento,omitempty"`
	Estado          string          `json:"estado"`
	Moneda          string          `json:"moneda"`
	Cotizacion      decimal.Decimal `json:"cotizacion"`
	Observaciones   string          `json:"observaciones,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ComprobanteItem is one persisted detail line.
type ComprobanteItem struct {
	ID                  string          `json:"id"`
	ComprobanteID       string          `json:"comprobante_id"`
	Codigo              string          `json:"codigo,omitempty"`
	Descripcion         string          `json:"descripcion"`
	Cantidad            decimal.Decimal `json:"cantidad"`
	Unidad              string          `json:"unidad"`
	PrecioUnitario      decimal.Decimal `json:"precio_unitario"`
	DescuentoPorcentaje decimal.Decimal `json:"descuento_porcentaje"`
	IvaPorcentaje       decimal.Decimal `json:"iva_porcentaje"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	Orden               int             `json:"orden"`
}

// EmisionRequest carries everything needed to issue one comprobante. Dates
// travel in the YYYYMMDD protocol form.
type EmisionRequest struct {
	EmpresaID       string          `json:"empresa_id"`
	PuntoVentaID    string          `json:"punto_venta_id"`
	ClienteID       string          `json:"cliente_id,omitempty"`
	TipoComprobante int             `json:"tipo_comprobante"`
	Concepto        int             `json:"concepto"`
	TipoDocumento   int             `json:"tipo_documento"`
	NumeroDocumento string          `json:"numero_documento"`
	RazonSocial     string          `json:"razon_social,omitempty"`
	CondicionIVA    string          `json:"condicion_iva,omitempty"`
	Domicilio       string          `json:"domicilio,omitempty"`
	Moneda          string          `json:"moneda"`
	Cotizacion      decimal.Decimal `json:"cotizacion"`
	FechaServDesde  string          `json:"fecha_servicio_desde,omitempty"`
	FechaServHasta  string          `json:"fecha_servicio_hasta,omitempty"`
	FechaVtoPago    string          `json:"fecha_vto_pago,omitempty"`
	Observaciones   string          `json:"observaciones,omitempty"`
	Items           []Item          `json:"items"`
}

// EmisionResultado is the outcome of an emission attempt. A validation
// failure carries numero 0 and never reaches the authority; a rejection
// carries the attempted numero and the remote error list.
type EmisionResultado struct {
	Exito           bool            `json:"exito"`
	ComprobanteID   string          `json:"comprobante_id,omitempty"`
	TipoComprobante int             `json:"tipo_comprobante"`
	PuntoVenta      int             `json:"punto_venta"`
	Numero          int64           `json:"numero"`
	Fecha           time.Time       `json:"fecha"`
	CAE             string          `json:"cae,omitempty"`
	CAEVencimiento  time.Time       `json:"cae_vencimiento,omitempty"`
	Total           decimal.Decimal `json:"total"`
	Mensaje         string          `json:"mensaje"`
	Errores         []string        `json:"errores,omitempty"`
}

var (
	ErrNotFound = errors.New("not found")
	// ErrNumeroDuplicado surfaces a uniqueness conflict on the persisted
	// (empresa, punto de venta, tipo, numero) tuple.
	ErrNumeroDuplicado = errors.New("numero de comprobante duplicado")
)

// RuleError is a business rule violation detected before any authority call.
type RuleError struct {
	Regla string
}

func (e *RuleError) Error() string { return e.Regla }
