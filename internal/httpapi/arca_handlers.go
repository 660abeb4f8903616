package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

type parametrosResponse struct {
	Tabla string    `json:"tabla"`
	Items any       `json:"items"`
	AsOf  time.Time `json:"as_of"`
}

func (a *API) handleEstado(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	empresaID, ok := resolveEmpresa(w, r, r.URL.Query().Get("empresa_id"))
	if !ok {
		return
	}

	st, err := a.consultas.Estado(r.Context(), empresaID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleCertificado(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	empresaID, ok := resolveEmpresa(w, r, r.URL.Query().Get("empresa_id"))
	if !ok {
		return
	}

	info, err := a.consultas.Certificado(r.Context(), empresaID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (a *API) handleUltimoAutorizado(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	empresaID, ok := resolveEmpresa(w, r, r.URL.Query().Get("empresa_id"))
	if !ok {
		return
	}
	puntoVentaID := strings.TrimSpace(r.URL.Query().Get("punto_venta_id"))
	if puntoVentaID == "" {
		writeError(w, r, http.StatusBadRequest, "punto_venta_id query parameter is required")
		return
	}
	tipo, ok := parseTipoComprobante(w, r)
	if !ok {
		return
	}

	nro, err := a.consultas.UltimoAutorizado(r.Context(), empresaID, puntoVentaID, tipo)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"empresa_id":        empresaID,
		"punto_venta_id":    puntoVentaID,
		"tipo_comprobante":  tipo,
		"ultimo_autorizado": nro,
	})
}

func (a *API) handleComprobanteRemoto(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	empresaID, ok := resolveEmpresa(w, r, r.URL.Query().Get("empresa_id"))
	if !ok {
		return
	}
	puntoVentaID := strings.TrimSpace(r.URL.Query().Get("punto_venta_id"))
	if puntoVentaID == "" {
		writeError(w, r, http.StatusBadRequest, "punto_venta_id query parameter is required")
		return
	}
	tipo, ok := parseTipoComprobante(w, r)
	if !ok {
		return
	}
	numero, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("numero")), 10, 64)
	if err != nil || numero <= 0 {
		writeError(w, r, http.StatusBadRequest, "numero must be a positive integer")
		return
	}

	info, err := a.consultas.ComprobanteEmitido(r.Context(), empresaID, puntoVentaID, tipo, numero)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleParametros serves the reference tables the authority publishes. The
// table name travels in the path; cotizacion additionally takes the currency
// in the query string.
func (a *API) handleParametros(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	tabla := strings.TrimPrefix(r.URL.Path, "/v1/arca/parametros/")
	if tabla == "" || strings.Contains(tabla, "/") {
		writeError(w, r, http.StatusNotFound, "tabla desconocida")
		return
	}
	empresaID, ok := resolveEmpresa(w, r, r.URL.Query().Get("empresa_id"))
	if !ok {
		return
	}

	cliente, err := a.consultas.Cliente(r.Context(), empresaID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	var items any
	switch tabla {
	case "tipos-comprobante":
		items, err = cliente.TiposComprobante(r.Context())
	case "tipos-documento":
		items, err = cliente.TiposDocumento(r.Context())
	case "tipos-iva":
		items, err = cliente.TiposIva(r.Context())
	case "tipos-concepto":
		items, err = cliente.TiposConcepto(r.Context())
	case "monedas":
		items, err = cliente.TiposMoneda(r.Context())
	case "puntos-venta":
		items, err = cliente.PuntosVenta(r.Context())
	case "cotizacion":
		monID := strings.TrimSpace(r.URL.Query().Get("moneda"))
		if monID == "" {
			writeError(w, r, http.StatusBadRequest, "moneda query parameter is required")
			return
		}
		items, err = cliente.CotizacionMoneda(r.Context(), monID)
	default:
		writeError(w, r, http.StatusNotFound, "tabla desconocida")
		return
	}
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, parametrosResponse{
		Tabla: tabla,
		Items: items,
		AsOf:  time.Now().UTC(),
	})
}
