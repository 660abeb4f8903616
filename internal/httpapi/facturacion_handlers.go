package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"facturante.ar/internal/facturacion"
)

type comprobanteResponse struct {
	Comprobante facturacion.Comprobante       `json:"comprobante"`
	Items       []facturacion.ComprobanteItem `json:"items"`
}

type certificadosResponse struct {
	EmpresaID    string                    `json:"empresa_id"`
	Certificados []facturacion.Certificado `json:"certificados"`
}

type proximoNumeroResponse struct {
	EmpresaID       string `json:"empresa_id"`
	PuntoVentaID    string `json:"punto_venta_id"`
	TipoComprobante int    `json:"tipo_comprobante"`
	ProximoNumero   int64  `json:"proximo_numero"`
}

func (a *API) handleComprobantesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.emitirComprobante(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) handleComprobanteResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/comprobantes/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}

	if path == "proximo-numero" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.proximoNumero(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getComprobante(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) emitirComprobante(w http.ResponseWriter, r *http.Request) {
	var req facturacion.EmisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	empresaID, ok := resolveEmpresa(w, r, req.EmpresaID)
	if !ok {
		return
	}
	req.EmpresaID = empresaID

	if strings.TrimSpace(req.PuntoVentaID) == "" {
		writeError(w, r, http.StatusBadRequest, "punto_venta_id is required")
		return
	}
	if req.TipoComprobante <= 0 {
		writeError(w, r, http.StatusBadRequest, "tipo_comprobante must be > 0")
		return
	}

	resultado, err := a.emisor.Emitir(r.Context(), req)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if !resultado.Exito {
		writeJSON(w, http.StatusUnprocessableEntity, resultado)
		return
	}

	w.Header().Set("Location", "/v1/comprobantes/"+resultado.ComprobanteID)
	writeJSON(w, http.StatusCreated, resultado)
}

func (a *API) getComprobante(w http.ResponseWriter, r *http.Request, id string) {
	comprobante, items, err := a.store.Comprobante(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	empresaID, ok := resolveEmpresa(w, r, r.URL.Query().Get("empresa_id"))
	if !ok {
		return
	}
	if comprobante.EmpresaID != empresaID {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}

	writeJSON(w, http.StatusOK, comprobanteResponse{
		Comprobante: comprobante,
		Items:       items,
	})
}

func (a *API) handleCertificados(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	empresaID, ok := resolveEmpresa(w, r, r.URL.Query().Get("empresa_id"))
	if !ok {
		return
	}

	certs, err := a.store.Certificados(r.Context(), empresaID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, certificadosResponse{
		EmpresaID:    empresaID,
		Certificados: certs,
	})
}

func (a *API) proximoNumero(w http.ResponseWriter, r *http.Request) {
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

	nro, err := a.emisor.ProximoNumero(r.Context(), empresaID, puntoVentaID, tipo)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, proximoNumeroResponse{
		EmpresaID:       empresaID,
		PuntoVentaID:    puntoVentaID,
		TipoComprobante: tipo,
		ProximoNumero:   nro,
	})
}

func parseTipoComprobante(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("tipo"))
	if raw == "" {
		writeError(w, r, http.StatusBadRequest, "tipo query parameter is required")
		return 0, false
	}
	tipo, err := strconv.Atoi(raw)
	if err != nil || tipo <= 0 {
		writeError(w, r, http.StatusBadRequest, "tipo must be a positive integer")
		return 0, false
	}
	return tipo, true
}
