package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"facturante.ar/internal/arca"
	"facturante.ar/internal/facturacion"
	"facturante.ar/internal/obs"
)

// Emisor is the write side of the invoicing domain.
type Emisor interface {
	Emitir(ctx context.Context, req facturacion.EmisionRequest) (facturacion.EmisionResultado, error)
	ProximoNumero(ctx context.Context, empresaID, puntoVentaID string, tipoComprobante int) (int64, error)
}

// Consultor is the read side against the tax authority.
type Consultor interface {
	Cliente(ctx context.Context, empresaID string) (facturacion.Consulta, error)
	Estado(ctx context.Context, empresaID string) (arca.DummyStatus, error)
	Certificado(ctx context.Context, empresaID string) (arca.CertInfo, error)
	UltimoAutorizado(ctx context.Context, empresaID, puntoVentaID string, tipoComprobante int) (int64, error)
	ComprobanteEmitido(ctx context.Context, empresaID, puntoVentaID string, tipoComprobante int, numero int64) (arca.ComprobanteConsulta, error)
}

// ReadyProbe pings the DB when a pool is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	store     facturacion.Store
	emisor    Emisor
	consultas Consultor
}

func New(rp ReadyProbe, version string, store facturacion.Store, emisor Emisor, consultas Consultor) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		store:      store,
		emisor:     emisor,
		consultas:  consultas,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)

	a.mux.HandleFunc("/v1/comprobantes", a.handleComprobantesCollection)
	a.mux.HandleFunc("/v1/comprobantes/", a.handleComprobanteResource)

	a.mux.HandleFunc("/v1/certificados", a.handleCertificados)

	a.mux.HandleFunc("/v1/arca/estado", a.handleEstado)
	a.mux.HandleFunc("/v1/arca/certificado", a.handleCertificado)
	a.mux.HandleFunc("/v1/arca/ultimo-autorizado", a.handleUltimoAutorizado)
	a.mux.HandleFunc("/v1/arca/comprobantes", a.handleComprobanteRemoto)
	a.mux.HandleFunc("/v1/arca/parametros/", a.handleParametros)

	// root falls through to 404
	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the server handler with the middleware chain applied.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 20, 10)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "facturante-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "facturante-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleDomainError maps domain and upstream failures to HTTP statuses.
// Validation failures of the emission flow never reach here; they come back
// inside the EmisionResultado body.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, facturacion.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	case errors.Is(err, facturacion.ErrNumeroDuplicado):
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}
	switch arca.KindOf(err) {
	case arca.KindConnection, arca.KindService:
		writeError(w, r, http.StatusBadGateway, err.Error())
	case arca.KindAuth:
		writeError(w, r, http.StatusBadGateway, "no se pudo autenticar contra la autoridad")
	case arca.KindValidation:
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case arca.KindCertificate:
		writeError(w, r, http.StatusInternalServerError, "certificado inválido o ausente")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
