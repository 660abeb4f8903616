package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"facturante.ar/internal/arca"
	"facturante.ar/internal/auth"
	"facturante.ar/internal/facturacion"
)

type stubEmisor struct {
	resultado facturacion.EmisionResultado
	proximo   int64
	err       error

	gotReq facturacion.EmisionRequest
}

func (s *stubEmisor) Emitir(ctx context.Context, req facturacion.EmisionRequest) (facturacion.EmisionResultado, error) {
	s.gotReq = req
	return s.resultado, s.err
}

func (s *stubEmisor) ProximoNumero(ctx context.Context, empresaID, puntoVentaID string, tipoComprobante int) (int64, error) {
	return s.proximo, s.err
}

type stubConsultor struct {
	estado  arca.DummyStatus
	ultimo  int64
	cert    arca.CertInfo
	cliente facturacion.Consulta
	err     error
}

func (s *stubConsultor) Cliente(ctx context.Context, empresaID string) (facturacion.Consulta, error) {
	return s.cliente, s.err
}

func (s *stubConsultor) Estado(ctx context.Context, empresaID string) (arca.DummyStatus, error) {
	return s.estado, s.err
}

func (s *stubConsultor) Certificado(ctx context.Context, empresaID string) (arca.CertInfo, error) {
	return s.cert, s.err
}

func (s *stubConsultor) UltimoAutorizado(ctx context.Context, empresaID, puntoVentaID string, tipoComprobante int) (int64, error) {
	return s.ultimo, s.err
}

func (s *stubConsultor) ComprobanteEmitido(ctx context.Context, empresaID, puntoVentaID string, tipoComprobante int, numero int64) (arca.ComprobanteConsulta, error) {
	if s.err != nil {
		return arca.ComprobanteConsulta{}, s.err
	}
	return arca.ComprobanteConsulta{TipoCbte: tipoComprobante, Numero: numero, CAE: "75000000000001"}, nil
}

type paramCliente struct {
	tipos []arca.Parametro
	err   error
}

func (p paramCliente) Dummy(ctx context.Context) (arca.DummyStatus, error) {
	return arca.DummyStatus{}, p.err
}
func (p paramCliente) UltimoAutorizado(ctx context.Context, ptoVta, cbteTipo int) (int64, error) {
	return 0, p.err
}
func (p paramCliente) ConsultarComprobante(ctx context.Context, ptoVta, cbteTipo int, numero int64) (arca.ComprobanteConsulta, error) {
	return arca.ComprobanteConsulta{}, p.err
}
func (p paramCliente) TiposComprobante(ctx context.Context) ([]arca.Parametro, error) {
	return p.tipos, p.err
}
func (p paramCliente) TiposDocumento(ctx context.Context) ([]arca.Parametro, error) {
	return p.tipos, p.err
}
func (p paramCliente) TiposIva(ctx context.Context) ([]arca.Parametro, error) { return p.tipos, p.err }
func (p paramCliente) TiposConcepto(ctx context.Context) ([]arca.Parametro, error) {
	return p.tipos, p.err
}
func (p paramCliente) TiposMoneda(ctx context.Context) ([]arca.Moneda, error) {
	return []arca.Moneda{{ID: "PES", Desc: "Pesos Argentinos"}}, p.err
}
func (p paramCliente) CotizacionMoneda(ctx context.Context, monID string) (arca.Cotizacion, error) {
	return arca.Cotizacion{MonID: monID, MonCotiz: decimal.NewFromInt(1)}, p.err
}
func (p paramCliente) PuntosVenta(ctx context.Context) ([]arca.PuntoVentaInfo, error) {
	return []arca.PuntoVentaInfo{{Nro: 4, EmisionTipo: "CAE"}}, p.err
}

type testEnv struct {
	api       *API
	handler   http.Handler
	store     *facturacion.InMemory
	emisor    *stubEmisor
	consultor *stubConsultor
	empresa   facturacion.Empresa
	pv        facturacion.PuntoVenta
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	// token auth stays disabled unless the test configures a secret
	auth.ResetSecretForTests()
	t.Setenv("FACT_AUTH_SECRET", "")
	t.Cleanup(auth.ResetSecretForTests)

	store := facturacion.NewInMemory()
	empresa := store.PutEmpresa(facturacion.Empresa{RazonSocial: "Empresa Test SA", CUIT: "20409378472"})
	pv := store.PutPuntoVenta(facturacion.PuntoVenta{EmpresaID: empresa.ID, Numero: 4, Activo: true})

	emisor := &stubEmisor{proximo: 1}
	consultor := &stubConsultor{cliente: paramCliente{tipos: []arca.Parametro{{ID: 6, Desc: "Factura B"}}}}

	api := New(ReadyProbe{}, "test", store, emisor, consultor)
	return &testEnv{
		api:       api,
		handler:   api.Handler(),
		store:     store,
		emisor:    emisor,
		consultor: consultor,
		empresa:   empresa,
		pv:        pv,
	}
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["service"] != "facturante-api" || body["version"] != "test" {
		t.Fatalf("body = %v", body)
	}
}

func TestReadyWithoutDB(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRootNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodGet, "/healthz", "")
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("X-Request-Id header missing")
	}
}

func TestComprobantesCollectionMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodGet, "/v1/comprobantes", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Allow"); got != http.MethodPost {
		t.Fatalf("Allow = %q", got)
	}
}
