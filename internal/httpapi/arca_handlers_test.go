package httpapi

import (
	"net/http"
	"testing"

	"facturante.ar/internal/arca"
)

func TestEstado(t *testing.T) {
	env := newTestEnv(t)
	env.consultor.estado = arca.DummyStatus{AppServer: "OK", DbServer: "OK", AuthServer: "OK"}

	rec := doJSON(t, env.handler, http.MethodGet, "/v1/arca/estado?empresa_id="+env.empresa.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var st arca.DummyStatus
	decodeBody(t, rec, &st)
	if st.AppServer != "OK" || st.DbServer != "OK" {
		t.Fatalf("estado = %+v", st)
	}
}

func TestEstadoUpstreamDown(t *testing.T) {
	env := newTestEnv(t)
	env.consultor.err = &arca.Error{Kind: arca.KindConnection, Msg: "dial tcp: timeout"}

	rec := doJSON(t, env.handler, http.MethodGet, "/v1/arca/estado?empresa_id="+env.empresa.ID, "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCertificadoEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.consultor.cert = arca.CertInfo{Subject: "CN=facturante", SerialNumber: "1b"}

	rec := doJSON(t, env.handler, http.MethodGet, "/v1/arca/certificado?empresa_id="+env.empresa.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var info arca.CertInfo
	decodeBody(t, rec, &info)
	if info.Subject != "CN=facturante" {
		t.Fatalf("info = %+v", info)
	}
}

func TestUltimoAutorizadoEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.consultor.ultimo = 58

	rec := doJSON(t, env.handler, http.MethodGet,
		"/v1/arca/ultimo-autorizado?empresa_id="+env.empresa.ID+"&punto_venta_id="+env.pv.ID+"&tipo=6", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["ultimo_autorizado"].(float64) != 58 {
		t.Fatalf("body = %v", body)
	}
}

func TestUltimoAutorizadoMissingParams(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodGet,
		"/v1/arca/ultimo-autorizado?empresa_id="+env.empresa.ID, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestComprobanteRemoto(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodGet,
		"/v1/arca/comprobantes?empresa_id="+env.empresa.ID+"&punto_venta_id="+env.pv.ID+"&tipo=6&numero=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var info arca.ComprobanteConsulta
	decodeBody(t, rec, &info)
	if info.Numero != 10 || info.CAE != "75000000000001" {
		t.Fatalf("info = %+v", info)
	}
}

func TestParametrosTiposComprobante(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodGet,
		"/v1/arca/parametros/tipos-comprobante?empresa_id="+env.empresa.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res parametrosResponse
	decodeBody(t, rec, &res)
	if res.Tabla != "tipos-comprobante" {
		t.Fatalf("tabla = %q", res.Tabla)
	}
	items, ok := res.Items.([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("items = %v", res.Items)
	}
}

func TestParametrosCotizacionRequiresMoneda(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodGet,
		"/v1/arca/parametros/cotizacion?empresa_id="+env.empresa.ID, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = doJSON(t, env.handler, http.MethodGet,
		"/v1/arca/parametros/cotizacion?empresa_id="+env.empresa.ID+"&moneda=DOL", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestParametrosTablaDesconocida(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodGet,
		"/v1/arca/parametros/colores?empresa_id="+env.empresa.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
