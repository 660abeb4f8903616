package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"facturante.ar/internal/arca"
	"facturante.ar/internal/facturacion"
)

func emitirBody(empresaID, puntoVentaID string) string {
	return fmt.Sprintf(`{
		"empresa_id": %q,
		"punto_venta_id": %q,
		"tipo_comprobante": 6,
		"concepto": 1,
		"tipo_documento": 96,
		"numero_documento": "30123456",
		"razon_social": "Cliente de Prueba",
		"moneda": "PES",
		"cotizacion": "1",
		"items": [
			{"descripcion": "Servicio mensual", "cantidad": "1", "precio_unitario": "200", "descuento_porcentaje": "0", "iva_porcentaje": "21"}
		]
	}`, empresaID, puntoVentaID)
}

func TestEmitirComprobanteCreated(t *testing.T) {
	env := newTestEnv(t)
	env.emisor.resultado = facturacion.EmisionResultado{
		Exito:           true,
		ComprobanteID:   "cbe-1",
		TipoComprobante: 6,
		PuntoVenta:      4,
		Numero:          1,
		CAE:             "75123456789012",
		Total:           decimal.RequireFromString("242"),
		Mensaje:         "comprobante emitido exitosamente",
	}

	rec := doJSON(t, env.handler, http.MethodPost, "/v1/comprobantes", emitirBody(env.empresa.ID, env.pv.ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != "/v1/comprobantes/cbe-1" {
		t.Fatalf("Location = %q", got)
	}

	var res facturacion.EmisionResultado
	decodeBody(t, rec, &res)
	if !res.Exito || res.CAE != "75123456789012" {
		t.Fatalf("resultado = %+v", res)
	}
	if env.emisor.gotReq.EmpresaID != env.empresa.ID {
		t.Fatalf("empresa pasada al servicio = %q", env.emisor.gotReq.EmpresaID)
	}
}

func TestEmitirComprobanteRechazado(t *testing.T) {
	env := newTestEnv(t)
	env.emisor.resultado = facturacion.EmisionResultado{
		Exito:   false,
		Numero:  1,
		Mensaje: "la autoridad rechazó la solicitud de CAE",
		Errores: []string{"arca: validation: rechazo (code 10048)"},
	}

	rec := doJSON(t, env.handler, http.MethodPost, "/v1/comprobantes", emitirBody(env.empresa.ID, env.pv.ID))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	var res facturacion.EmisionResultado
	decodeBody(t, rec, &res)
	if res.Exito || len(res.Errores) != 1 {
		t.Fatalf("resultado = %+v", res)
	}
}

func TestEmitirComprobanteUpstreamDown(t *testing.T) {
	env := newTestEnv(t)
	env.emisor.err = &arca.Error{Kind: arca.KindConnection, Msg: "dial tcp: timeout"}

	rec := doJSON(t, env.handler, http.MethodPost, "/v1/comprobantes", emitirBody(env.empresa.ID, env.pv.ID))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestEmitirComprobanteBadBody(t *testing.T) {
	env := newTestEnv(t)

	for name, body := range map[string]string{
		"empty":         "",
		"unknown field": `{"empresa_id": "x", "punto_venta_id": "y", "tipo_comprobante": 6, "sorpresa": true}`,
		"trailing data": `{"empresa_id": "x", "punto_venta_id": "y", "tipo_comprobante": 6} {}`,
	} {
		rec := doJSON(t, env.handler, http.MethodPost, "/v1/comprobantes", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", name, rec.Code)
		}
	}
}

func TestEmitirComprobanteMissingPuntoVenta(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodPost, "/v1/comprobantes",
		fmt.Sprintf(`{"empresa_id": %q, "tipo_comprobante": 6, "items": []}`, env.empresa.ID))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetComprobante(t *testing.T) {
	env := newTestEnv(t)
	stored, err := env.store.CreateComprobante(context.Background(), facturacion.Comprobante{
		EmpresaID:       env.empresa.ID,
		PuntoVentaID:    env.pv.ID,
		TipoComprobante: 6,
		Numero:          1,
		FechaEmision:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Total:           decimal.RequireFromString("242"),
		Estado:          facturacion.EstadoAutorizado,
	}, []facturacion.ComprobanteItem{{Descripcion: "Servicio mensual", Subtotal: decimal.RequireFromString("200")}})
	if err != nil {
		t.Fatalf("seed comprobante: %v", err)
	}

	rec := doJSON(t, env.handler, http.MethodGet,
		"/v1/comprobantes/"+stored.ID+"?empresa_id="+env.empresa.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res comprobanteResponse
	decodeBody(t, rec, &res)
	if res.Comprobante.ID != stored.ID || len(res.Items) != 1 {
		t.Fatalf("response = %+v", res)
	}
}

func TestGetComprobanteUnknown(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodGet,
		"/v1/comprobantes/no-existe?empresa_id="+env.empresa.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetComprobanteForeignEmpresaHidden(t *testing.T) {
	env := newTestEnv(t)
	otra := env.store.PutEmpresa(facturacion.Empresa{RazonSocial: "Otra SA", CUIT: "30111222333"})
	stored, err := env.store.CreateComprobante(context.Background(), facturacion.Comprobante{
		EmpresaID:       env.empresa.ID,
		PuntoVentaID:    env.pv.ID,
		TipoComprobante: 6,
		Numero:          1,
		Estado:          facturacion.EstadoAutorizado,
	}, nil)
	if err != nil {
		t.Fatalf("seed comprobante: %v", err)
	}

	rec := doJSON(t, env.handler, http.MethodGet,
		"/v1/comprobantes/"+stored.ID+"?empresa_id="+otra.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProximoNumero(t *testing.T) {
	env := newTestEnv(t)
	env.emisor.proximo = 42

	rec := doJSON(t, env.handler, http.MethodGet,
		"/v1/comprobantes/proximo-numero?empresa_id="+env.empresa.ID+"&punto_venta_id="+env.pv.ID+"&tipo=6", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res proximoNumeroResponse
	decodeBody(t, rec, &res)
	if res.ProximoNumero != 42 || res.TipoComprobante != 6 {
		t.Fatalf("response = %+v", res)
	}
}

func TestProximoNumeroBadTipo(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodGet,
		"/v1/comprobantes/proximo-numero?empresa_id="+env.empresa.ID+"&punto_venta_id="+env.pv.ID+"&tipo=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCertificadosEndpoint(t *testing.T) {
	env := newTestEnv(t)
	propio := env.store.PutCertificado(facturacion.Certificado{
		EmpresaID:        env.empresa.ID,
		Nombre:           "homologacion 2026",
		CUIT:             env.empresa.CUIT,
		FechaEmision:     time.Now().AddDate(-1, 0, 0),
		FechaVencimiento: time.Now().AddDate(1, 0, 0),
		ArchivoCrt:       "20409378472.crt",
		ArchivoKey:       "20409378472.key",
		Ambiente:         "homologacion",
		Activo:           true,
	})
	otra := env.store.PutEmpresa(facturacion.Empresa{RazonSocial: "Otra SA", CUIT: "30111222333"})
	env.store.PutCertificado(facturacion.Certificado{EmpresaID: otra.ID, Nombre: "ajeno", CUIT: otra.CUIT})

	rec := doJSON(t, env.handler, http.MethodGet, "/v1/certificados?empresa_id="+env.empresa.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res certificadosResponse
	decodeBody(t, rec, &res)
	if res.EmpresaID != env.empresa.ID {
		t.Fatalf("empresa_id = %s", res.EmpresaID)
	}
	if len(res.Certificados) != 1 || res.Certificados[0].ID != propio.ID {
		t.Fatalf("certificados = %+v", res.Certificados)
	}
}

func TestCertificadosMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodPost, "/v1/certificados?empresa_id="+env.empresa.ID, "{}")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
