package facturacion

import (
	"context"
	"errors"
	"testing"

	"facturante.ar/internal/arca"
)

type stubConsulta struct {
	dummy  arca.DummyStatus
	ultimo int64
	err    error

	gotPtoVta int
	gotTipo   int
	gotNumero int64
}

func (s *stubConsulta) Dummy(ctx context.Context) (arca.DummyStatus, error) {
	return s.dummy, s.err
}

func (s *stubConsulta) UltimoAutorizado(ctx context.Context, ptoVta, cbteTipo int) (int64, error) {
	s.gotPtoVta, s.gotTipo = ptoVta, cbteTipo
	return s.ultimo, s.err
}

func (s *stubConsulta) ConsultarComprobante(ctx context.Context, ptoVta, cbteTipo int, numero int64) (arca.ComprobanteConsulta, error) {
	s.gotPtoVta, s.gotTipo, s.gotNumero = ptoVta, cbteTipo, numero
	if s.err != nil {
		return arca.ComprobanteConsulta{}, s.err
	}
	return arca.ComprobanteConsulta{TipoCbte: cbteTipo, PuntoVenta: ptoVta, Numero: numero, CAE: "75000000000001"}, nil
}

func (s *stubConsulta) TiposComprobante(ctx context.Context) ([]arca.Parametro, error) { return nil, s.err }
func (s *stubConsulta) TiposDocumento(ctx context.Context) ([]arca.Parametro, error)   { return nil, s.err }
func (s *stubConsulta) TiposIva(ctx context.Context) ([]arca.Parametro, error)         { return nil, s.err }
func (s *stubConsulta) TiposConcepto(ctx context.Context) ([]arca.Parametro, error)    { return nil, s.err }
func (s *stubConsulta) TiposMoneda(ctx context.Context) ([]arca.Moneda, error)         { return nil, s.err }
func (s *stubConsulta) CotizacionMoneda(ctx context.Context, monID string) (arca.Cotizacion, error) {
	return arca.Cotizacion{}, s.err
}
func (s *stubConsulta) PuntosVenta(ctx context.Context) ([]arca.PuntoVentaInfo, error) {
	return nil, s.err
}

func newTestConsultas(t *testing.T, stub *stubConsulta) (*Consultas, Empresa, PuntoVenta) {
	t.Helper()
	store := NewInMemory()
	empresa := store.PutEmpresa(Empresa{RazonSocial: "Empresa Test SA", CUIT: "20409378472"})
	pv := store.PutPuntoVenta(PuntoVenta{EmpresaID: empresa.ID, Numero: 4, Activo: true})
	svc := NewConsultas(store, stubTickets{}, stubCerts{},
		WithConsultaFactory(func(arca.Ambiente, arca.Ticket, string) Consulta { return stub }))
	return svc, empresa, pv
}

func TestConsultasUltimoAutorizado(t *testing.T) {
	stub := &stubConsulta{ultimo: 41}
	svc, empresa, pv := newTestConsultas(t, stub)

	nro, err := svc.UltimoAutorizado(context.Background(), empresa.ID, pv.ID, 6)
	if err != nil {
		t.Fatalf("UltimoAutorizado: %v", err)
	}
	if nro != 41 {
		t.Fatalf("nro = %d, want 41", nro)
	}
	if stub.gotPtoVta != pv.Numero || stub.gotTipo != 6 {
		t.Fatalf("consulta llamada con (%d, %d), want (%d, 6)", stub.gotPtoVta, stub.gotTipo, pv.Numero)
	}
}

func TestConsultasUltimoAutorizadoForeignPuntoVenta(t *testing.T) {
	svc, _, pv := newTestConsultas(t, &stubConsulta{})

	_, err := svc.UltimoAutorizado(context.Background(), "otra-empresa", pv.ID, 6)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestConsultasComprobanteEmitido(t *testing.T) {
	stub := &stubConsulta{}
	svc, empresa, pv := newTestConsultas(t, stub)

	info, err := svc.ComprobanteEmitido(context.Background(), empresa.ID, pv.ID, 6, 10)
	if err != nil {
		t.Fatalf("ComprobanteEmitido: %v", err)
	}
	if info.CAE != "75000000000001" {
		t.Fatalf("CAE = %q", info.CAE)
	}
	if stub.gotNumero != 10 {
		t.Fatalf("numero = %d, want 10", stub.gotNumero)
	}
}

func TestConsultasEstado(t *testing.T) {
	stub := &stubConsulta{dummy: arca.DummyStatus{AppServer: "OK", DbServer: "OK", AuthServer: "OK"}}
	svc, empresa, _ := newTestConsultas(t, stub)

	st, err := svc.Estado(context.Background(), empresa.ID)
	if err != nil {
		t.Fatalf("Estado: %v", err)
	}
	if st.AppServer != "OK" {
		t.Fatalf("AppServer = %q", st.AppServer)
	}
}

func TestConsultasClienteUnknownEmpresa(t *testing.T) {
	svc, _, _ := newTestConsultas(t, &stubConsulta{})

	_, err := svc.Cliente(context.Background(), "no-existe")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
