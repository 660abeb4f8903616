package arca

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"facturante.ar/internal/cuit"
	"facturante.ar/internal/obs"
)

const wsfeNamespace = "http://ar.gov.afip.dif.FEV1/"

// WSFEClient talks to the WSFEv1 electronic invoicing webservice. Every
// authenticated call carries the (token, sign, cuit) triple from the access
// ticket given at construction.
type WSFEClient struct {
	ambiente Ambiente
	soap     *soapClient
	auth     wireAuth
}

// WSFEOption configures the client.
type WSFEOption func(*WSFEClient)

// WithWSFEEndpoint overrides the environment endpoint, mainly for tests.
func WithWSFEEndpoint(url string) WSFEOption {
	return func(c *WSFEClient) { c.soap.endpoint = url }
}

// WithWSFEHTTPClient overrides the HTTP client.
func WithWSFEHTTPClient(hc *http.Client) WSFEOption {
	return func(c *WSFEClient) { c.soap.http = hc }
}

// NewWSFEClient creates a client bound to one ticket and issuer CUIT.
func NewWSFEClient(ambiente Ambiente, ticket Ticket, taxID string, opts ...WSFEOption) *WSFEClient {
	c := &WSFEClient{
		ambiente: ambiente,
		soap:     newSOAPClient(ambiente.WSFEEndpoint(), nil),
		auth: wireAuth{
			Token: ticket.Token,
			Sign:  ticket.Sign,
			Cuit:  cuit.Clean(taxID),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call runs one operation, records metrics and maps transport faults onto the
// error taxonomy: SOAP fault or undecodable response -> KindService, network
// failure -> KindConnection (set by the transport).
func (c *WSFEClient) call(ctx context.Context, op string, payload, out any) error {
	start := time.Now()
	err := c.soap.call(ctx, wsfeNamespace+op, payload, out)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	obs.ObserveArcaCall("wsfe", op, outcome, time.Since(start))

	if err == nil {
		return nil
	}
	var fault *faultError
	switch {
	case KindOf(err) != 0:
		return err
	case errors.As(err, &fault):
		return svcErr(fault.code, fault, "%s fault: %s", op, fault.reason)
	default:
		return svcErr("", err, "%s: %v", op, err)
	}
}

// money renders an amount with the two decimals the protocol requires,
// rounding half away from zero at this boundary only.
func money(d decimal.Decimal) string { return d.StringFixed(2) }

// Wire shapes. Repeatable remote elements are declared as slices so a
// response carrying one element or many decodes into the same uniform list.

type wireAuth struct {
	Token string `xml:"Token"`
	Sign  string `xml:"Sign"`
	Cuit  string `xml:"Cuit"`
}

type wireCodeMsg struct {
	Code int    `xml:"Code"`
	Msg  string `xml:"Msg"`
}

type wireErrors struct {
	Err []wireCodeMsg `xml:"Err"`
}

type wireObservaciones struct {
	Obs []wireCodeMsg `xml:"Obs"`
}

// FEDummy --------------------------------------------------------------------

type feDummyRequest struct {
	XMLName xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FEDummy"`
}

type feDummyResponse struct {
	XMLName xml.Name `xml:"FEDummyResponse"`
	Result  struct {
		AppServer  string `xml:"AppServer"`
		DbServer   string `xml:"DbServer"`
		AuthServer string `xml:"AuthServer"`
	} `xml:"FEDummyResult"`
}

// Dummy probes service availability. It needs no authentication.
func (c *WSFEClient) Dummy(ctx context.Context) (DummyStatus, error) {
	var resp feDummyResponse
	if err := c.call(ctx, "FEDummy", feDummyRequest{}, &resp); err != nil {
		return DummyStatus{}, err
	}
	return DummyStatus{
		AppServer:  resp.Result.AppServer,
		DbServer:   resp.Result.DbServer,
		AuthServer: resp.Result.AuthServer,
	}, nil
}

// FECompUltimoAutorizado -----------------------------------------------------

type feUltimoRequest struct {
	XMLName  xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FECompUltimoAutorizado"`
	Auth     wireAuth `xml:"Auth"`
	PtoVta   int      `xml:"PtoVta"`
	CbteTipo int      `xml:"CbteTipo"`
}

type feUltimoResponse struct {
	XMLName xml.Name `xml:"FECompUltimoAutorizadoResponse"`
	Result  struct {
		PtoVta   int        `xml:"PtoVta"`
		CbteTipo int        `xml:"CbteTipo"`
		CbteNro  int64      `xml:"CbteNro"`
		Errors   wireErrors `xml:"Errors"`
	} `xml:"FECompUltimoAutorizadoResult"`
}

// UltimoAutorizado returns the last authorized comprobante number for a point
// of sale and type. A business error embedded in the response raises a
// KindService error carrying the remote code.
func (c *WSFEClient) UltimoAutorizado(ctx context.Context, ptoVta, cbteTipo int) (int64, error) {
	var out feUltimoResponse
	req := feUltimoRequest{Auth: c.auth, PtoVta: ptoVta, CbteTipo: cbteTipo}
	if err := c.call(ctx, "FECompUltimoAutorizado", req, &out); err != nil {
		return 0, err
	}
	if err := remoteError(out.Result.Errors, "query last authorized number"); err != nil {
		return 0, err
	}
	return out.Result.CbteNro, nil
}

// FECAESolicitar -------------------------------------------------------------

type feCAESolicitarRequest struct {
	XMLName  xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FECAESolicitar"`
	Auth     wireAuth `xml:"Auth"`
	FeCAEReq feCAEReq `xml:"FeCAEReq"`
}

type feCAEReq struct {
	FeCabReq feCabReq   `xml:"FeCabReq"`
	FeDetReq []feDetReq `xml:"FeDetReq>FECAEDetRequest"`
}

type feCabReq struct {
	CantReg  int `xml:"CantReg"`
	PtoVta   int `xml:"PtoVta"`
	CbteTipo int `xml:"CbteTipo"`
}

type feDetReq struct {
	Concepto     int            `xml:"Concepto"`
	DocTipo      int            `xml:"DocTipo"`
	DocNro       int64          `xml:"DocNro"`
	CbteDesde    int64          `xml:"CbteDesde"`
	CbteHasta    int64          `xml:"CbteHasta"`
	CbteFch      string         `xml:"CbteFch"`
	ImpTotal     string         `xml:"ImpTotal"`
	ImpTotConc   string         `xml:"ImpTotConc"`
	ImpNeto      string         `xml:"ImpNeto"`
	ImpOpEx      string         `xml:"ImpOpEx"`
	ImpTrib      string         `xml:"ImpTrib"`
	ImpIVA       string         `xml:"ImpIVA"`
	FchServDesde string         `xml:"FchServDesde,omitempty"`
	FchServHasta string         `xml:"FchServHasta,omitempty"`
	FchVtoPago   string         `xml:"FchVtoPago,omitempty"`
	MonID        string         `xml:"MonId"`
	MonCotiz     string         `xml:"MonCotiz"`
	Tributos     *wireTributos  `xml:"Tributos,omitempty"`
	Iva          *wireAlicuotas `xml:"Iva,omitempty"`
}

type wireAlicuotas struct {
	AlicIva []wireAlicIva `xml:"AlicIva"`
}

type wireAlicIva struct {
	ID      int    `xml:"Id"`
	BaseImp string `xml:"BaseImp"`
	Importe string `xml:"Importe"`
}

type wireTributos struct {
	Tributo []wireTributo `xml:"Tributo"`
}

type wireTributo struct {
	ID      int    `xml:"Id"`
	Desc    string `xml:"Desc"`
	BaseImp string `xml:"BaseImp"`
	Alic    string `xml:"Alic"`
	Importe string `xml:"Importe"`
}

type feCAESolicitarResponse struct {
	XMLName xml.Name `xml:"FECAESolicitarResponse"`
	Result  struct {
		FeCabResp struct {
			Resultado string `xml:"Resultado"`
		} `xml:"FeCabResp"`
		FeDetResp struct {
			Det []feCAEDetResponse `xml:"FECAEDetResponse"`
		} `xml:"FeDetResp"`
		Errors wireErrors `xml:"Errors"`
	} `xml:"FECAESolicitarResult"`
}

type feCAEDetResponse struct {
	Concepto      int               `xml:"Concepto"`
	DocTipo       int               `xml:"DocTipo"`
	DocNro        int64             `xml:"DocNro"`
	CbteDesde     int64             `xml:"CbteDesde"`
	CbteHasta     int64             `xml:"CbteHasta"`
	CbteFch       string            `xml:"CbteFch"`
	Resultado     string            `xml:"Resultado"`
	CAE           string            `xml:"CAE"`
	CAEFchVto     string            `xml:"CAEFchVto"`
	Observaciones wireObservaciones `xml:"Observaciones"`
}

// SolicitarCAE requests an authorization code (CAE) for one comprobante.
// A rejected comprobante raises a KindValidation error listing every remote
// error and observation, errors first; the response is never returned as a
// success in that case.
func (c *WSFEClient) SolicitarCAE(ctx context.Context, req ComprobanteRequest) (CAEResponse, error) {
	det := feDetReq{
		Concepto:   req.Concepto,
		DocTipo:    req.DocTipo,
		DocNro:     req.DocNro,
		CbteDesde:  req.CbteDesde,
		CbteHasta:  req.CbteHasta,
		CbteFch:    req.CbteFch,
		ImpTotal:   money(req.ImpTotal),
		ImpTotConc: money(req.ImpTotConc),
		ImpNeto:    money(req.ImpNeto),
		ImpOpEx:    money(req.ImpOpEx),
		ImpTrib:    money(req.ImpTrib),
		ImpIVA:     money(req.ImpIVA),
		MonID:      req.MonID,
		MonCotiz:   req.MonCotiz.String(),
	}

	// Service-period and payment-due dates travel only for service or mixed
	// concepts.
	if req.Concepto == ConceptoServicios || req.Concepto == ConceptoAmbos {
		det.FchServDesde = req.FchServDesde
		det.FchServHasta = req.FchServHasta
		det.FchVtoPago = req.FchVtoPago
	}

	det.Iva = buildAlicuotas(req)

	if len(req.Tributos) > 0 {
		wt := &wireTributos{}
		for _, t := range req.Tributos {
			wt.Tributo = append(wt.Tributo, wireTributo{
				ID:      t.ID,
				Desc:    t.Desc,
				BaseImp: money(t.BaseImp),
				Alic:    t.Alic.String(),
				Importe: money(t.Importe),
			})
		}
		det.Tributos = wt
	}

	payload := feCAESolicitarRequest{
		Auth: c.auth,
		FeCAEReq: feCAEReq{
			FeCabReq: feCabReq{CantReg: 1, PtoVta: req.PuntoVenta, CbteTipo: req.TipoCbte},
			FeDetReq: []feDetReq{det},
		},
	}

	var out feCAESolicitarResponse
	if err := c.call(ctx, "FECAESolicitar", payload, &out); err != nil {
		return CAEResponse{}, err
	}
	return c.parseCAEResponse(out, req)
}

// buildAlicuotas keeps only lines with a non-zero rate id meaningfully set;
// when none remain a synthetic 0% line over the untaxed base is added so the
// service always receives at least one tax line.
func buildAlicuotas(req ComprobanteRequest) *wireAlicuotas {
	wa := &wireAlicuotas{}
	for _, item := range req.Iva {
		if item.ID == IvaID0 && item.Importe.IsZero() && item.BaseImp.IsZero() {
			continue
		}
		wa.AlicIva = append(wa.AlicIva, wireAlicIva{
			ID:      item.ID,
			BaseImp: money(item.BaseImp),
			Importe: money(item.Importe),
		})
	}
	if len(wa.AlicIva) == 0 {
		base := req.ImpTotConc.Add(req.ImpOpEx)
		if base.IsZero() {
			base = req.ImpTotal
		}
		wa.AlicIva = append(wa.AlicIva, wireAlicIva{
			ID:      IvaID0,
			BaseImp: money(base),
			Importe: money(decimal.Zero),
		})
	}
	return wa
}

func (c *WSFEClient) parseCAEResponse(out feCAESolicitarResponse, req ComprobanteRequest) (CAEResponse, error) {
	if len(out.Result.FeDetResp.Det) == 0 {
		return CAEResponse{}, svcErr("", nil, "FECAESolicitar: response has no detail entry")
	}
	det := out.Result.FeDetResp.Det[0]

	resp := CAEResponse{
		CAE:        det.CAE,
		CAEFchVto:  det.CAEFchVto,
		CbteNro:    req.CbteDesde,
		TipoCbte:   req.TipoCbte,
		PuntoVenta: req.PuntoVenta,
		Resultado:  det.Resultado,
	}
	for _, o := range det.Observaciones.Obs {
		resp.Observaciones = append(resp.Observaciones, Observacion{Code: o.Code, Msg: o.Msg})
	}
	for _, e := range out.Result.Errors.Err {
		resp.Errores = append(resp.Errores, Observacion{Code: e.Code, Msg: e.Msg})
	}

	if det.Resultado == "R" {
		var msgs []string
		for _, e := range resp.Errores {
			msgs = append(msgs, fmt.Sprintf("[%d] %s", e.Code, e.Msg))
		}
		for _, o := range resp.Observaciones {
			msgs = append(msgs, fmt.Sprintf("[%d] %s", o.Code, o.Msg))
		}
		obs.Log("comprobante rechazado", map[string]any{
			"pto_vta": req.PuntoVenta,
			"tipo":    req.TipoCbte,
			"nro":     req.CbteDesde,
			"motivos": strings.Join(msgs, "; "),
		})
		return CAEResponse{}, validationErr("comprobante rechazado: %s", strings.Join(msgs, "; "))
	}
	return resp, nil
}

// FECompConsultar ------------------------------------------------------------

type feConsultarRequest struct {
	XMLName       xml.Name          `xml:"http://ar.gov.afip.dif.FEV1/ FECompConsultar"`
	Auth          wireAuth          `xml:"Auth"`
	FeCompConsReq feCompConsultaReq `xml:"FeCompConsReq"`
}

type feCompConsultaReq struct {
	CbteTipo int   `xml:"CbteTipo"`
	CbteNro  int64 `xml:"CbteNro"`
	PtoVta   int   `xml:"PtoVta"`
}

type feConsultarResponse struct {
	XMLName xml.Name `xml:"FECompConsultarResponse"`
	Result  struct {
		ResultGet struct {
			PtoVta          int             `xml:"PtoVta"`
			CbteTipo        int             `xml:"CbteTipo"`
			CbteDesde       int64           `xml:"CbteDesde"`
			CbteFch         string          `xml:"CbteFch"`
			CodAutorizacion string          `xml:"CodAutorizacion"`
			FchVto          string          `xml:"FchVto"`
			FchProceso      string          `xml:"FchProceso"`
			ImpTotal        decimal.Decimal `xml:"ImpTotal"`
			ImpNeto         decimal.Decimal `xml:"ImpNeto"`
			ImpIVA          decimal.Decimal `xml:"ImpIVA"`
			ImpOpEx         decimal.Decimal `xml:"ImpOpEx"`
			ImpTotConc      decimal.Decimal `xml:"ImpTotConc"`
			ImpTrib         decimal.Decimal `xml:"ImpTrib"`
			MonID           string          `xml:"MonId"`
			MonCotiz        decimal.Decimal `xml:"MonCotiz"`
			DocTipo         int             `xml:"DocTipo"`
			DocNro          int64           `xml:"DocNro"`
			EmisorCUIT      string          `xml:"CuitEmisor"`
			Resultado       string          `xml:"Resultado"`
		} `xml:"ResultGet"`
		Errors wireErrors `xml:"Errors"`
	} `xml:"FECompConsultarResult"`
}

// ConsultarComprobante fetches a previously issued comprobante. An embedded
// business error on a successful transport still raises KindService with the
// remote code.
func (c *WSFEClient) ConsultarComprobante(ctx context.Context, ptoVta, cbteTipo int, numero int64) (ComprobanteConsulta, error) {
	req := feConsultarRequest{
		Auth:          c.auth,
		FeCompConsReq: feCompConsultaReq{CbteTipo: cbteTipo, CbteNro: numero, PtoVta: ptoVta},
	}
	var out feConsultarResponse
	if err := c.call(ctx, "FECompConsultar", req, &out); err != nil {
		return ComprobanteConsulta{}, err
	}
	if err := remoteError(out.Result.Errors, "query comprobante"); err != nil {
		return ComprobanteConsulta{}, err
	}

	rg := out.Result.ResultGet
	emisor := rg.EmisorCUIT
	if emisor == "" {
		emisor = c.auth.Cuit
	}
	return ComprobanteConsulta{
		PuntoVenta: rg.PtoVta,
		TipoCbte:   rg.CbteTipo,
		Numero:     rg.CbteDesde,
		CuitEmisor: emisor,
		CAE:        rg.CodAutorizacion,
		CAEFchVto:  rg.FchVto,
		CbteFch:    rg.CbteFch,
		FchProceso: rg.FchProceso,
		ImpTotal:   rg.ImpTotal,
		ImpNeto:    rg.ImpNeto,
		ImpIVA:     rg.ImpIVA,
		ImpOpEx:    rg.ImpOpEx,
		ImpTotConc: rg.ImpTotConc,
		ImpTrib:    rg.ImpTrib,
		MonID:      rg.MonID,
		MonCotiz:   rg.MonCotiz,
		DocTipo:    rg.DocTipo,
		DocNro:     rg.DocNro,
		Resultado:  rg.Resultado,
	}, nil
}

// remoteError converts an embedded error list into a KindService error
// preserving the first remote code.
func remoteError(errs wireErrors, during string) error {
	if len(errs.Err) == 0 {
		return nil
	}
	first := errs.Err[0]
	return svcErr(strconv.Itoa(first.Code), nil, "%s: %s", during, first.Msg)
}
