package arca

import (
	"context"
	"encoding/xml"

	"github.com/shopspring/decimal"
)

// Reference-table getters. Each one performs the same slice normalization as
// the operational calls and wraps any failure as a KindService error naming
// the table being fetched.

type wireParamItem struct {
	ID       int    `xml:"Id"`
	Desc     string `xml:"Desc"`
	FchDesde string `xml:"FchDesde"`
	FchHasta string `xml:"FchHasta"`
}

func toParametros(items []wireParamItem) []Parametro {
	out := make([]Parametro, 0, len(items))
	for _, it := range items {
		out = append(out, Parametro{ID: it.ID, Desc: it.Desc, FchDesde: it.FchDesde, FchHasta: it.FchHasta})
	}
	return out
}

func (c *WSFEClient) paramCall(ctx context.Context, op, table string, payload, out any) error {
	if err := c.call(ctx, op, payload, out); err != nil {
		if ae, ok := err.(*Error); ok && ae.Kind == KindService {
			return err
		}
		return svcErr("", err, "fetch %s table", table)
	}
	return nil
}

// FEParamGetTiposCbte --------------------------------------------------------

type feTiposCbteRequest struct {
	XMLName xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FEParamGetTiposCbte"`
	Auth    wireAuth `xml:"Auth"`
}

type feTiposCbteResponse struct {
	XMLName xml.Name `xml:"FEParamGetTiposCbteResponse"`
	Result  struct {
		ResultGet struct {
			CbteTipo []wireParamItem `xml:"CbteTipo"`
		} `xml:"ResultGet"`
		Errors wireErrors `xml:"Errors"`
	} `xml:"FEParamGetTiposCbteResult"`
}

// TiposComprobante returns the available comprobante types.
func (c *WSFEClient) TiposComprobante(ctx context.Context) ([]Parametro, error) {
	var out feTiposCbteResponse
	if err := c.paramCall(ctx, "FEParamGetTiposCbte", "tipos de comprobante", feTiposCbteRequest{Auth: c.auth}, &out); err != nil {
		return nil, err
	}
	if err := remoteError(out.Result.Errors, "fetch tipos de comprobante table"); err != nil {
		return nil, err
	}
	return toParametros(out.Result.ResultGet.CbteTipo), nil
}

// FEParamGetTiposDoc ---------------------------------------------------------

type feTiposDocRequest struct {
	XMLName xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FEParamGetTiposDoc"`
	Auth    wireAuth `xml:"Auth"`
}

type feTiposDocResponse struct {
	XMLName xml.Name `xml:"FEParamGetTiposDocResponse"`
	Result  struct {
		ResultGet struct {
			DocTipo []wireParamItem `xml:"DocTipo"`
		} `xml:"ResultGet"`
		Errors wireErrors `xml:"Errors"`
	} `xml:"FEParamGetTiposDocResult"`
}

// TiposDocumento returns the available recipient document types.
func (c *WSFEClient) TiposDocumento(ctx context.Context) ([]Parametro, error) {
	var out feTiposDocResponse
	if err := c.paramCall(ctx, "FEParamGetTiposDoc", "tipos de documento", feTiposDocRequest{Auth: c.auth}, &out); err != nil {
		return nil, err
	}
	if err := remoteError(out.Result.Errors, "fetch tipos de documento table"); err != nil {
		return nil, err
	}
	return toParametros(out.Result.ResultGet.DocTipo), nil
}

// FEParamGetTiposIva ---------------------------------------------------------

type feTiposIvaRequest struct {
	XMLName xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FEParamGetTiposIva"`
	Auth    wireAuth `xml:"Auth"`
}

type feTiposIvaResponse struct {
	XMLName xml.Name `xml:"FEParamGetTiposIvaResponse"`
	Result  struct {
		ResultGet struct {
			IvaTipo []wireParamItem `xml:"IvaTipo"`
		} `xml:"ResultGet"`
		Errors wireErrors `xml:"Errors"`
	} `xml:"FEParamGetTiposIvaResult"`
}

// TiposIva returns the available IVA rate ids.
func (c *WSFEClient) TiposIva(ctx context.Context) ([]Parametro, error) {
	var out feTiposIvaResponse
	if err := c.paramCall(ctx, "FEParamGetTiposIva", "tipos de IVA", feTiposIvaRequest{Auth: c.auth}, &out); err != nil {
		return nil, err
	}
	if err := remoteError(out.Result.Errors, "fetch tipos de IVA table"); err != nil {
		return nil, err
	}
	return toParametros(out.Result.ResultGet.IvaTipo), nil
}

// FEParamGetTiposConcepto ----------------------------------------------------

type feTiposConceptoRequest struct {
	XMLName xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FEParamGetTiposConcepto"`
	Auth    wireAuth `xml:"Auth"`
}

type feTiposConceptoResponse struct {
	XMLName xml.Name `xml:"FEParamGetTiposConceptoResponse"`
	Result  struct {
		ResultGet struct {
			ConceptoTipo []wireParamItem `xml:"ConceptoTipo"`
		} `xml:"ResultGet"`
		Errors wireErrors `xml:"Errors"`
	} `xml:"FEParamGetTiposConceptoResult"`
}

// TiposConcepto returns the available concept types.
func (c *WSFEClient) TiposConcepto(ctx context.Context) ([]Parametro, error) {
	var out feTiposConceptoResponse
	if err := c.paramCall(ctx, "FEParamGetTiposConcepto", "tipos de concepto", feTiposConceptoRequest{Auth: c.auth}, &out); err != nil {
		return nil, err
	}
	if err := remoteError(out.Result.Errors, "fetch tipos de concepto table"); err != nil {
		return nil, err
	}
	return toParametros(out.Result.ResultGet.ConceptoTipo), nil
}

// FEParamGetTiposMonedas -----------------------------------------------------

type feTiposMonedasRequest struct {
	XMLName xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FEParamGetTiposMonedas"`
	Auth    wireAuth `xml:"Auth"`
}

type wireMoneda struct {
	ID       string `xml:"Id"`
	Desc     string `xml:"Desc"`
	FchDesde string `xml:"FchDesde"`
	FchHasta string `xml:"FchHasta"`
}

type feTiposMonedasResponse struct {
	XMLName xml.Name `xml:"FEParamGetTiposMonedasResponse"`
	Result  struct {
		ResultGet struct {
			Moneda []wireMoneda `xml:"Moneda"`
		} `xml:"ResultGet"`
		Errors wireErrors `xml:"Errors"`
	} `xml:"FEParamGetTiposMonedasResult"`
}

// TiposMoneda returns the available currencies.
func (c *WSFEClient) TiposMoneda(ctx context.Context) ([]Moneda, error) {
	var out feTiposMonedasResponse
	if err := c.paramCall(ctx, "FEParamGetTiposMonedas", "monedas", feTiposMonedasRequest{Auth: c.auth}, &out); err != nil {
		return nil, err
	}
	if err := remoteError(out.Result.Errors, "fetch monedas table"); err != nil {
		return nil, err
	}
	res := make([]Moneda, 0, len(out.Result.ResultGet.Moneda))
	for _, m := range out.Result.ResultGet.Moneda {
		res = append(res, Moneda{ID: m.ID, Desc: m.Desc, FchDesde: m.FchDesde, FchHasta: m.FchHasta})
	}
	return res, nil
}

// FEParamGetCotizacion -------------------------------------------------------

type feCotizacionRequest struct {
	XMLName xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FEParamGetCotizacion"`
	Auth    wireAuth `xml:"Auth"`
	MonID   string   `xml:"MonId"`
}

type feCotizacionResponse struct {
	XMLName xml.Name `xml:"FEParamGetCotizacionResponse"`
	Result  struct {
		ResultGet struct {
			MonID    string          `xml:"MonId"`
			MonCotiz decimal.Decimal `xml:"MonCotiz"`
			FchCotiz string          `xml:"FchCotiz"`
		} `xml:"ResultGet"`
		Errors wireErrors `xml:"Errors"`
	} `xml:"FEParamGetCotizacionResult"`
}

// CotizacionMoneda returns the current quote for a currency code.
func (c *WSFEClient) CotizacionMoneda(ctx context.Context, monID string) (Cotizacion, error) {
	var out feCotizacionResponse
	req := feCotizacionRequest{Auth: c.auth, MonID: monID}
	if err := c.paramCall(ctx, "FEParamGetCotizacion", "cotizacion", req, &out); err != nil {
		return Cotizacion{}, err
	}
	if err := remoteError(out.Result.Errors, "fetch cotizacion"); err != nil {
		return Cotizacion{}, err
	}
	rg := out.Result.ResultGet
	return Cotizacion{MonID: rg.MonID, MonCotiz: rg.MonCotiz, FchCotiz: rg.FchCotiz}, nil
}

// FEParamGetPtosVenta --------------------------------------------------------

type fePtosVentaRequest struct {
	XMLName xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FEParamGetPtosVenta"`
	Auth    wireAuth `xml:"Auth"`
}

type wirePtoVenta struct {
	Nro         int    `xml:"Nro"`
	EmisionTipo string `xml:"EmisionTipo"`
	Bloqueado   string `xml:"Bloqueado"`
	FchBaja     string `xml:"FchBaja"`
}

type fePtosVentaResponse struct {
	XMLName xml.Name `xml:"FEParamGetPtosVentaResponse"`
	Result  struct {
		ResultGet struct {
			PtoVenta []wirePtoVenta `xml:"PtoVenta"`
		} `xml:"ResultGet"`
		Errors wireErrors `xml:"Errors"`
	} `xml:"FEParamGetPtosVentaResult"`
}

// PuntosVenta returns the points of sale enabled for the issuer.
func (c *WSFEClient) PuntosVenta(ctx context.Context) ([]PuntoVentaInfo, error) {
	var out fePtosVentaResponse
	if err := c.paramCall(ctx, "FEParamGetPtosVenta", "puntos de venta", fePtosVentaRequest{Auth: c.auth}, &out); err != nil {
		return nil, err
	}
	if err := remoteError(out.Result.Errors, "fetch puntos de venta table"); err != nil {
		return nil, err
	}
	res := make([]PuntoVentaInfo, 0, len(out.Result.ResultGet.PtoVenta))
	for _, p := range out.Result.ResultGet.PtoVenta {
		res = append(res, PuntoVentaInfo{Nro: p.Nro, EmisionTipo: p.EmisionTipo, Bloqueado: p.Bloqueado, FchBaja: p.FchBaja})
	}
	return res, nil
}
