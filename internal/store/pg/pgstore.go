package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"facturante.ar/internal/facturacion"
	"facturante.ar/internal/ids"
)

const pgErrUniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

var _ facturacion.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Empresa(ctx context.Context, id string) (facturacion.Empresa, error) {
	var e facturacion.Empresa
	err := s.db.QueryRowContext(ctx, `
		select id, razon_social, cuit, condicion_iva, domicilio, localidad, provincia,
		       codigo_postal, coalesce(email,''), coalesce(telefono,''), inicio_actividades, created_at
		from empresas where id=$1
	`, id).Scan(&e.ID, &e.RazonSocial, &e.CUIT, &e.CondicionIVA, &e.Domicilio, &e.Localidad,
		&e.Provincia, &e.CodigoPostal, &e.Email, &e.Telefono, &e.InicioActividades, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return facturacion.Empresa{}, facturacion.ErrNotFound
	}
	if err != nil {
		return facturacion.Empresa{}, err
	}
	return e, nil
}

func (s *Store) PuntoVenta(ctx context.Context, id string) (facturacion.PuntoVenta, error) {
	var pv facturacion.PuntoVenta
	err := s.db.QueryRowContext(ctx, `
		select id, empresa_id, numero, coalesce(nombre,''), activo, created_at
		from puntos_venta where id=$1
	`, id).Scan(&pv.ID, &pv.EmpresaID, &pv.Numero, &pv.Nombre, &pv.Activo, &pv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return facturacion.PuntoVenta{}, facturacion.ErrNotFound
	}
	if err != nil {
		return facturacion.PuntoVenta{}, err
	}
	return pv, nil
}

func (s *Store) Cliente(ctx context.Context, id string) (facturacion.Cliente, error) {
	var c facturacion.Cliente
	err := s.db.QueryRowContext(ctx, `
		select id, empresa_id, razon_social, tipo_documento, numero_documento,
		       coalesce(condicion_iva,''), coalesce(domicilio,''), activo, created_at
		from clientes where id=$1
	`, id).Scan(&c.ID, &c.EmpresaID, &c.RazonSocial, &c.TipoDocumento, &c.NumeroDocumento,
		&c.CondicionIVA, &c.Domicilio, &c.Activo, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return facturacion.Cliente{}, facturacion.ErrNotFound
	}
	if err != nil {
		return facturacion.Cliente{}, err
	}
	return c, nil
}

func (s *Store) CreateCliente(ctx context.Context, c facturacion.Cliente) (facturacion.Cliente, error) {
	if c.ID == "" {
		c.ID = ids.New()
	}
	c.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		insert into clientes(id, empresa_id, razon_social, tipo_documento, numero_documento,
		                     condicion_iva, domicilio, activo, created_at)
		values ($1,$2,$3,$4,$5,nullif($6,''),nullif($7,''),$8,$9)
	`, c.ID, c.EmpresaID, c.RazonSocial, c.TipoDocumento, c.NumeroDocumento,
		c.CondicionIVA, c.Domicilio, c.Activo, c.CreatedAt)
	if err != nil {
		return facturacion.Cliente{}, err
	}
	return c, nil
}

func (s *Store) UltimoNumero(ctx context.Context, empresaID, puntoVentaID string, tipoComprobante int) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		select coalesce(max(numero), 0)
		from comprobantes
		where empresa_id=$1 and punto_venta_id=$2 and tipo_comprobante=$3
	`, empresaID, puntoVentaID, tipoComprobante).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) CreateComprobante(ctx context.Context, c facturacion.Comprobante, items []facturacion.ComprobanteItem) (facturacion.Comprobante, error) {
	if c.ID == "" {
		c.ID = ids.New()
	}
	c.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return facturacion.Comprobante{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var vto any
	if !c.CAEVencimiento.IsZero() {
		vto = c.CAEVencimiento
	}
	if _, err := tx.ExecContext(ctx, `
		insert into comprobantes(id, empresa_id, punto_venta_id, cliente_id, tipo_comprobante, numero,
		                         fecha_emision, subtotal, descuento, iva_21, iva_10_5, iva_27,
		                         otros_impuestos, total, cae, cae_vencimiento, estado, moneda,
		                         cotizacion, observaciones, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,nullif($15,''),$16,$17,$18,$19,nullif($20,''),$21)
	`, c.ID, c.EmpresaID, c.PuntoVentaID, c.ClienteID, c.TipoComprobante, c.Numero,
		c.FechaEmision, c.Subtotal, c.Descuento, c.Iva21, c.Iva105, c.Iva27,
		c.OtrosImpuestos, c.Total, c.CAE, vto, c.Estado, c.Moneda,
		c.Cotizacion, c.Observaciones, c.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return facturacion.Comprobante{}, facturacion.ErrNumeroDuplicado
		}
		return facturacion.Comprobante{}, err
	}

	for i := range items {
		it := &items[i]
		if it.ID == "" {
			it.ID = ids.New()
		}
		it.ComprobanteID = c.ID
		if _, err := tx.ExecContext(ctx, `
			insert into comprobante_items(id, comprobante_id, codigo, descripcion, cantidad, unidad,
			                              precio_unitario, descuento_porcentaje, iva_porcentaje, subtotal, orden)
			values ($1,$2,nullif($3,''),$4,$5,$6,$7,$8,$9,$10,$11)
		`, it.ID, it.ComprobanteID, it.Codigo, it.Descripcion, it.Cantidad, it.Unidad,
			it.PrecioUnitario, it.DescuentoPorcentaje, it.IvaPorcentaje, it.Subtotal, it.Orden); err != nil {
			return facturacion.Comprobante{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return facturacion.Comprobante{}, err
	}
	return c, nil
}

func (s *Store) Certificados(ctx context.Context, empresaID string) ([]facturacion.Certificado, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, empresa_id, nombre, cuit, fecha_emision, fecha_vencimiento,
		       archivo_crt, archivo_key, ambiente, activo, created_at
		from certificados where empresa_id=$1 order by created_at desc
	`, empresaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var certs []facturacion.Certificado
	for rows.Next() {
		var c facturacion.Certificado
		if err := rows.Scan(&c.ID, &c.EmpresaID, &c.Nombre, &c.CUIT, &c.FechaEmision, &c.FechaVencimiento,
			&c.ArchivoCrt, &c.ArchivoKey, &c.Ambiente, &c.Activo, &c.CreatedAt); err != nil {
			return nil, err
		}
		certs = append(certs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return certs, nil
}

func (s *Store) Comprobante(ctx context.Context, id string) (facturacion.Comprobante, []facturacion.ComprobanteItem, error) {
	var c facturacion.Comprobante
	var vto sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		select id, empresa_id, punto_venta_id, cliente_id, tipo_comprobante, numero,
		       fecha_emision, subtotal, descuento, iva_21, iva_10_5, iva_27,
		       otros_impuestos, total, coalesce(cae,''), cae_vencimiento, estado, moneda,
		       cotizacion, coalesce(observaciones,''), created_at
		from comprobantes where id=$1
	`, id).Scan(&c.ID, &c.EmpresaID, &c.PuntoVentaID, &c.ClienteID, &c.TipoComprobante, &c.Numero,
		&c.FechaEmision, &c.Subtotal, &c.Descuento, &c.Iva21, &c.Iva105, &c.Iva27,
		&c.OtrosImpuestos, &c.Total, &c.CAE, &vto, &c.Estado, &c.Moneda,
		&c.Cotizacion, &c.Observaciones, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return facturacion.Comprobante{}, nil, facturacion.ErrNotFound
	}
	if err != nil {
		return facturacion.Comprobante{}, nil, err
	}
	if vto.Valid {
		c.CAEVencimiento = vto.Time
	}

	rows, err := s.db.QueryContext(ctx, `
		select id, comprobante_id, coalesce(codigo,''), descripcion, cantidad, unidad,
		       precio_unitario, descuento_porcentaje, iva_porcentaje, subtotal, orden
		from comprobante_items where comprobante_id=$1 order by orden asc
	`, id)
	if err != nil {
		return facturacion.Comprobante{}, nil, err
	}
	defer rows.Close()

	var items []facturacion.ComprobanteItem
	for rows.Next() {
		var it facturacion.ComprobanteItem
		if err := rows.Scan(&it.ID, &it.ComprobanteID, &it.Codigo, &it.Descripcion, &it.Cantidad, &it.Unidad,
			&it.PrecioUnitario, &it.DescuentoPorcentaje, &it.IvaPorcentaje, &it.Subtotal, &it.Orden); err != nil {
			return facturacion.Comprobante{}, nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return facturacion.Comprobante{}, nil, err
	}
	return c, items, nil
}
