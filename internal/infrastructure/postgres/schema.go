package postgres

import (
	"context"
	"fmt"
)

// schema tablas del flujo de credocubes.
const schema = `
CREATE TABLE IF NOT EXISTS inventario_credocubes (
    id                   BIGSERIAL PRIMARY KEY,
    nombre_unidad        TEXT NOT NULL,
    rfid                 TEXT NOT NULL,
    categoria            TEXT NOT NULL DEFAULT '',
    estado               TEXT NOT NULL DEFAULT 'En bodega',
    sub_estado           TEXT NOT NULL DEFAULT 'Disponible',
    lote                 TEXT,
    es_sistema           BOOLEAN NOT NULL DEFAULT FALSE,
    fecha_ingreso        TIMESTAMPTZ NOT NULL DEFAULT now(),
    ultima_actualizacion TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_inventario_credocubes_rfid
    ON inventario_credocubes(rfid);

CREATE INDEX IF NOT EXISTS idx_inventario_credocubes_estado
    ON inventario_credocubes(estado, sub_estado);

CREATE TABLE IF NOT EXISTS actividades_operacion (
    id               BIGSERIAL PRIMARY KEY,
    inventario_id    BIGINT NOT NULL REFERENCES inventario_credocubes(id),
    usuario_id       TEXT NOT NULL DEFAULT '',
    descripcion      TEXT NOT NULL DEFAULT '',
    estado_nuevo     TEXT NOT NULL,
    sub_estado_nuevo TEXT NOT NULL DEFAULT '',
    fecha_actividad  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_actividades_operacion_inventario
    ON actividades_operacion(inventario_id, fecha_actividad DESC);
`

// EnsureSchema crea tablas e índices si no existen.
func EnsureSchema(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, schema); err != nil {
		return fmt.Errorf("crear esquema: %w", err)
	}
	return nil
}
