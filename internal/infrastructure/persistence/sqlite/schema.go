package sqlite

// schema is the full database schema. Statements are idempotent so Migrate
// can run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS usuarios (
    id_spm     TEXT PRIMARY KEY,
    nombre     TEXT NOT NULL DEFAULT '',
    apellido   TEXT NOT NULL DEFAULT '',
    mail       TEXT,
    rol        TEXT NOT NULL DEFAULT 'solicitante',
    posicion   TEXT,
    sector     TEXT,
    centros    TEXT,
    jefe       TEXT,
    gerente1   TEXT,
    gerente2   TEXT
);

CREATE INDEX IF NOT EXISTS idx_usuarios_mail ON usuarios(mail);

CREATE TABLE IF NOT EXISTS solicitudes (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    id_usuario      TEXT NOT NULL REFERENCES usuarios(id_spm),
    centro          TEXT NOT NULL DEFAULT '',
    sector          TEXT NOT NULL DEFAULT '',
    centro_costos   TEXT NOT NULL DEFAULT '',
    almacen_virtual TEXT NOT NULL DEFAULT '',
    criticidad      TEXT NOT NULL DEFAULT 'Normal',
    fecha_necesidad TEXT NOT NULL DEFAULT '',
    justificacion   TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'draft',
    aprobador_id    TEXT NOT NULL DEFAULT '',
    planner_id      TEXT NOT NULL DEFAULT '',
    total_monto     REAL NOT NULL DEFAULT 0,
    items_json      TEXT NOT NULL DEFAULT '{}',
    notificado_at   TIMESTAMP,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_solicitudes_usuario ON solicitudes(id_usuario);
CREATE INDEX IF NOT EXISTS idx_solicitudes_status ON solicitudes(status);
CREATE INDEX IF NOT EXISTS idx_solicitudes_planner ON solicitudes(planner_id);

CREATE TABLE IF NOT EXISTS solicitud_items_tratamiento (
    solicitud_id             INTEGER NOT NULL REFERENCES solicitudes(id) ON DELETE CASCADE,
    item_index               INTEGER NOT NULL,
    decision                 TEXT NOT NULL,
    cantidad_aprobada        INTEGER NOT NULL DEFAULT 0,
    codigo_equivalente       TEXT NOT NULL DEFAULT '',
    proveedor_sugerido       TEXT NOT NULL DEFAULT '',
    precio_unitario_estimado REAL,
    comentario               TEXT NOT NULL DEFAULT '',
    updated_by               TEXT NOT NULL DEFAULT '',
    updated_at               TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(solicitud_id, item_index)
);

CREATE TABLE IF NOT EXISTS planificador_asignaciones (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    planner_id TEXT NOT NULL,
    centro     TEXT NOT NULL,
    sector     TEXT NOT NULL DEFAULT '',
    almacen    TEXT NOT NULL DEFAULT '',
    activa     INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_asignaciones_centro ON planificador_asignaciones(centro);

CREATE TABLE IF NOT EXISTS presupuestos (
    centro     TEXT NOT NULL,
    sector     TEXT NOT NULL DEFAULT '',
    monto_usd  REAL NOT NULL DEFAULT 0,
    saldo_usd  REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (centro, sector)
);

CREATE TABLE IF NOT EXISTS presupuesto_incorporaciones (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    centro         TEXT NOT NULL,
    sector         TEXT NOT NULL DEFAULT '',
    monto          REAL NOT NULL,
    motivo         TEXT NOT NULL DEFAULT '',
    estado         TEXT NOT NULL DEFAULT 'pendiente',
    solicitante_id TEXT NOT NULL,
    aprobador_id   TEXT NOT NULL DEFAULT '',
    comentario     TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    resolved_at    TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_incorporaciones_estado ON presupuesto_incorporaciones(estado);

CREATE TABLE IF NOT EXISTS notificaciones (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    destinatario  TEXT NOT NULL,
    solicitud_id  INTEGER NOT NULL DEFAULT 0,
    mensaje       TEXT NOT NULL,
    leida         INTEGER NOT NULL DEFAULT 0,
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notificaciones_destinatario ON notificaciones(destinatario, leida);
`
