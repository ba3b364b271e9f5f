package store

// Schema is the DDL for the event tables.
const Schema = `
CREATE TABLE IF NOT EXISTS overlay_events (
    id        TEXT PRIMARY KEY,
    page_id   TEXT NOT NULL,
    page_url  TEXT NOT NULL,
    seq       INTEGER NOT NULL,
    action    TEXT NOT NULL,
    source    TEXT NOT NULL DEFAULT '',
    reason    TEXT NOT NULL DEFAULT '',
    tag       TEXT NOT NULL DEFAULT '',
    xpath     TEXT NOT NULL DEFAULT '',
    width     REAL NOT NULL DEFAULT 0,
    height    REAL NOT NULL DEFAULT 0,
    ts        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_overlay_page ON overlay_events(page_id, seq DESC);

CREATE TABLE IF NOT EXISTS scan_reports (
    id          TEXT PRIMARY KEY,
    url         TEXT NOT NULL,
    title       TEXT NOT NULL DEFAULT '',
    status_code INTEGER NOT NULL,
    candidates  INTEGER NOT NULL,
    covered     INTEGER NOT NULL,
    html_hash   TEXT NOT NULL,
    sparse      INTEGER NOT NULL DEFAULT 0,
    ts          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_ts ON scan_reports(ts DESC);
`
