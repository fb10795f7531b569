package store

const schema = `
CREATE TABLE IF NOT EXISTS progress (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	payload      TEXT NOT NULL,
	saved_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id             TEXT PRIMARY KEY,
	source_url     TEXT NOT NULL UNIQUE,
	title          TEXT NOT NULL,
	document_kind  TEXT NOT NULL,
	document_type  TEXT NOT NULL,
	department     TEXT NOT NULL DEFAULT '',
	content_hash   TEXT NOT NULL,
	size_bytes     INTEGER NOT NULL,
	last_updated   TEXT NOT NULL,
	ingested_at    TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS fragments (
	id            TEXT PRIMARY KEY,
	document_id   TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	position      INTEGER NOT NULL,
	text          TEXT NOT NULL,
	token_count   INTEGER NOT NULL,
	content_hash  TEXT NOT NULL,
	metadata      TEXT NOT NULL,
	UNIQUE (document_id, position)
);

CREATE INDEX IF NOT EXISTS idx_fragments_document ON fragments(document_id);
CREATE INDEX IF NOT EXISTS idx_documents_type     ON documents(document_type);
`
