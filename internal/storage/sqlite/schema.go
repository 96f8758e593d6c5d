package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS works (
	id          INTEGER PRIMARY KEY,
	uuid        TEXT NOT NULL UNIQUE,
	title       TEXT NOT NULL,
	rights_stmt TEXT,
	language    TEXT
);

CREATE TABLE IF NOT EXISTS editions (
	id        INTEGER PRIMARY KEY,
	work_id   INTEGER NOT NULL REFERENCES works(id),
	title     TEXT,
	pub_place TEXT,
	publisher TEXT,
	pub_year  INTEGER,
	extent    TEXT,
	notes     TEXT,
	language  TEXT
);
CREATE INDEX IF NOT EXISTS editions_work_id ON editions(work_id);

CREATE TABLE IF NOT EXISTS items (
	id         INTEGER PRIMARY KEY,
	edition_id INTEGER NOT NULL REFERENCES editions(id),
	url        TEXT NOT NULL,
	path       TEXT,
	source     TEXT,
	size       INTEGER,
	modified   TEXT
);
CREATE INDEX IF NOT EXISTS items_edition_id ON items(edition_id);

CREATE TABLE IF NOT EXISTS entities (
	id        INTEGER PRIMARY KEY,
	name      TEXT NOT NULL,
	sort_name TEXT,
	viaf      TEXT,
	lcnaf     TEXT,
	wikipedia TEXT,
	birth     INTEGER,
	death     INTEGER,
	aliases   TEXT
);
CREATE INDEX IF NOT EXISTS entities_viaf ON entities(viaf);
CREATE INDEX IF NOT EXISTS entities_lcnaf ON entities(lcnaf);

CREATE TABLE IF NOT EXISTS entity_works (
	id        INTEGER PRIMARY KEY,
	work_id   INTEGER NOT NULL REFERENCES works(id),
	entity_id INTEGER NOT NULL REFERENCES entities(id),
	role      TEXT NOT NULL,
	UNIQUE (work_id, entity_id, role)
);

CREATE TABLE IF NOT EXISTS subjects (
	id        INTEGER PRIMARY KEY,
	authority TEXT NOT NULL,
	uri       TEXT,
	subject   TEXT NOT NULL,
	UNIQUE (authority, subject)
);

CREATE TABLE IF NOT EXISTS subject_works (
	id         INTEGER PRIMARY KEY,
	work_id    INTEGER NOT NULL REFERENCES works(id),
	subject_id INTEGER NOT NULL REFERENCES subjects(id),
	weight     REAL NOT NULL DEFAULT 1.0,
	UNIQUE (work_id, subject_id)
);

CREATE TABLE IF NOT EXISTS identifiers (
	id         INTEGER PRIMARY KEY,
	type       TEXT NOT NULL,
	identifier TEXT NOT NULL,
	UNIQUE (type, identifier)
);

CREATE TABLE IF NOT EXISTS work_identifiers (
	id            INTEGER PRIMARY KEY,
	work_id       INTEGER NOT NULL REFERENCES works(id),
	identifier_id INTEGER NOT NULL REFERENCES identifiers(id),
	UNIQUE (work_id, identifier_id)
);

CREATE TABLE IF NOT EXISTS edition_identifiers (
	id            INTEGER PRIMARY KEY,
	edition_id    INTEGER NOT NULL REFERENCES editions(id),
	identifier_id INTEGER NOT NULL REFERENCES identifiers(id),
	UNIQUE (edition_id, identifier_id)
);
`
