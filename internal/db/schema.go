package db

// SchemaVersion is the current database schema version
const SchemaVersion = 4

const schema = `
-- Servers the device holds a token for
CREATE TABLE IF NOT EXISTS servers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    base_url TEXT NOT NULL UNIQUE,
    client_id TEXT NOT NULL DEFAULT '',
    scope TEXT NOT NULL DEFAULT '',
    auth_token TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Events, owned by a server
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    remote_id INTEGER NOT NULL,
    server_id INTEGER NOT NULL,
    base_url TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    date TEXT NOT NULL DEFAULT '',
    deleted INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (server_id) REFERENCES servers(id)
);

-- Registration forms, owned by an event
CREATE TABLE IF NOT EXISTS regforms (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    remote_id INTEGER NOT NULL,
    event_id INTEGER NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    is_open INTEGER NOT NULL DEFAULT 0,
    registration_count INTEGER NOT NULL DEFAULT 0,
    checked_in_count INTEGER NOT NULL DEFAULT 0,
    deleted INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (event_id) REFERENCES events(id)
);

-- Participants, owned by a registration form
CREATE TABLE IF NOT EXISTS participants (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    remote_id INTEGER NOT NULL,
    regform_id INTEGER NOT NULL,
    full_name TEXT NOT NULL DEFAULT '',
    registration_date TEXT NOT NULL DEFAULT '',
    registration_data TEXT NOT NULL DEFAULT '[]',
    state TEXT NOT NULL DEFAULT 'complete',
    checkin_secret TEXT NOT NULL DEFAULT '',
    checked_in INTEGER NOT NULL DEFAULT 0,
    checked_in_dt DATETIME,
    occupied_slots INTEGER NOT NULL DEFAULT 1,
    price REAL NOT NULL DEFAULT 0,
    currency TEXT NOT NULL DEFAULT '',
    formatted_price TEXT NOT NULL DEFAULT '',
    is_paid INTEGER NOT NULL DEFAULT 0,
    notes TEXT NOT NULL DEFAULT '',
    deleted INTEGER NOT NULL DEFAULT 0,
    checked_in_loading INTEGER NOT NULL DEFAULT 0,
    is_paid_loading INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (regform_id) REFERENCES regforms(id)
);

CREATE INDEX IF NOT EXISTS idx_events_server ON events(server_id);
CREATE INDEX IF NOT EXISTS idx_regforms_event ON regforms(event_id);
CREATE INDEX IF NOT EXISTS idx_participants_regform ON participants(regform_id);

-- One row per finished event sync, newest kept
CREATE TABLE IF NOT EXISTS sync_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    event_id INTEGER NOT NULL,
    outcome TEXT NOT NULL,
    inserted INTEGER NOT NULL DEFAULT 0,
    updated INTEGER NOT NULL DEFAULT 0,
    deleted INTEGER NOT NULL DEFAULT 0,
    timestamp TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_history_event ON sync_history(event_id);

CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
