package migration

// Create builds the cache database from scratch.
//
// Event rows keep the export's own column semantics; position preserves the
// order in which events were read, which breaks timestamp ties downstream.
const Create = `
CREATE TABLE IF NOT EXISTS Event (
  position INTEGER PRIMARY KEY,
  ts INTEGER NOT NULL,
  ms_played INTEGER NOT NULL,
  track TEXT,
  artist TEXT,
  uri TEXT NOT NULL,
  reason_start TEXT NOT NULL DEFAULT '',
  reason_end TEXT NOT NULL DEFAULT '',
  UNIQUE (ts, uri, ms_played)
);

CREATE TABLE IF NOT EXISTS TrackMeta (
  id TEXT PRIMARY KEY,
  name TEXT,
  duration_ms INTEGER,
  popularity INTEGER,
  is_local INTEGER,
  album TEXT,
  artists TEXT
);

CREATE TABLE IF NOT EXISTS ArtistMeta (
  id TEXT PRIMARY KEY,
  name TEXT,
  popularity INTEGER,
  genres TEXT
);

CREATE TABLE IF NOT EXISTS AlbumMeta (
  id TEXT PRIMARY KEY,
  name TEXT,
  popularity INTEGER,
  release_date TEXT,
  genres TEXT
);

CREATE TABLE IF NOT EXISTS ArtistTag (
  artist TEXT,
  tag TEXT,
  count INTEGER,
  PRIMARY KEY (artist, tag)
);

CREATE TABLE IF NOT EXISTS TagState (
  artist TEXT PRIMARY KEY,
  tags_last_updated DATETIME
);

CREATE TABLE IF NOT EXISTS ImportState (
  name TEXT PRIMARY KEY,
  value DATETIME
);
`
