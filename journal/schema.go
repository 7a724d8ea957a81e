package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	op TEXT NOT NULL,
	quantity REAL NOT NULL,
	price REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS valuations (
	time DATETIME NOT NULL,
	total_value REAL NOT NULL,
	long_exposure REAL NOT NULL,
	short_exposure REAL NOT NULL,
	gross_exposure REAL NOT NULL,
	net_exposure REAL NOT NULL,
	long_short_ratio REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_valuations_time ON valuations(time);
`
