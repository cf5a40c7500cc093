package sqlite

// schema is the full set of tables from spec §3, created with
// CREATE TABLE IF NOT EXISTS so Migrate is idempotent across restarts --
// the same idempotence the teacher leans on throughout
// internal/storage/sqlite/migrations (ALTER/CREATE INDEX IF NOT EXISTS).
const schema = `
CREATE TABLE IF NOT EXISTS raw_posts (
	id TEXT PRIMARY KEY,
	subreddit TEXT NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	author TEXT NOT NULL,
	created_utc INTEGER NOT NULL,
	score INTEGER NOT NULL,
	num_comments INTEGER NOT NULL,
	url TEXT,
	permalink TEXT,
	sort_type TEXT NOT NULL,
	fetched_at DATETIME NOT NULL,
	comments_fetched INTEGER NOT NULL DEFAULT 0,
	comments_fetched_at DATETIME
);

CREATE TABLE IF NOT EXISTS raw_comments (
	id TEXT PRIMARY KEY,
	post_id TEXT NOT NULL,
	parent_id TEXT,
	body TEXT NOT NULL,
	author TEXT NOT NULL,
	created_utc INTEGER NOT NULL,
	score INTEGER NOT NULL,
	post_score INTEGER NOT NULL,
	post_title TEXT,
	subreddit TEXT NOT NULL,
	fetched_at DATETIME NOT NULL,
	processed_at DATETIME,
	is_pain_point BOOLEAN
);
CREATE INDEX IF NOT EXISTS idx_raw_comments_unprocessed ON raw_comments(processed_at) WHERE processed_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_raw_comments_post ON raw_comments(post_id);

CREATE TABLE IF NOT EXISTS pain_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_type TEXT NOT NULL,
	source_id TEXT NOT NULL,
	subreddit TEXT NOT NULL,
	raw_quote TEXT NOT NULL,
	author TEXT NOT NULL,
	source_score INTEGER NOT NULL,
	source_url TEXT,
	extracted_at DATETIME NOT NULL,
	topics TEXT,
	persona TEXT,
	severity TEXT,
	tagged_at DATETIME,
	embedding_id INTEGER,
	normalized_topic TEXT,
	cluster_id INTEGER,
	cluster_similarity REAL,
	geo_region TEXT,
	geo_confidence REAL,
	geo_signals TEXT,
	UNIQUE(source_type, source_id)
);
CREATE INDEX IF NOT EXISTS idx_pain_records_untagged ON pain_records(tagged_at) WHERE tagged_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_pain_records_unclustered ON pain_records(cluster_id) WHERE cluster_id IS NULL;
CREATE INDEX IF NOT EXISTS idx_pain_records_cluster ON pain_records(cluster_id);
CREATE INDEX IF NOT EXISTS idx_pain_records_topic ON pain_records(normalized_topic);

CREATE TABLE IF NOT EXISTS embeddings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pain_record_id INTEGER NOT NULL UNIQUE,
	vector TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS pain_clusters (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	centroid_text TEXT NOT NULL,
	topic_canonical TEXT NOT NULL,
	broad_category TEXT,
	centroid_embedding_id INTEGER NOT NULL,
	product_name TEXT,
	tagline TEXT,
	how_it_works TEXT,
	target_customer TEXT,
	social_proof_count INTEGER NOT NULL DEFAULT 0,
	last_synth_count INTEGER NOT NULL DEFAULT 0,
	version INTEGER NOT NULL DEFAULT 0,
	member_count INTEGER NOT NULL DEFAULT 0,
	unique_authors INTEGER NOT NULL DEFAULT 0,
	subreddit_count INTEGER NOT NULL DEFAULT 0,
	total_upvotes INTEGER NOT NULL DEFAULT 0,
	total_score INTEGER,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	synthesized_at DATETIME,
	scored_at DATETIME,
	top_quotes TEXT,
	subreddits_list TEXT,
	categories TEXT
);
CREATE INDEX IF NOT EXISTS idx_pain_clusters_topic ON pain_clusters(topic_canonical);
CREATE INDEX IF NOT EXISTS idx_pain_clusters_social_proof ON pain_clusters(social_proof_count DESC);

CREATE TABLE IF NOT EXISTS cluster_members (
	cluster_id INTEGER NOT NULL,
	pain_record_id INTEGER NOT NULL,
	similarity_score REAL NOT NULL,
	added_at DATETIME NOT NULL,
	PRIMARY KEY (cluster_id, pain_record_id)
);
CREATE INDEX IF NOT EXISTS idx_cluster_members_cluster ON cluster_members(cluster_id);
CREATE INDEX IF NOT EXISTS idx_cluster_members_record ON cluster_members(pain_record_id);

CREATE TABLE IF NOT EXISTS pain_trends (
	topic_canonical TEXT NOT NULL,
	snapshot_date TEXT NOT NULL,
	bucket_type TEXT NOT NULL,
	cluster_id INTEGER,
	mention_count INTEGER NOT NULL,
	new_mentions INTEGER NOT NULL,
	velocity REAL,
	velocity_7d REAL,
	velocity_30d REAL,
	trend_status TEXT NOT NULL,
	is_spike BOOLEAN NOT NULL DEFAULT 0,
	avg_severity REAL NOT NULL DEFAULT 0,
	subreddit_spread INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (topic_canonical, snapshot_date, bucket_type)
);

CREATE TABLE IF NOT EXISTS trend_summary (
	topic_canonical TEXT PRIMARY KEY,
	current_count INTEGER NOT NULL,
	current_velocity REAL,
	trend_status TEXT NOT NULL,
	peak_count INTEGER NOT NULL,
	peak_date TEXT NOT NULL,
	first_seen TEXT NOT NULL,
	last_updated DATETIME NOT NULL,
	sparkline TEXT
);

CREATE TABLE IF NOT EXISTS competitor_mentions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	vertical TEXT NOT NULL,
	product TEXT NOT NULL,
	source_url TEXT NOT NULL UNIQUE,
	subreddit TEXT,
	body TEXT NOT NULL,
	sentiment TEXT NOT NULL,
	feature_gap TEXT,
	fetched_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_competitor_mentions_product ON competitor_mentions(product);

CREATE TABLE IF NOT EXISTS market_estimates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cluster_id INTEGER NOT NULL,
	tam TEXT,
	sam TEXT,
	rationale TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_market_estimates_cluster ON market_estimates(cluster_id);

CREATE TABLE IF NOT EXISTS mvp_features (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cluster_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	feature_type TEXT,
	rationale TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mvp_features_cluster ON mvp_features(cluster_id);

CREATE TABLE IF NOT EXISTS outreach_contacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cluster_id INTEGER NOT NULL,
	pain_record_id INTEGER NOT NULL,
	author TEXT NOT NULL,
	subreddit TEXT,
	source_url TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL,
	UNIQUE(cluster_id, pain_record_id)
);
CREATE INDEX IF NOT EXISTS idx_outreach_contacts_cluster ON outreach_contacts(cluster_id);

CREATE TABLE IF NOT EXISTS landing_pages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cluster_id INTEGER NOT NULL UNIQUE,
	headline TEXT,
	body TEXT,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL,
	cluster_id INTEGER,
	message TEXT NOT NULL,
	unread BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_unread ON alerts(unread);

CREATE TABLE IF NOT EXISTS geo_stats (
	region TEXT PRIMARY KEY,
	mention_count INTEGER NOT NULL DEFAULT 0,
	avg_confidence REAL NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS processing_state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`
