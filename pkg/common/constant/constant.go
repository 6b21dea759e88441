package constant

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	// Backfill ranges are split into chunks of this many blocks so that
	// progress survives restarts without re-scanning the whole window.
	MaxBackfillChunkBlocks = 5000

	KVPrefixLatestBlock     = "latest_block"
	KVPrefixFailedBlocks    = "failed_blocks"
	KVPrefixBackfillRange   = "backfill_range"
	DefaultReorgDepthBlocks = 12
)

// Environment variable names consumed by the indexer process.
const (
	EnvDatabaseURL        = "DATABASE_URL"
	EnvRedisURL           = "REDIS_URL"
	EnvNATSURL            = "NATS_URL"
	EnvPollIntervalMS     = "INDEXER_POLL_INTERVAL_MS"
	EnvBatchSize          = "INDEXER_BATCH_SIZE"
	EnvSyncDays           = "INDEXER_SYNC_DAYS"
	EnvEnableArcNative    = "ENABLE_ARC_NATIVE"
	EnvEnableUSYC         = "ENABLE_USYC"
	EnvEnableStableFX     = "ENABLE_STABLEFX"
	EnvAPIPort            = "API_PORT"
	EnvKVDir              = "KV_DIR"
	EnvEnvironment        = "ENVIRONMENT"
	EnvLogLevel           = "LOG_LEVEL"
	EnvChainsConfig       = "CHAINS_CONFIG"
	EnvRPCPrefix          = "RPC_"
	EnvNATSSubjectPrefix  = "NATS_SUBJECT_PREFIX"
	EnvStatsCacheTTLSecs  = "STATS_CACHE_TTL_SECONDS"
	EnvRPCRequestsPerSec  = "RPC_REQUESTS_PER_SECOND"
	EnvRPCBurst           = "RPC_BURST"
	EnvRPCTimeoutSecs     = "RPC_TIMEOUT_SECONDS"
)
