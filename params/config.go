package params

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// API controls the REST/WebSocket listener.
type API struct {
	ListenAddr string
	CORSOrigin string
}

// Storage controls the embedded Pebble data directory and the append-only
// audit log directory.
type Storage struct {
	DataDir     string
	AuditLogDir string
}

// Whitelist controls the bootstrap participant seed the whitelist tree is
// built from at startup.
type Whitelist struct {
	SeedPath string
}

// Proof controls the circuit artifact paths and the worker pool size.
type Proof struct {
	WasmPath string
	ZkeyPath string
	PoolSize int
}

// Settlement holds signature-rendezvous and on-chain retry timing values.
// They are loaded from the environment but not applied: each record's
// signature deadline is the earlier of the two matched orders' expiries,
// and the settlement coordinator retries with its own fixed policy (1s
// initial backoff, doubling, at most 5 attempts).
type Settlement struct {
	SignatureTimeout time.Duration
	RetryInitial     time.Duration
	RetryMaxAttempts int
}

// EventBus controls subscriber heartbeat and backpressure limits.
type EventBus struct {
	HeartbeatInterval time.Duration
	MissedPongLimit   int
	OutboundQueueSize int
}

type Config struct {
	API        API
	Storage    Storage
	Whitelist  Whitelist
	Proof      Proof
	Settlement Settlement
	EventBus   EventBus
}

func Default() Config {
	return Config{
		API: API{
			ListenAddr: ":8080",
			CORSOrigin: "*",
		},
		Storage: Storage{
			DataDir:     "./data",
			AuditLogDir: "./data/audit",
		},
		Whitelist: Whitelist{
			SeedPath: "./config/whitelist.json",
		},
		Proof: Proof{
			WasmPath: "./artifacts/settlement_proof.wasm",
			ZkeyPath: "./artifacts/settlement_proof_final.zkey",
			PoolSize: 4,
		},
		Settlement: Settlement{
			SignatureTimeout: 5 * time.Minute,
			RetryInitial:     time.Second,
			RetryMaxAttempts: 5,
		},
		EventBus: EventBus{
			HeartbeatInterval: 30 * time.Second,
			MissedPongLimit:   2,
			OutboundQueueSize: 256,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("API_LISTEN_ADDR"); v != "" {
		cfg.API.ListenAddr = v
	}
	if v := os.Getenv("API_CORS_ORIGIN"); v != "" {
		cfg.API.CORSOrigin = v
	}
	if v := os.Getenv("STORAGE_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("STORAGE_AUDIT_LOG_DIR"); v != "" {
		cfg.Storage.AuditLogDir = v
	}
	if v := os.Getenv("WHITELIST_SEED_PATH"); v != "" {
		cfg.Whitelist.SeedPath = v
	}
	if v := os.Getenv("PROOF_WASM_PATH"); v != "" {
		cfg.Proof.WasmPath = v
	}
	if v := os.Getenv("PROOF_ZKEY_PATH"); v != "" {
		cfg.Proof.ZkeyPath = v
	}
	if v := os.Getenv("PROOF_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Proof.PoolSize = n
		}
	}
	if v := os.Getenv("SETTLEMENT_SIGNATURE_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Settlement.SignatureTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("SETTLEMENT_RETRY_INITIAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Settlement.RetryInitial = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("SETTLEMENT_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Settlement.RetryMaxAttempts = n
		}
	}
	if v := os.Getenv("EVENTBUS_HEARTBEAT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.EventBus.HeartbeatInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("EVENTBUS_OUTBOUND_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EventBus.OutboundQueueSize = n
		}
	}

	return cfg
}
