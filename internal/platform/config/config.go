package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	envPort               = "PORT"
	envEnvironment        = "ENVIRONMENT"
	envGoogleCloudProject = "GOOGLE_CLOUD_PROJECT"
	envFirebaseProjectID  = "FIREBASE_PROJECT_ID"
	envFirebaseCredFile   = "FIREBASE_CREDENTIALS_FILE"
	envFirestoreProjectID = "FIRESTORE_PROJECT_ID"
	envFirestoreEmulator  = "FIRESTORE_EMULATOR_HOST"
	envPubSubProjectID    = "PUBSUB_PROJECT_ID"
	envPubSubTopic        = "PUBSUB_TOPIC_NOTIFICATIONS"
	envLowStockThreshold  = "LOW_STOCK_THRESHOLD"
	envShutdownTimeout    = "SHUTDOWN_TIMEOUT"
	envReadHeaderTimeout  = "READ_HEADER_TIMEOUT"

	defaultPort              = "8080"
	defaultEnvironment       = "development"
	defaultLowStockThreshold = 5
	defaultShutdownTimeout   = 15 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second
)

// Config aggregates runtime configuration resolved from the environment.
type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Firestore FirestoreConfig
	PubSub    PubSubConfig
	Inventory InventoryConfig

	Environment string
}

// ServerConfig captures HTTP server settings.
type ServerConfig struct {
	Port              string
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
}

// FirebaseConfig captures Firebase Admin SDK settings used for token verification.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig captures Firestore client settings.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// PubSubConfig captures the Pub/Sub notification topic settings.
type PubSubConfig struct {
	ProjectID         string
	NotificationTopic string
}

// InventoryConfig captures stock ledger tuning knobs.
type InventoryConfig struct {
	LowStockThreshold int64
}

// ValidationError reports the configuration fields that failed validation.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid fields: %s", strings.Join(e.fields, ", "))
}

// Fields returns the offending field names.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Load resolves configuration from process environment variables.
func Load() (Config, error) {
	lookup := os.LookupEnv

	cfg := Config{
		Server: ServerConfig{
			Port:              stringWithDefault(lookup, envPort, defaultPort),
			ShutdownTimeout:   durationWithDefault(lookup, envShutdownTimeout, defaultShutdownTimeout),
			ReadHeaderTimeout: durationWithDefault(lookup, envReadHeaderTimeout, defaultReadHeaderTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, envFirebaseProjectID, stringWithDefault(lookup, envGoogleCloudProject, "")),
			CredentialsFile: stringWithDefault(lookup, envFirebaseCredFile, ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, envFirestoreProjectID, stringWithDefault(lookup, envGoogleCloudProject, "")),
			EmulatorHost: stringWithDefault(lookup, envFirestoreEmulator, ""),
		},
		PubSub: PubSubConfig{
			ProjectID:         stringWithDefault(lookup, envPubSubProjectID, stringWithDefault(lookup, envGoogleCloudProject, "")),
			NotificationTopic: stringWithDefault(lookup, envPubSubTopic, ""),
		},
		Inventory: InventoryConfig{
			LowStockThreshold: int64WithDefault(lookup, envLowStockThreshold, defaultLowStockThreshold),
		},
		Environment: stringWithDefault(lookup, envEnvironment, defaultEnvironment),
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	var invalid []string
	if cfg.Server.Port == "" {
		invalid = append(invalid, envPort)
	}
	if cfg.Inventory.LowStockThreshold < 0 {
		invalid = append(invalid, envLowStockThreshold)
	}
	if cfg.Firestore.ProjectID == "" && cfg.Firestore.EmulatorHost == "" {
		invalid = append(invalid, envFirestoreProjectID)
	}
	if len(invalid) == 0 {
		return nil
	}
	sort.Strings(invalid)
	return &ValidationError{fields: invalid}
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if raw, ok := lookup(key); ok {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func int64WithDefault(lookup func(string) (string, bool), key string, fallback int64) int64 {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
