package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"REDIS_PORT", "REDIS_DATA_PATH", "REDIS_STORE_TYPE", "REDIS_S3_BUCKET",
		"REDIS_S3_ENDPOINT", "RIDGEKV_NUM_SHARDS", "RIDGEKV_MAX_REQUEST_BYTES",
		"RIDGEKV_GROUP_COMMIT_BATCH", "RIDGEKV_FSYNC_POLICY",
		"RIDGEKV_REPLICATION_MODE", "RIDGEKV_REPLICATION_FACTOR",
		"RIDGEKV_REPLICATION_PEERS",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 6379 || cfg.NumShards != 8 || cfg.StoreType != StoreMemory {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.FsyncPolicy != FsyncAlways || cfg.ReplicationMode != ReplicationSelective {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	os.Setenv("REDIS_PORT", "7000")
	os.Setenv("REDIS_STORE_TYPE", "s3")
	os.Setenv("REDIS_S3_BUCKET", "my-bucket")
	os.Setenv("RIDGEKV_REPLICATION_PEERS", "10.0.0.1:7946, 10.0.0.2:7946")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 7000 || cfg.StoreType != StoreS3 || cfg.S3Bucket != "my-bucket" {
		t.Fatalf("overrides = %+v", cfg)
	}
	if len(cfg.ReplicationPeers) != 2 || cfg.ReplicationPeers[0] != "10.0.0.1:7946" {
		t.Fatalf("peers = %v", cfg.ReplicationPeers)
	}
}

func TestLoadRejectsInvalidEnum(t *testing.T) {
	clearEnv(t)
	os.Setenv("REDIS_STORE_TYPE", "bogus")
	defer clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid REDIS_STORE_TYPE")
	}
}

func TestLoadRejectsNonIntegerPort(t *testing.T) {
	clearEnv(t)
	os.Setenv("REDIS_PORT", "not-a-number")
	defer clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-integer REDIS_PORT")
	}
}
