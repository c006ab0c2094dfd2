// Package config reads ridgekv's environment-variable configuration,
// following the teacher's `getenv`/`mustGetenv` pattern from
// cmd/node/main.go: plain os.Getenv reads with strconv parsing and
// explicit defaults, no flags package and no file-based loader (both are
// out-of-scope external collaborators).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FsyncPolicy selects when the WAL's group-commit actor calls fsync.
type FsyncPolicy string

const (
	FsyncAlways      FsyncPolicy = "always"
	FsyncEverySecond FsyncPolicy = "everysecond"
	FsyncNo          FsyncPolicy = "no"
)

// StoreType selects the ObjectStore implementation the streaming persister
// writes segments to.
type StoreType string

const (
	StoreMemory  StoreType = "memory"
	StoreLocalFS StoreType = "localfs"
	StoreS3      StoreType = "s3"
)

// ReplicationMode selects how the gossip dispatcher fans out deltas.
type ReplicationMode string

const (
	ReplicationBroadcast ReplicationMode = "broadcast"
	ReplicationSelective ReplicationMode = "selective"
)

// Config is every environment-tunable setting ridgekv's server binary
// needs to wire up the executor, router, replication, WAL, and persister.
type Config struct {
	Port             int
	DataPath         string
	StoreType        StoreType
	S3Bucket         string
	S3Endpoint       string
	NumShards        int
	MaxRequestBytes  int
	GroupCommitBatch int
	FsyncPolicy      FsyncPolicy
	ReplicationMode  ReplicationMode
	ReplicationRF    int
	ReplicationPeers []string
}

// Load reads Config from the environment, applying the same defaults a
// fresh ridgekv instance ships with. It never terminates the process —
// unlike the teacher's mustGetenv, every ridgekv setting has a sane
// default, so misconfiguration is reported as an error instead of a fatal
// exit, letting cmd/ridgekv decide how to react.
func Load() (Config, error) {
	storeType := StoreType(strings.ToLower(getenv("REDIS_STORE_TYPE", string(StoreMemory))))
	switch storeType {
	case StoreMemory, StoreLocalFS, StoreS3:
	default:
		return Config{}, fmt.Errorf("config: invalid REDIS_STORE_TYPE %q", storeType)
	}

	fsync := FsyncPolicy(strings.ToLower(getenv("RIDGEKV_FSYNC_POLICY", string(FsyncAlways))))
	switch fsync {
	case FsyncAlways, FsyncEverySecond, FsyncNo:
	default:
		return Config{}, fmt.Errorf("config: invalid RIDGEKV_FSYNC_POLICY %q", fsync)
	}

	mode := ReplicationMode(strings.ToLower(getenv("RIDGEKV_REPLICATION_MODE", string(ReplicationSelective))))
	switch mode {
	case ReplicationBroadcast, ReplicationSelective:
	default:
		return Config{}, fmt.Errorf("config: invalid RIDGEKV_REPLICATION_MODE %q", mode)
	}

	port, err := getenvInt("REDIS_PORT", 6379)
	if err != nil {
		return Config{}, err
	}
	numShards, err := getenvInt("RIDGEKV_NUM_SHARDS", 8)
	if err != nil {
		return Config{}, err
	}
	maxReqBytes, err := getenvInt("RIDGEKV_MAX_REQUEST_BYTES", 512*1024*1024)
	if err != nil {
		return Config{}, err
	}
	groupCommitBatch, err := getenvInt("RIDGEKV_GROUP_COMMIT_BATCH", 64)
	if err != nil {
		return Config{}, err
	}
	rf, err := getenvInt("RIDGEKV_REPLICATION_FACTOR", 3)
	if err != nil {
		return Config{}, err
	}

	var peers []string
	if raw := os.Getenv("RIDGEKV_REPLICATION_PEERS"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				peers = append(peers, p)
			}
		}
	}

	return Config{
		Port:             port,
		DataPath:         getenv("REDIS_DATA_PATH", "./data"),
		StoreType:        storeType,
		S3Bucket:         os.Getenv("REDIS_S3_BUCKET"),
		S3Endpoint:       os.Getenv("REDIS_S3_ENDPOINT"),
		NumShards:        numShards,
		MaxRequestBytes:  maxReqBytes,
		GroupCommitBatch: groupCommitBatch,
		FsyncPolicy:      fsync,
		ReplicationMode:  mode,
		ReplicationRF:    rf,
		ReplicationPeers: peers,
	}, nil
}

// getenv mirrors cmd/node/main.go's helper of the same name: the named
// variable's value if set and non-empty, otherwise def.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", k, v)
	}
	return n, nil
}
