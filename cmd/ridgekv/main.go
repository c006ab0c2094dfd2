// Package main implements the ridgekv server: a sharded, CRDT-replicated,
// RESP2-speaking in-memory store with a write-ahead log and streaming
// object-store persistence.
//
// Architecture:
//
//	ridgekv
//	  RESP2 listener        one goroutine per connection,
//	                        internal/connsm owns MULTI/EXEC/ACL
//	  internal/router    -> internal/executor
//	                        NumShards fixed partitions, one mutex each,
//	                        generalizing the teacher's per-shard ownership
//	  internal/replication  gossip dispatcher + Merkle anti-entropy
//	  internal/wal       -> internal/persist
//	                        group-commit actor, streamed segments
//
// Configuration is entirely environment-variable driven; see
// internal/config for the full list.
package main

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dreamware/ridgekv/internal/acl"
	"github.com/dreamware/ridgekv/internal/clock"
	"github.com/dreamware/ridgekv/internal/config"
	"github.com/dreamware/ridgekv/internal/connsm"
	"github.com/dreamware/ridgekv/internal/dst"
	"github.com/dreamware/ridgekv/internal/persist"
	"github.com/dreamware/ridgekv/internal/replication"
	"github.com/dreamware/ridgekv/internal/respio"
	"github.com/dreamware/ridgekv/internal/router"
	"github.com/dreamware/ridgekv/internal/wal"
)

// logFatal is a variable so tests can intercept a fatal exit, matching
// the teacher's cmd/node/main.go indirection.
var logFatal = log.Fatalf

func main() {
	cfg, err := config.Load()
	if err != nil {
		logFatal("config: %v", err)
		return
	}

	self := clock.ReplicaID(newReplicaID())

	objectStore, err := newObjectStore(cfg)
	if err != nil {
		logFatal("persist: %v", err)
		return
	}

	if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
		logFatal("data dir: %v", err)
		return
	}
	walPath := filepath.Join(cfg.DataPath, "ridgekv.wal")

	hwm, deltas, err := persist.Recover(context.Background(), objectStore, walPath)
	if err != nil {
		log.Printf("recovery: %v", err)
	} else {
		log.Printf("recovery: high-water mark %d, replaying %d entries", hwm, len(deltas))
	}

	r := router.NewRouter(cfg.NumShards, self, 4096)
	for _, d := range deltas {
		if err := r.ApplyDelta(d); err != nil {
			log.Printf("recovery: apply delta for %q: %v", d.Key, err)
		}
	}

	walActor, err := wal.Open(walPath, cfg.FsyncPolicy, cfg.GroupCommitBatch)
	if err != nil {
		logFatal("wal: %v", err)
		return
	}
	defer walActor.Close()

	persister, err := persist.NewPersister(context.Background(), objectStore, cfg.GroupCommitBatch)
	if err != nil {
		logFatal("persist: %v", err)
		return
	}
	defer persister.Close()

	var dispatcher *replication.Dispatcher
	if len(cfg.ReplicationPeers) > 0 {
		dispatcher, err = replication.NewDispatcher(replication.DispatcherConfig{
			BindAddr: "0.0.0.0",
			BindPort: cfg.Port + 1000,
			Peers:    cfg.ReplicationPeers,
			Mode:     cfg.ReplicationMode,
			RF:       cfg.ReplicationRF,
		})
		if err != nil {
			log.Printf("replication: gossip dispatcher disabled: %v", err)
			dispatcher = nil
		}
	}
	engine := replication.NewEngine(self, r, walActor, dispatcher)
	if dispatcher != nil {
		defer dispatcher.Close()
	}

	registry := acl.NewRegistry()
	clk := dst.NewWallClock()

	listen := ":" + strconv.Itoa(cfg.Port)
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		logFatal("listen: %v", err)
		return
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go acceptLoop(ln, r, registry, engine, clk)
	log.Printf("ridgekv listening on %s (replica %d, %d shards, store=%s)",
		listen, self, cfg.NumShards, cfg.StoreType)

	<-stop
	log.Println("ridgekv: shutting down")
	if err := ln.Close(); err != nil {
		log.Printf("listener close: %v", err)
	}
}

func acceptLoop(ln net.Listener, r *router.Router, registry *acl.Registry, engine *replication.Engine, clk *dst.WallClock) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("accept: %v", err)
			continue
		}
		go serveConn(conn, r, registry, engine, clk)
	}
}

func serveConn(netConn net.Conn, r *router.Router, registry *acl.Registry, engine *replication.Engine, clk *dst.WallClock) {
	defer netConn.Close()
	conn := connsm.NewConnection(r, registry)
	reader := bufio.NewReader(netConn)

	for {
		cmd, err := respio.ReadCommand(reader)
		if err != nil {
			return
		}
		now := clk.Now()
		reply, deltas := conn.Handle(cmd, now)
		if len(deltas) > 0 {
			if err := engine.Publish(deltas); err != nil {
				log.Printf("replication: publish: %v", err)
			}
		}
		if err := respio.WriteReply(netConn, reply); err != nil {
			return
		}
	}
}

func newObjectStore(cfg config.Config) (persist.ObjectStore, error) {
	switch cfg.StoreType {
	case config.StoreLocalFS:
		return persist.NewLocalFSObjectStore(filepath.Join(cfg.DataPath, "segments"))
	case config.StoreS3:
		return persist.NewS3ObjectStore(context.Background(), cfg.S3Bucket, cfg.S3Endpoint)
	default:
		return persist.NewMemoryObjectStore(), nil
	}
}

// newReplicaID derives a replica identity from the process start time.
// Production deployments that need stable identity across restarts should
// set it explicitly; nothing in the CRDT model requires a persistent
// replica id beyond "never collide with a live peer."
func newReplicaID() uint64 {
	return uint64(time.Now().UnixNano())
}
