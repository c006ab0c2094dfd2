package main

import (
	"testing"

	"github.com/dreamware/ridgekv/internal/config"
	"github.com/dreamware/ridgekv/internal/persist"
)

func TestNewObjectStoreSelectsByConfig(t *testing.T) {
	tests := []struct {
		name      string
		storeType config.StoreType
		want      string
	}{
		{name: "memory default", storeType: config.StoreMemory, want: "*persist.MemoryObjectStore"},
		{name: "localfs", storeType: config.StoreLocalFS, want: "*persist.LocalFSObjectStore"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Config{StoreType: tt.storeType, DataPath: t.TempDir()}
			store, err := newObjectStore(cfg)
			if err != nil {
				t.Fatal(err)
			}
			switch tt.storeType {
			case config.StoreMemory:
				if _, ok := store.(*persist.MemoryObjectStore); !ok {
					t.Fatalf("got %T, want *persist.MemoryObjectStore", store)
				}
			case config.StoreLocalFS:
				if _, ok := store.(*persist.LocalFSObjectStore); !ok {
					t.Fatalf("got %T, want *persist.LocalFSObjectStore", store)
				}
			}
		})
	}
}

func TestNewReplicaIDIsNonZero(t *testing.T) {
	if newReplicaID() == 0 {
		t.Fatal("expected a non-zero replica id")
	}
}
