package dst

// Category groups related faults so a scenario can tune (or disable) a
// whole subsystem's fault rate at once.
type Category int

const (
	CategoryNetwork Category = iota
	CategoryTimer
	CategoryProcess
	CategoryDisk
	CategoryObjectStore
	CategoryReplication
)

// FaultID names one injectable fault. The full catalog below matches
// spec.md §4.6 exactly.
type FaultID string

const (
	// network
	FaultPacketDrop      FaultID = "network.packet_drop"
	FaultCorrupt         FaultID = "network.corrupt"
	FaultPartialWrite    FaultID = "network.partial_write"
	FaultReorder         FaultID = "network.reorder"
	FaultConnectionReset FaultID = "network.connection_reset"
	FaultConnectTimeout  FaultID = "network.connect_timeout"
	FaultDelay           FaultID = "network.delay"
	FaultDuplicate       FaultID = "network.duplicate"

	// timer
	FaultTimerDriftFast     FaultID = "timer.drift_fast"
	FaultTimerDriftSlow     FaultID = "timer.drift_slow"
	FaultTimerSkip          FaultID = "timer.skip"
	FaultTimerDuplicate     FaultID = "timer.duplicate"
	FaultTimerJumpForward   FaultID = "timer.jump_forward"
	FaultTimerJumpBackward  FaultID = "timer.jump_backward"

	// process
	FaultProcessCrash          FaultID = "process.crash"
	FaultProcessPause          FaultID = "process.pause"
	FaultProcessSlow           FaultID = "process.slow"
	FaultProcessOOM            FaultID = "process.oom"
	FaultProcessCPUStarvation  FaultID = "process.cpu_starvation"

	// disk
	FaultDiskWriteFail   FaultID = "disk.write_fail"
	FaultDiskPartial     FaultID = "disk.partial_write"
	FaultDiskCorruption  FaultID = "disk.corruption"
	FaultDiskSlow        FaultID = "disk.slow"
	FaultDiskFsyncFail   FaultID = "disk.fsync_fail"
	FaultDiskStaleRead   FaultID = "disk.stale_read"
	FaultDiskFull        FaultID = "disk.disk_full"

	// object store
	FaultStorePutFail       FaultID = "objectstore.put_fail"
	FaultStoreGetFail       FaultID = "objectstore.get_fail"
	FaultStoreGetCorrupt    FaultID = "objectstore.get_corrupt"
	FaultStoreTimeout       FaultID = "objectstore.timeout"
	FaultStorePartialWrite  FaultID = "objectstore.partial_write"
	FaultStoreDeleteFail    FaultID = "objectstore.delete_fail"
	FaultStoreListIncomplete FaultID = "objectstore.list_incomplete"
	FaultStoreRenameFail    FaultID = "objectstore.rename_fail"
	FaultStoreSlow          FaultID = "objectstore.slow"

	// replication
	FaultGossipDrop     FaultID = "replication.gossip_drop"
	FaultGossipDelay     FaultID = "replication.delay"
	FaultGossipCorrupt  FaultID = "replication.corrupt"
	FaultSplitBrain     FaultID = "replication.split_brain"
	FaultStaleReplica   FaultID = "replication.stale_replica"
)

// faultCatalog maps every fault id to its category, so callers can query
// or disable an entire category without enumerating its fault ids.
var faultCatalog = map[FaultID]Category{
	FaultPacketDrop: CategoryNetwork, FaultCorrupt: CategoryNetwork,
	FaultPartialWrite: CategoryNetwork, FaultReorder: CategoryNetwork,
	FaultConnectionReset: CategoryNetwork, FaultConnectTimeout: CategoryNetwork,
	FaultDelay: CategoryNetwork, FaultDuplicate: CategoryNetwork,

	FaultTimerDriftFast: CategoryTimer, FaultTimerDriftSlow: CategoryTimer,
	FaultTimerSkip: CategoryTimer, FaultTimerDuplicate: CategoryTimer,
	FaultTimerJumpForward: CategoryTimer, FaultTimerJumpBackward: CategoryTimer,

	FaultProcessCrash: CategoryProcess, FaultProcessPause: CategoryProcess,
	FaultProcessSlow: CategoryProcess, FaultProcessOOM: CategoryProcess,
	FaultProcessCPUStarvation: CategoryProcess,

	FaultDiskWriteFail: CategoryDisk, FaultDiskPartial: CategoryDisk,
	FaultDiskCorruption: CategoryDisk, FaultDiskSlow: CategoryDisk,
	FaultDiskFsyncFail: CategoryDisk, FaultDiskStaleRead: CategoryDisk,
	FaultDiskFull: CategoryDisk,

	FaultStorePutFail: CategoryObjectStore, FaultStoreGetFail: CategoryObjectStore,
	FaultStoreGetCorrupt: CategoryObjectStore, FaultStoreTimeout: CategoryObjectStore,
	FaultStorePartialWrite: CategoryObjectStore, FaultStoreDeleteFail: CategoryObjectStore,
	FaultStoreListIncomplete: CategoryObjectStore, FaultStoreRenameFail: CategoryObjectStore,
	FaultStoreSlow: CategoryObjectStore,

	FaultGossipDrop: CategoryReplication, FaultGossipDelay: CategoryReplication,
	FaultGossipCorrupt: CategoryReplication, FaultSplitBrain: CategoryReplication,
	FaultStaleReplica: CategoryReplication,
}

// Multiplier presets scale every fault's configured probability at once.
const (
	MultiplierDisabled = 0.0
	MultiplierCalm     = 0.1
	MultiplierModerate = 1.0
	MultiplierChaos    = 3.0
)

// Buggify holds per-fault probabilities and a global multiplier. Production
// code never constructs one: it is only ever passed explicitly into
// simulation-mode components, per spec.md §9's "no global state" note.
type Buggify struct {
	probabilities map[FaultID]float64
	multiplier    float64
	suppressed    bool
}

// NewBuggify returns a fault injector with every cataloged fault at
// probability p, scaled by multiplier.
func NewBuggify(p, multiplier float64) *Buggify {
	probs := make(map[FaultID]float64, len(faultCatalog))
	for id := range faultCatalog {
		probs[id] = p
	}
	return &Buggify{probabilities: probs, multiplier: multiplier}
}

// SetProbability overrides a single fault's base probability.
func (b *Buggify) SetProbability(id FaultID, p float64) {
	b.probabilities[id] = p
}

// Suppress disables all buggify draws for the duration of a critical
// section; call the returned func to restore the previous state.
func (b *Buggify) Suppress() (restore func()) {
	prev := b.suppressed
	b.suppressed = true
	return func() { b.suppressed = prev }
}

// ShouldBuggify draws a uniform value from rng and compares it against
// fault_id's effective probability (base probability * multiplier, clamped
// to [0,1]). Suppressed sections and unknown fault ids never fire.
func (b *Buggify) ShouldBuggify(rng Rng, id FaultID) bool {
	if b.suppressed {
		return false
	}
	base, ok := b.probabilities[id]
	if !ok {
		return false
	}
	effective := base * b.multiplier
	if effective <= 0 {
		return false
	}
	if effective > 1 {
		effective = 1
	}
	return rng.Float64() < effective
}

// CategoryOf returns the category a fault id belongs to.
func CategoryOf(id FaultID) (Category, bool) {
	c, ok := faultCatalog[id]
	return c, ok
}
