package state

import (
	"sync"
	"time"
)

type Phase int

const (
	BOOTING Phase = iota
	READY
	ERROR
)

func (p Phase) String() string {
	switch p {
	case BOOTING:
		return "booting"
	case READY:
		return "ready"
	case ERROR:
		return "error"
	default:
		return "unknown"
	}
}

// TriggerInfo is the last trigger a host received.
type TriggerInfo struct {
	Active   bool
	Duration time.Duration
	Preset   string
	Source   string
	At       time.Time
}

// Effect phase names as reported in EffectInfo.Phase.
const (
	EffectIdle      = "idle"
	EffectRunning   = "running"
	EffectFading    = "fading"
	EffectDone      = "done"
	EffectCancelled = "cancelled"
)

// EffectInfo mirrors the confetti controller status as plain values.
type EffectInfo struct {
	Phase      string
	Active     bool
	Activation uint64
	Particles  int
	Alpha      float64
	Width      int
	Height     int
}

// Visible reports whether particles are on screen.
func (e EffectInfo) Visible() bool {
	return e.Phase == EffectRunning || e.Phase == EffectFading
}

type NetworkInfo struct {
	Listen string
	URL    string
}

type State struct {
	Phase   Phase
	Caption string
	Trigger TriggerInfo
	Effect  EffectInfo
	Network NetworkInfo
	Err     string
}

type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore() *Store {
	return &Store{state: State{Phase: BOOTING, Effect: EffectInfo{Phase: EffectIdle}}}
}

func (store *Store) Snapshot() State {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.state
}

func (store *Store) SetPhase(phase Phase) {
	store.mu.Lock()
	store.state.Phase = phase
	store.mu.Unlock()
}

func (store *Store) SetCaption(caption string) {
	store.mu.Lock()
	store.state.Caption = caption
	store.mu.Unlock()
}

func (store *Store) SetError(err error) {
	store.mu.Lock()
	if err == nil {
		store.state.Err = ""
	} else {
		store.state.Phase = ERROR
		store.state.Err = err.Error()
	}
	store.mu.Unlock()
}

func (store *Store) UpdateTrigger(trigger TriggerInfo) {
	store.mu.Lock()
	store.state.Trigger = trigger
	store.mu.Unlock()
}

func (store *Store) UpdateEffect(effect EffectInfo) {
	store.mu.Lock()
	store.state.Effect = effect
	store.mu.Unlock()
}

func (store *Store) UpdateNetwork(network NetworkInfo) {
	store.mu.Lock()
	store.state.Network = network
	store.mu.Unlock()
}
