package state

import (
	"sync"

	"github.com/airchains-network/token-ledger/ledger"
	"github.com/sirupsen/logrus"
)

// Persister writes submitted snapshots to a Store on a background goroutine.
// Snapshots queued while a write is in flight collapse into the newest one.
type Persister struct {
	store   *Store
	log     *logrus.Logger
	mutex   sync.Mutex
	cond    *sync.Cond
	pending *ledger.Snapshot
	writing bool
	closed  bool
	done    chan struct{}
}

// NewPersister starts the background writer
func NewPersister(store *Store, log *logrus.Logger) *Persister {
	p := &Persister{
		store: store,
		log:   log,
		done:  make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mutex)
	go p.process()
	return p
}

// Submit queues snap for writing, replacing any older queued snapshot
func (p *Persister) Submit(snap ledger.Snapshot) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.closed {
		return
	}
	if p.pending == nil || p.pending.Version <= snap.Version {
		p.pending = &snap
	}
	p.cond.Broadcast()
}

// Flush blocks until everything submitted so far has been written
func (p *Persister) Flush() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for p.pending != nil || p.writing {
		p.cond.Wait()
	}
}

// Close writes what is queued and stops the background goroutine
func (p *Persister) Close() {
	p.mutex.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mutex.Unlock()
	<-p.done
}

func (p *Persister) process() {
	defer close(p.done)
	for {
		p.mutex.Lock()
		for p.pending == nil && !p.closed {
			p.cond.Wait()
		}
		if p.pending == nil && p.closed {
			p.mutex.Unlock()
			return
		}
		snap := *p.pending
		p.pending = nil
		p.writing = true
		p.mutex.Unlock()

		written, err := p.store.Save(snap)
		switch {
		case err != nil:
			p.log.Errorf("Failed to persist ledger snapshot v%d: %v", snap.Version, err)
		case written:
			p.log.Debugf("Persisted ledger snapshot v%d (%d accounts)", snap.Version, len(snap.Balances))
		default:
			p.log.Debugf("Skipped stale ledger snapshot v%d", snap.Version)
		}

		p.mutex.Lock()
		p.writing = false
		p.cond.Broadcast()
		p.mutex.Unlock()
	}
}
