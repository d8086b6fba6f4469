package device

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// FinderConfig controls controller discovery
type FinderConfig struct {
	NameFilter  string
	Addresses   []string // when set, connect to these instead of scanning
	Max         int
	ScanTimeout time.Duration
	Rescan      time.Duration
}

// Finder discovers Zwift Play controllers and runs a Supervisor for each,
// up to Max. It rescans while fewer than Max are running.
type Finder struct {
	transport Transport
	cfg       FinderConfig
	backoff   BackoffConfig

	mu     sync.Mutex
	active map[string]bool
}

// NewFinder creates a controller finder
func NewFinder(t Transport, cfg FinderConfig, b BackoffConfig) *Finder {
	return &Finder{
		transport: t,
		cfg:       cfg,
		backoff:   b,
		active:    make(map[string]bool),
	}
}

// Run blocks until ctx is cancelled and every started supervisor has exited
func (f *Finder) Run(ctx context.Context, out chan<- Event) {
	var wg sync.WaitGroup
	defer wg.Wait()

	start := func(adv Advertisement) {
		f.mu.Lock()
		f.active[adv.Address] = true
		f.mu.Unlock()

		log.WithField("address", adv.Address).Infof("Finder: Starting controller %q", adv.Name)
		sup := NewSupervisor(f.transport, ControllerStream(adv), f.backoff)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sup.Run(ctx, out)
		}()
	}

	if len(f.cfg.Addresses) > 0 {
		for i, addr := range f.cfg.Addresses {
			if i >= f.cfg.Max {
				break
			}
			start(Advertisement{Address: addr})
		}
		<-ctx.Done()
		return
	}

	for {
		if need := f.cfg.Max - f.Active(); need > 0 {
			ads, err := f.transport.Scan(ctx, f.cfg.ScanTimeout)
			if err != nil {
				log.Warnf("Finder: Scan failed: %v", err)
			}
			for _, adv := range f.match(ads, need) {
				start(adv)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(f.cfg.Rescan):
		}
	}
}

// Active returns the number of controllers being supervised
func (f *Finder) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.active)
}

// match picks up to n new advertisements whose name contains the filter
func (f *Finder) match(ads []Advertisement, n int) []Advertisement {
	f.mu.Lock()
	defer f.mu.Unlock()

	filter := strings.ToLower(f.cfg.NameFilter)
	var out []Advertisement
	for _, adv := range ads {
		if len(out) == n {
			break
		}
		if adv.Name == "" || f.active[adv.Address] {
			continue
		}
		if strings.Contains(strings.ToLower(adv.Name), filter) {
			out = append(out, adv)
		}
	}
	return out
}
