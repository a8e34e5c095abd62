package recovery

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Janitor periodically sweeps the checkpoint directory and archives
// orphaned checkpoints so stale partial runs do not accumulate
// forever. Partial checkpoints with a live producer are never touched.
type Janitor struct {
	manager *Manager
	cron    *cron.Cron
	spec    string
}

// NewJanitor creates a janitor sweeping on the given cron spec
// (default hourly)
func NewJanitor(manager *Manager, spec string) *Janitor {
	if spec == "" {
		spec = "@hourly"
	}
	return &Janitor{manager: manager, cron: cron.New(), spec: spec}
}

// Start schedules the sweep. Call Stop to shut it down.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.spec, j.Sweep); err != nil {
		return fmt.Errorf("schedule janitor sweep: %w", err)
	}
	j.cron.Start()
	return nil
}

// Stop halts scheduling; a sweep in flight finishes
func (j *Janitor) Stop() {
	j.cron.Stop()
}

// Sweep archives every orphaned checkpoint found by one scan. Exposed
// so callers can force a sweep outside the schedule.
func (j *Janitor) Sweep() {
	manifests, err := j.manager.Scan()
	if err != nil {
		log.Printf("[RECOVERY]: janitor scan failed: %v", err)
		return
	}

	archived := 0
	for _, m := range manifests {
		if m.Status != StatusOrphaned {
			continue
		}
		if err := j.manager.Discard(m); err != nil {
			log.Printf("[RECOVERY]: janitor could not archive %s: %v", m.ID, err)
			continue
		}
		archived++
	}
	if archived > 0 {
		log.Printf("[RECOVERY]: janitor archived %d orphaned checkpoint(s)", archived)
	}
}
