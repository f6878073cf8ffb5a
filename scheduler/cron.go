/*
Recurring schedules.

PURPOSE:
  Enqueues registered jobs on a daily, weekly, or monthly cadence. A
  minute ticker evaluates every schedule; a due schedule submits its job
  at NORMAL priority and will not fire again until its next cadence
  window.

RULES:
  - Schedules hold only job type and metadata. All work happens in the
    job handler; the cron loop itself performs no domain I/O.
  - A schedule fires at most once per calendar day, at or after its
    configured hour:minute.
  - Monthly schedules configured for day 29-31 skip months without that
    day.
*/
package scheduler

import (
	"log"
	"sync"
	"time"
)

type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Schedule describes one recurring job.
type Schedule struct {
	Name     string
	JobType  string
	Metadata map[string]string

	Frequency Frequency
	Hour      int
	Minute    int
	Weekday   time.Weekday // weekly only
	Day       int          // monthly only, day of month

	lastFired time.Time
}

// due reports whether the schedule should fire at now. At most one firing
// per calendar day.
func (s *Schedule) due(now time.Time) bool {
	if sameDay(s.lastFired, now) {
		return false
	}

	switch s.Frequency {
	case Weekly:
		if now.Weekday() != s.Weekday {
			return false
		}
	case Monthly:
		if now.Day() != s.Day {
			return false
		}
	}

	fireAt := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Minute, 0, 0, now.Location())
	return !now.Before(fireAt)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Cron evaluates schedules once per minute and enqueues due jobs.
type Cron struct {
	sched    *Scheduler
	interval time.Duration

	mu        sync.Mutex
	schedules []*Schedule

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

// NewCron creates a cron loop feeding the given scheduler.
func NewCron(sched *Scheduler) *Cron {
	return &Cron{
		sched:    sched,
		interval: time.Minute,
		stopChan: make(chan struct{}),
	}
}

// Add registers a schedule. Safe to call while running.
func (c *Cron) Add(s *Schedule) {
	c.mu.Lock()
	c.schedules = append(c.schedules, s)
	c.mu.Unlock()
}

// Start launches the check loop.
func (c *Cron) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.loop()
	log.Println("[Cron] Started")
}

// Stop terminates the check loop and waits for it to exit.
func (c *Cron) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	close(c.stopChan)
	c.wg.Wait()
	log.Println("[Cron] Stopped")
}

func (c *Cron) loop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.check(time.Now())
	for {
		select {
		case now := <-ticker.C:
			c.check(now)
		case <-c.stopChan:
			return
		}
	}
}

func (c *Cron) check(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.schedules {
		if !s.due(now) {
			continue
		}
		id, err := c.sched.Submit(s.JobType, s.Metadata, PriorityNormal)
		if err != nil {
			log.Printf("[Cron] Schedule %q submit failed: %v", s.Name, err)
			continue
		}
		s.lastFired = now
		log.Printf("[Cron] Schedule %q enqueued job %s", s.Name, id)
	}
}
