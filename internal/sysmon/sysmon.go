// Package sysmon samples host load while a recording runs. High CPU or low
// free disk are the usual causes of dropped frames and encoder stalls, so
// the samples feed the health monitor and the status endpoint.
package sysmon

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/reelworks/reel/internal/health"
	"github.com/reelworks/reel/internal/logging"
)

var log = logging.L("sysmon")

// Thresholds above which encoding reliably starts to suffer.
const (
	cpuDegraded  = 85.0
	cpuUnhealthy = 97.0

	diskFreeDegradedMB  = 1024
	diskFreeUnhealthyMB = 128
)

// Sample is one point-in-time host reading.
type Sample struct {
	CPUPercent float64 `json:"cpuPercent"`
	RAMPercent float64 `json:"ramPercent"`
	RAMUsedMB  uint64  `json:"ramUsedMb"`
	DiskFreeMB uint64  `json:"diskFreeMb"`
}

// Monitor periodically samples the host and grades the results into the
// health monitor under a "system" component.
type Monitor struct {
	interval time.Duration
	outDir   string
	hm       *health.Monitor

	mu       sync.RWMutex
	last     Sample
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a monitor sampling every interval. outDir is the recording
// output directory whose free space is watched.
func New(interval time.Duration, outDir string, hm *health.Monitor) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{
		interval: interval,
		outDir:   outDir,
		hm:       hm,
		done:     make(chan struct{}),
	}
}

func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
	m.wg.Wait()
}

// Last returns the most recent sample.
func (m *Monitor) Last() Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

func (m *Monitor) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.sample()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *Monitor) sample() {
	var s Sample

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if vmem, err := mem.VirtualMemory(); err == nil {
		s.RAMPercent = vmem.UsedPercent
		s.RAMUsedMB = vmem.Used / 1024 / 1024
	}
	if usage, err := disk.Usage(m.outDir); err == nil {
		s.DiskFreeMB = usage.Free / 1024 / 1024
	} else {
		log.Debug("disk sample failed", "dir", m.outDir, logging.KeyError, err)
	}

	m.mu.Lock()
	m.last = s
	m.mu.Unlock()

	if m.hm != nil {
		m.grade(s)
	}
}

func (m *Monitor) grade(s Sample) {
	status := health.Healthy
	msg := ""
	switch {
	case s.CPUPercent >= cpuUnhealthy:
		status, msg = health.Unhealthy, "cpu saturated"
	case s.DiskFreeMB > 0 && s.DiskFreeMB <= diskFreeUnhealthyMB:
		status, msg = health.Unhealthy, "output disk nearly full"
	case s.CPUPercent >= cpuDegraded:
		status, msg = health.Degraded, "cpu under pressure"
	case s.DiskFreeMB > 0 && s.DiskFreeMB <= diskFreeDegradedMB:
		status, msg = health.Degraded, "output disk low on space"
	}
	m.hm.Update("system", status, msg)
}
