package ffmpeg

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Usage summarizes resource consumption of a command's process tree.
type Usage struct {
	PeakRSS uint64  // bytes, summed over the tree at the busiest sample
	PeakCPU float64 // percent, summed over the tree at the busiest sample
	Samples int
}

// sampler polls a process tree with gopsutil until stopped.
type sampler struct {
	pid      int32
	interval time.Duration
	done     chan struct{}
	wg       sync.WaitGroup

	mu    sync.Mutex
	usage Usage
	procs map[int32]*process.Process
}

func startSampler(pid int, interval time.Duration) *sampler {
	s := &sampler{
		pid:      int32(pid),
		interval: interval,
		done:     make(chan struct{}),
		procs:    make(map[int32]*process.Process),
	}
	if interval <= 0 {
		return s
	}

	s.wg.Add(1)
	go s.loop()
	return s
}

func (s *sampler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sample()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *sampler) sample() {
	root, err := s.process(s.pid)
	if err != nil {
		return
	}

	var rss uint64
	var cpu float64
	for _, p := range s.tree(root) {
		if mem, err := p.MemoryInfo(); err == nil && mem != nil {
			rss += mem.RSS
		}
		// Percent(0) is relative to the previous call on the same handle.
		if pct, err := p.Percent(0); err == nil {
			cpu += pct
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage.Samples++
	if rss > s.usage.PeakRSS {
		s.usage.PeakRSS = rss
	}
	if cpu > s.usage.PeakCPU {
		s.usage.PeakCPU = cpu
	}
}

// process returns a cached handle so Percent can compute deltas.
func (s *sampler) process(pid int32) (*process.Process, error) {
	if p, ok := s.procs[pid]; ok {
		return p, nil
	}
	p, err := process.NewProcess(pid)
	if err != nil {
		return nil, err
	}
	s.procs[pid] = p
	return p, nil
}

func (s *sampler) tree(root *process.Process) []*process.Process {
	out := []*process.Process{root}
	children, err := root.Children()
	if err != nil {
		return out
	}
	for _, c := range children {
		if cached, err := s.process(c.Pid); err == nil {
			out = append(out, s.tree(cached)...)
		}
	}
	return out
}

func (s *sampler) stop() Usage {
	close(s.done)
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}
