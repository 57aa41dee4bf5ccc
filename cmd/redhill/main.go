// Command redhill drives a frame loop through the frame sync controller and
// reports how much the CPU and GPU overlapped.
//
// With -backend sim the GPU is simulated and -gpu sets the cost of each
// frame. The HAL backends submit empty command buffers to a real device.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/mgarez/redhill"
)

type config struct {
	frames     int
	slots      int
	backend    string
	cpuCost    time.Duration
	gpuCost    time.Duration
	serialized bool
	timeline   string
	metrics    string
	verbose    bool
}

func main() {
	var cfg config
	flag.IntVar(&cfg.frames, "frames", 120, "number of frames to run")
	flag.IntVar(&cfg.slots, "slots", redhill.DefaultSlotCount, "frame slots (swap chain buffers)")
	flag.StringVar(&cfg.backend, "backend", "sim", "GPU backend: sim, noop, vulkan, dx12, metal, gl")
	flag.DurationVar(&cfg.cpuCost, "cpu", 4*time.Millisecond, "simulated CPU recording time per frame")
	flag.DurationVar(&cfg.gpuCost, "gpu", 6*time.Millisecond, "simulated GPU time per frame (sim backend)")
	flag.BoolVar(&cfg.serialized, "serialized", false, "wait for the GPU every frame")
	flag.StringVar(&cfg.timeline, "timeline", "", "write a timeline PNG to this file")
	flag.StringVar(&cfg.metrics, "metrics", "", "serve Prometheus metrics on this address")
	flag.BoolVar(&cfg.verbose, "v", false, "log every frame")
	flag.Parse()

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	redhill.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	stats, elapsed, err := run(cfg)
	if err != nil {
		log.Fatalf("redhill: %v", err)
	}

	log.Printf("%d frames on %s in %v (%.1f fps), %d slots, %s policy",
		stats.Frames, cfg.backend, elapsed.Round(time.Millisecond),
		float64(stats.Frames)/elapsed.Seconds(), cfg.slots, policy(cfg))
	log.Printf("CPU blocked %d times for %v total", stats.Waits, stats.WaitTime.Round(time.Microsecond))
	if cfg.timeline != "" {
		log.Printf("Timeline saved to %s\n", cfg.timeline)
	}
}

func policy(cfg config) redhill.Policy {
	if cfg.serialized {
		return redhill.PolicySerialized
	}
	return redhill.PolicyPerSlot
}
