package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mgarez/redhill"
	"github.com/mgarez/redhill/metrics"
	"github.com/mgarez/redhill/timeline"
)

// sceneConstants is the per-frame constant block, padded to 256 bytes in
// the ring.
type sceneConstants struct {
	Frame  uint32
	Offset float32
}

func run(cfg config) (redhill.Stats, time.Duration, error) {
	var (
		g        *gpu
		ctrl     *redhill.FrameSyncController
		ring     *redhill.ConstantRing
		sink     constantSink
		rec      *timeline.Recorder
		server   *http.Server
		observer []redhill.Observer
	)

	setup := redhill.NewPipeline(
		redhill.Stage{
			Name: "gpu",
			Setup: func() (err error) {
				g, err = openGPU(cfg)
				return err
			},
			Teardown: func() error { return g.close() },
		},
		redhill.Stage{
			Name: "metrics",
			Setup: func() (err error) {
				if cfg.metrics == "" {
					return nil
				}
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector())
				observer = append(observer, metrics.New(reg))
				server, err = serveMetrics(cfg.metrics, reg)
				return err
			},
			Teardown: func() error {
				if server == nil {
					return nil
				}
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				return server.Shutdown(ctx)
			},
		},
		redhill.Stage{
			Name: "controller",
			Setup: func() (err error) {
				if cfg.timeline != "" {
					rec = timeline.NewRecorder()
					observer = append(observer, rec)
				}
				ctrl, err = redhill.New(g.queue, g.fence,
					redhill.WithSlotCount(cfg.slots),
					redhill.WithPolicy(policy(cfg)),
					redhill.WithObserver(redhill.Observers(observer...)),
				)
				return err
			},
			Teardown: func() error { return ctrl.Close() },
		},
		redhill.Stage{
			Name: "constants",
			Setup: func() (err error) {
				ring = redhill.NewConstantRing(ctrl, binary.Size(sceneConstants{}))
				if g.constants == nil {
					return nil
				}
				sink, err = g.constants(len(ring.Bytes()))
				return err
			},
			Teardown: func() error {
				if sink != nil {
					sink.Destroy()
				}
				return nil
			},
		},
	)
	if err := setup.Run(); err != nil {
		return redhill.Stats{}, 0, err
	}

	start := time.Now()
	loopErr := frameLoop(cfg, g, ctrl, ring, sink)
	if err := ctrl.Drain(); err != nil && loopErr == nil {
		loopErr = err
	}
	elapsed := time.Since(start)
	stats := ctrl.Stats()

	if err := setup.Close(); err != nil && loopErr == nil {
		loopErr = err
	}
	if loopErr == nil && rec != nil {
		loopErr = rec.WritePNG(cfg.timeline, 1200)
	}
	return stats, elapsed, loopErr
}

// frameLoop renders cfg.frames frames. Each frame's constants go to the
// slot's ring region and, when sink is set, are uploaded from there.
func frameLoop(cfg config, g *gpu, ctrl *redhill.FrameSyncController, ring *redhill.ConstantRing, sink constantSink) error {
	states := redhill.NewStateTracker()
	for i := range ctrl.SlotCount() {
		states.Track(backbufferID(i), redhill.StatePresent)
	}

	buf := make([]byte, binary.Size(sceneConstants{}))
	var offset float32
	for frame := range cfg.frames {
		slot := ctrl.BeginFrame()

		offset += 0.005
		if offset > 1.25 {
			offset = -1.25
		}
		c := sceneConstants{Frame: uint32(frame), Offset: offset}
		if _, err := binary.Encode(buf, binary.LittleEndian, c); err != nil {
			return err
		}
		if err := ring.Write(slot, buf); err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		if sink != nil {
			if err := sink.Write(ring.Offset(slot), ring.Region(slot)); err != nil {
				return fmt.Errorf("frame %d: upload constants: %w", frame, err)
			}
		}

		if _, _, err := states.Transition(backbufferID(slot.Index), redhill.StateRenderTarget); err != nil {
			return err
		}
		time.Sleep(cfg.cpuCost)
		if _, _, err := states.Transition(backbufferID(slot.Index), redhill.StatePresent); err != nil {
			return err
		}
		for _, b := range states.Flush() {
			redhill.Logger().Debug("redhill: barrier", "frame", frame, "barrier", b.String())
		}

		batch, release, err := g.record(slot)
		if err != nil {
			return fmt.Errorf("frame %d: record: %w", frame, err)
		}
		if err := ctrl.Retire(slot, release); err != nil {
			return err
		}
		if err := ctrl.SubmitFrame(slot, batch); err != nil {
			return err
		}
		if err := ctrl.Present(); err != nil {
			return err
		}
		if _, err := ctrl.AdvanceFrame(); err != nil {
			return err
		}
	}
	return nil
}

func backbufferID(i int) redhill.ResourceID {
	return redhill.ResourceID(fmt.Sprintf("backbuffer%d", i))
}

func serveMetrics(addr string, reg *prometheus.Registry) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server: %v", err)
		}
	}()
	redhill.Logger().Info("redhill: serving metrics", "addr", ln.Addr().String())
	return srv, nil
}
