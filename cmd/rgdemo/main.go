// Command rgdemo resolves a frame description and prints its schedule.
//
// Usage:
//
//	rgdemo -frame internal/framefile/testdata/deferred.hcl -width 1920 -height 1080 -pool lazy
//	rgdemo -frame frame.yaml -timeline schedule.png
//
// The frame is built on the highest priority hal backend that is linked in;
// this binary links only the noop backend, so nothing reaches a real GPU.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gogpu/gpucontext"
	_ "github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/rendergraph"
	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/internal/framefile"
	"github.com/gogpu/rendergraph/internal/timeline"
	"github.com/gogpu/rendergraph/pool"
)

// newPool creates the pool leased frame resources come from.
type newPool func(dev *driver.Device) pool.Pool

var pools = gpucontext.NewRegistry[newPool](gpucontext.WithPriority("lazy", "hash", "none"))

func init() {
	pools.Register("hash", func() newPool {
		return func(dev *driver.Device) pool.Pool { return pool.NewHashPool(dev) }
	})
	pools.Register("lazy", func() newPool {
		return func(dev *driver.Device) pool.Pool { return pool.NewLazyPool(dev) }
	})
	pools.Register("none", func() newPool {
		return func(*driver.Device) pool.Pool { return nil }
	})
}

func main() {
	var (
		frame   = flag.String("frame", "", "frame description (.hcl, .yaml or .yml)")
		width   = flag.Uint("width", 1280, "frame width")
		height  = flag.Uint("height", 720, "frame height")
		poolArg = flag.String("pool", pools.BestName(), "resource pool: "+strings.Join(pools.Available(), ", "))
		frames  = flag.Int("frames", 1, "number of times to build and submit the frame")
		verbose = flag.Bool("v", false, "log schedule details")
		output  = flag.String("timeline", "", "write the schedule as a PNG timeline")
	)
	flag.Parse()

	if *frame == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *verbose {
		rendergraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if !pools.Has(*poolArg) {
		log.Fatalf("Unknown pool %q (available: %s)", *poolArg, strings.Join(pools.Available(), ", "))
	}

	f, err := framefile.Load(*frame, uint32(*width), uint32(*height))
	if err != nil {
		log.Fatalf("Failed to load frame: %v", err)
	}
	if err := play(f, *poolArg, *frames, *output); err != nil {
		log.Fatalf("Failed: %v", err)
	}
}

// play opens a device and builds, resolves and submits f the given number
// of times. Only the first frame's schedule is printed.
func play(f *framefile.Frame, poolName string, frames int, output string) error {
	dev, err := driver.Open()
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer dev.Destroy()

	p := pools.Get(poolName)(dev)
	if p != nil {
		defer p.Destroy()
	}

	for i := range frames {
		if err := run(dev, f, p, i == 0, output); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	if p != nil {
		s := p.Stats()
		log.Printf("Pool %s: created=%d reused=%d destroyed=%d waits=%d",
			poolName, s.Created, s.Reused, s.Destroyed, s.Waits)
	}
	return nil
}

func run(dev *driver.Device, f *framefile.Frame, p pool.Pool, show bool, output string) error {
	b, err := f.Build(dev, p)
	if err != nil {
		return err
	}
	defer b.Destroy()

	r := b.Graph.Resolve()
	if show {
		s := r.Schedule()
		fmt.Printf("%s on %s: %d passes, %d batches, %d barriers\n",
			f.Label, dev.Name(), b.Graph.Len(), len(s.Batches), s.Barriers())
		fmt.Print(s)
		if output != "" {
			if err := writeTimeline(output, s); err != nil {
				r.Discard()
				return err
			}
			log.Printf("Timeline saved to %s", output)
		}
	}

	sub, err := r.Submit(dev)
	if err != nil {
		return err
	}
	defer sub.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return sub.Wait(ctx)
}

func writeTimeline(path string, s rendergraph.Schedule) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := timeline.WritePNG(out, s); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
