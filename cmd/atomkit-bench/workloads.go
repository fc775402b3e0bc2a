package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/atomkit-dev/atomkit/pkg/atomkit"
)

func newLogger() *logiface.Logger[*stumpy.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
	)
}

// fanoutCmd writes one atom from several goroutines while many
// listeners observe it.
func fanoutCmd() *cobra.Command {
	var (
		listeners int
		writers   int
		writes    int
	)
	cmd := &cobra.Command{
		Use:   "fanout",
		Short: "One atom, many subscribers",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			counter := atomkit.NewAtom(0, atomkit.WithKey[int]("bench.counter"))

			var delivered atomic.Int64
			for i := 0; i < listeners; i++ {
				counter.On(func(atomkit.CellState[int]) {
					delivered.Add(1)
				})
			}

			start := time.Now()
			var g errgroup.Group
			for w := 0; w < writers; w++ {
				g.Go(func() error {
					for i := 0; i < writes; i++ {
						counter.Update(func(n int) (int, error) { return n + 1, nil })
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			elapsed := time.Since(start)

			logger.Info().
				Int(`listeners`, listeners).
				Int(`writers`, writers).
				Int64(`deliveries`, delivered.Load()).
				Dur(`elapsed`, elapsed).
				Log(`fanout complete`)
			fmt.Printf("fanout: %d writes, %d deliveries in %s (%.0f writes/s)\n",
				writers*writes, delivered.Load(), elapsed,
				float64(writers*writes)/elapsed.Seconds())
			return nil
		},
	}
	cmd.Flags().IntVar(&listeners, "listeners", 100, "number of subscribers")
	cmd.Flags().IntVar(&writers, "writers", 4, "concurrent writer goroutines")
	cmd.Flags().IntVar(&writes, "writes", 10000, "writes per writer")
	return cmd
}

// chainCmd builds a linear chain of derived atoms and measures full
// recomputation per write at the head.
func chainCmd() *cobra.Command {
	var (
		depth  int
		writes int
	)
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Deep derived-atom chains",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			head := atomkit.NewAtom(0, atomkit.WithKey[int]("bench.head"))

			tail := atomkit.NewDerived(func(c *atomkit.Ctx) int {
				return atomkit.Get(c, head) + 1
			})
			for i := 1; i < depth; i++ {
				prev := tail
				tail = atomkit.NewDerived(func(c *atomkit.Ctx) int {
					return atomkit.Get(c, prev) + 1
				})
			}
			if tail.Value() != depth {
				return fmt.Errorf("chain miswired: expected %d, got %d", depth, tail.Value())
			}

			start := time.Now()
			for i := 1; i <= writes; i++ {
				head.Set(i)
			}
			elapsed := time.Since(start)
			if tail.Value() != writes+depth {
				return fmt.Errorf("chain drifted: expected %d, got %d", writes+depth, tail.Value())
			}

			logger.Info().
				Int(`depth`, depth).
				Int(`writes`, writes).
				Dur(`elapsed`, elapsed).
				Log(`chain complete`)
			fmt.Printf("chain: depth %d, %d writes in %s (%.0f writes/s)\n",
				depth, writes, elapsed, float64(writes)/elapsed.Seconds())
			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 50, "derived chain length")
	cmd.Flags().IntVar(&writes, "writes", 5000, "writes at the chain head")
	return cmd
}

// poolCmd churns a keyed pool from concurrent workers with a short
// idle timeout.
func poolCmd() *cobra.Command {
	var (
		workers int
		keys    int
		gets    int
		gcTime  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Keyed pool churn with idle eviction",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			var factoryRuns atomic.Int64
			p := atomkit.NewPool(func(id int, _ *atomkit.InitContext) (string, error) {
				factoryRuns.Add(1)
				return fmt.Sprintf("entry-%d", id), nil
			}, atomkit.WithGCTime[int, string](gcTime),
				atomkit.WithPoolKey[int, string]("bench.pool"))

			var removed atomic.Int64
			p.On(func(ev atomkit.PoolEvent[int, string]) {
				if ev.Kind == atomkit.EntryRemoved {
					removed.Add(1)
				}
			})

			start := time.Now()
			var g errgroup.Group
			for w := 0; w < workers; w++ {
				g.Go(func() error {
					for i := 0; i < gets; i++ {
						p.Get((w*gets + i) % keys)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			elapsed := time.Since(start)

			logger.Info().
				Int(`workers`, workers).
				Int(`keys`, keys).
				Int64(`factory_runs`, factoryRuns.Load()).
				Int64(`evictions`, removed.Load()).
				Int(`live`, p.Len()).
				Dur(`elapsed`, elapsed).
				Log(`pool complete`)
			fmt.Printf("pool: %d gets over %d keys in %s, %d factory runs, %d evictions, %d live\n",
				workers*gets, keys, elapsed, factoryRuns.Load(), removed.Load(), p.Len())
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 8, "concurrent worker goroutines")
	cmd.Flags().IntVar(&keys, "keys", 256, "distinct parameter values")
	cmd.Flags().IntVar(&gets, "gets", 10000, "gets per worker")
	cmd.Flags().DurationVar(&gcTime, "gc-time", 100*time.Millisecond, "entry idle timeout")
	return cmd
}
