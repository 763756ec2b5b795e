package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"

	"github.com/ProgrammingAlternatives/fiberparty/element"
	"github.com/ProgrammingAlternatives/fiberparty/fiber"
	"github.com/ProgrammingAlternatives/fiberparty/scheduler"
	"github.com/ProgrammingAlternatives/fiberparty/testrenderer"
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "time reconciliation against the in-memory renderer",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "iters", Value: 100, Usage: "samples per benchmark"},
			&cli.StringFlag{Name: "cpuprofile", Usage: "write a CPU profile to this file"},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

var (
	widths = []int{1, 10, 100}
	depths = []int{1, 10, 100}
)

func run(ctx context.Context, cmd *cli.Command) error {
	iters := int(cmd.Int("iters"))

	if path := cmd.String("cpuprofile"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	benchmarkMount(iters)
	benchmarkUpdate(iters)
	benchmarkShuffle(iters)
	return nil
}

// buildTree produces width chains of height nested hosts, each chain
// ending in a text leaf.
func buildTree(width, height, generation int) *element.Element {
	chains := make([]*element.Element, width)
	for i := 0; i < width; i++ {
		node := element.Text(strconv.Itoa(generation))
		for j := 0; j < height; j++ {
			node = element.New("div", element.Props{"depth": j}, node)
		}
		chains[i] = element.WithKey(strconv.Itoa(i), node)
	}
	return element.New("root", nil, chains...)
}

func benchmarkMount(iters int) {
	tbl := newTable("Mount")
	for _, w := range widths {
		for _, h := range depths {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})
			for i := 0; i < iters; i++ {
				r := testrenderer.New()
				rec := fiber.NewReconciler(r, scheduler.New(), nil)
				root := rec.CreateRoot(r.NewContainer())
				tree := buildTree(w, h, 0)

				start := time.Now()
				if err := root.RenderSync(tree); err != nil {
					log.Fatal(err)
				}
				tach.AddTime(time.Since(start))
			}
			appendRow(tbl, fmt.Sprintf("mount %s nodes", humanize.Comma(int64(w*h))), tach)
		}
	}
	tbl.Render()
}

func benchmarkUpdate(iters int) {
	tbl := newTable("Update")
	for _, w := range widths {
		for _, h := range depths {
			r := testrenderer.New()
			rec := fiber.NewReconciler(r, scheduler.New(), nil)
			root := rec.CreateRoot(r.NewContainer())
			if err := root.RenderSync(buildTree(w, h, 0)); err != nil {
				log.Fatal(err)
			}

			tach := tachymeter.New(&tachymeter.Config{Size: iters})
			for i := 0; i < iters; i++ {
				tree := buildTree(w, h, i+1)
				start := time.Now()
				if err := root.RenderSync(tree); err != nil {
					log.Fatal(err)
				}
				tach.AddTime(time.Since(start))
			}
			appendRow(tbl, fmt.Sprintf("update %s nodes", humanize.Comma(int64(w*h))), tach)
		}
	}
	tbl.Render()
}

// benchmarkShuffle reorders a keyed list every iteration, the worst case
// for the placement heuristic.
func benchmarkShuffle(iters int) {
	tbl := newTable("Keyed shuffle")
	rng := rand.New(rand.NewSource(1))

	for _, n := range []int{10, 100, 1_000} {
		r := testrenderer.New()
		rec := fiber.NewReconciler(r, scheduler.New(), nil)
		root := rec.CreateRoot(r.NewContainer())

		keys := make([]int, n)
		for i := range keys {
			keys[i] = i
		}
		render := func() {
			items := make([]*element.Element, n)
			for i, k := range keys {
				items[i] = element.WithKey(strconv.Itoa(k), element.New("item", element.Props{"v": k}))
			}
			if err := root.RenderSync(element.New("list", nil, items...)); err != nil {
				log.Fatal(err)
			}
		}
		render()

		tach := tachymeter.New(&tachymeter.Config{Size: iters})
		for i := 0; i < iters; i++ {
			rng.Shuffle(n, func(a, b int) { keys[a], keys[b] = keys[b], keys[a] })
			start := time.Now()
			render()
			tach.AddTime(time.Since(start))
		}
		appendRow(tbl, fmt.Sprintf("shuffle %s keyed children", humanize.Comma(int64(n))), tach)
	}
	tbl.Render()
}

func newTable(title string) table.Writer {
	tbl := table.NewWriter()
	tbl.SetTitle(title)
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})
	return tbl
}

func appendRow(tbl table.Writer, name string, tach *tachymeter.Tachymeter) {
	calc := tach.Calc()
	tbl.AppendRows([]table.Row{{
		name,
		calc.Time.Avg,
		calc.Time.Min,
		calc.Time.P75,
		calc.Time.P99,
		calc.Time.Max,
	}})
}
