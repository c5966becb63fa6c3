package query

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/shaderdex/shaderdex/internal/corpus"
	"github.com/shaderdex/shaderdex/internal/index"
	"github.com/shaderdex/shaderdex/internal/shader"
)

var benchTagPool = []string{
	"ocean", "raymarching", "procedural", "2d", "3d", "fractal",
	"noise", "clouds", "terrain", "water", "fire", "smoke",
	"audio", "retro", "tunnel", "voronoi", "sdf", "lighting",
	"shadow", "reflection", "pathtracing", "galaxy", "plasma",
	"waves", "glow", "volumetric",
}

var benchAuthorPool = []string{
	"iq", "shane", "nimitz", "TDM", "Dave_Hoskins", "BigWIngs",
	"FabriceNeyret2", "Shau", "klems", "mrange",
}

var benchNamePool = []string{
	"Ocean", "Seascape", "Tunnel", "Plasma", "Voyage", "Canyon",
	"Nebula", "Aurora", "Cavern", "Monolith", "Driftwood", "Ember",
}

// benchRecords builds a deterministic synthetic corpus so runs are
// comparable across revisions.
func benchRecords(n int) map[string]*shader.Record {
	rng := rand.New(rand.NewSource(42))
	kinds := shader.Kinds()

	recs := make(map[string]*shader.Record, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("b%06d", i)

		tags := make([]string, 2+rng.Intn(3))
		for j := range tags {
			tags[j] = benchTagPool[rng.Intn(len(benchTagPool))]
		}

		requires := shader.NewKindSet(shader.KindImage)
		if rng.Intn(10) < 3 {
			requires = requires.Add(kinds[rng.Intn(len(kinds))])
		}

		recs[id] = &shader.Record{
			ID:     id,
			Name:   fmt.Sprintf("%s %s %d", benchNamePool[rng.Intn(len(benchNamePool))], benchNamePool[rng.Intn(len(benchNamePool))], i),
			Author: benchAuthorPool[rng.Intn(len(benchAuthorPool))],
			Description: fmt.Sprintf("A %s study with %s lighting",
				benchTagPool[rng.Intn(len(benchTagPool))], benchTagPool[rng.Intn(len(benchTagPool))]),
			Tags:             tags,
			DeclaredRequires: requires,
		}
	}
	return recs
}

func benchEngine(b *testing.B, n int) *Engine {
	b.Helper()

	fp := corpus.Fingerprint{Count: n, Digest: "bench"}
	snap, err := index.NewBuilder(nil).Build(context.Background(), benchRecords(n), fp, nil)
	if err != nil {
		b.Fatalf("build snapshot: %v", err)
	}
	engine, err := NewEngine(index.NewHandle(snap))
	if err != nil {
		b.Fatalf("new engine: %v", err)
	}
	return engine
}

// benchQueries mixes seeded clauses (tags, kinds) with full scans
// (substring-only), so the benchmark covers both evaluation paths.
func benchQueries() []Query {
	return []Query{
		{Tags: []string{"ocean"}},
		{Tags: []string{"ocean", "3d"}},
		{Author: "iq"},
		{Name: "tunnel"},
		{Requires: shader.NewKindSet(shader.KindMusic)},
		{Tags: []string{"noise"}, Requires: shader.NewKindSet(shader.KindTexture)},
		{Description: "lighting"},
		{Tags: []string{"fractal"}, Author: "mrange"},
	}
}

func BenchmarkEngineEvaluate_Scale(b *testing.B) {
	for _, scale := range []int{1_000, 10_000, 50_000} {
		b.Run(fmt.Sprintf("records_%d", scale), func(b *testing.B) {
			engine := benchEngine(b, scale)
			ctx := context.Background()
			queries := benchQueries()

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if _, err := engine.Evaluate(ctx, queries[i%len(queries)]); err != nil {
					b.Fatalf("evaluate: %v", err)
				}
			}
		})
	}
}

func BenchmarkEngineEvaluate_Parallel(b *testing.B) {
	engine := benchEngine(b, 10_000)
	ctx := context.Background()
	queries := benchQueries()

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := engine.Evaluate(ctx, queries[i%len(queries)]); err != nil {
				b.Fatalf("evaluate: %v", err)
			}
			i++
		}
	})
}
