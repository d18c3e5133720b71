// Package sediment runs the deterministic deposition simulation that turns a
// journal into a sediment core.
//
// Every entry deposits one grain per unit of content length. Grains drop into
// the lowest of three candidate columns, slide up to three hops down steep
// faces, and stack on the column they settle in. Placement is driven by a
// per-entry random stream seeded from the entry id, so the same journal
// always produces the same core, byte for byte.
//
// Usage:
//
//	result := sediment.Simulate(entries, sediment.Options{Columns: 60})
//	for _, g := range result.Grains {
//	    draw(g.Column, g.Row, g.Color)
//	}
//
// Simulate holds no state between calls and is safe for concurrent use.
package sediment
