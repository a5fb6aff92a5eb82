// Package sim defines the sample-generation boundary of the pipeline.
//
// A SliceGenerator produces the raw per-sample tables for one bounded time
// slice. Real channel and detector physics are injected behind this
// interface; the pipeline only depends on the timing contract.
package sim

import (
	"math"

	"github.com/quasar-qkd/quasar/internal/metrics"
)

// Slice holds the four co-indexed raw tables for one time slice. All tables
// share the same time base: row i of every table was sampled at the same
// instant.
type Slice struct {
	Physical *metrics.Table
	Network  *metrics.Table
	Protocol *metrics.Table
	Security *metrics.Table
}

// Table returns the slice table for a category.
func (s *Slice) Table(c metrics.Category) *metrics.Table {
	switch c {
	case metrics.CategoryPhysical:
		return s.Physical
	case metrics.CategoryNetwork:
		return s.Network
	case metrics.CategoryProtocol:
		return s.Protocol
	case metrics.CategorySecurity:
		return s.Security
	default:
		return nil
	}
}

// Len returns the shared row count of the slice tables.
func (s *Slice) Len() int {
	return s.Physical.Len()
}

// SliceGenerator produces samples at times start + i/rate for i in
// [0, round(rate*sliceWidth)).
//
// Implementations must be pure functions of the three arguments: no state
// may be carried between invocations. This keeps chunks independently
// replayable and the chunk loop parallelizable.
type SliceGenerator interface {
	GenerateSlice(start float64, rate int, sliceWidth float64) (*Slice, error)
}

// MockGenerator is the deterministic placeholder generator. It emits smooth
// closed-form series with plausible magnitudes so the downstream pipeline
// can be exercised end to end; it is not a physical model.
type MockGenerator struct{}

// Fixed relay label emitted by the placeholder: source A and B both sent to
// the measurement node C.
const mockPath = "A->C<-B"

// GenerateSlice implements SliceGenerator.
func (MockGenerator) GenerateSlice(start float64, rate int, sliceWidth float64) (*Slice, error) {
	n := int(math.Round(float64(rate) * sliceWidth))
	if n <= 0 {
		return emptySlice(), nil
	}

	phys := metrics.NewTableWithRows(metrics.CategoryPhysical.Schema(), n)
	net := metrics.NewTableWithRows(metrics.CategoryNetwork.Schema(), n)
	prot := metrics.NewTableWithRows(metrics.CategoryProtocol.Schema(), n)
	sec := metrics.NewTableWithRows(metrics.CategorySecurity.Schema(), n)

	times := phys.Times()
	loss := phys.Floats("loss_db")
	vis := phys.Floats("bsm_vis")
	dark := phys.Floats("dark_rate")

	paths := net.Texts("path")
	util := net.Floats("util")
	latency := net.Floats("latency_ns")

	qber := prot.Floats("qber")
	sifted := prot.Floats("sifted_rate")
	leak := prot.Floats("ec_leak")

	secret := sec.Floats("secret_rate")
	epsilon := sec.Floats("epsilon")

	invRate := 1.0 / float64(rate)
	for i := 0; i < n; i++ {
		t := start + float64(i)*invRate
		times[i] = t

		l := 15.0 + 0.2*math.Sin(2*math.Pi*t)
		v := 0.96 + 0.02*math.Cos(2*math.Pi*t)
		loss[i] = l
		vis[i] = v
		dark[i] = 1e-6

		paths[i] = mockPath
		util[i] = 0.5
		latency[i] = 1000

		q := 0.02 + 0.01*(1.0-v)
		sr := math.Max(0, 5e6*(1.0-q))
		el := 0.1 * sr
		qber[i] = q
		sifted[i] = sr
		leak[i] = el

		secret[i] = math.Max(0, sr*(1.0-1.2*q)-el)
		epsilon[i] = 1e-10
	}

	// All four tables share the phys time base.
	copy(net.Times(), times)
	copy(prot.Times(), times)
	copy(sec.Times(), times)

	return &Slice{Physical: phys, Network: net, Protocol: prot, Security: sec}, nil
}

func emptySlice() *Slice {
	return &Slice{
		Physical: metrics.NewTableForCategory(metrics.CategoryPhysical),
		Network:  metrics.NewTableForCategory(metrics.CategoryNetwork),
		Protocol: metrics.NewTableForCategory(metrics.CategoryProtocol),
		Security: metrics.NewTableForCategory(metrics.CategorySecurity),
	}
}
