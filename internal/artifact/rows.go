// Package artifact persists a metric store as one file per category in a
// destination directory. Parquet is the preferred format for performance;
// CSV is supported for portability. Both carry the same schema losslessly
// and downstream consumers may rely on schema stability across runs.
package artifact

import (
	"github.com/quasar-qkd/quasar/internal/metrics"
)

// physicalRow is a physical-category row in Parquet form.
type physicalRow struct {
	Time     float64 `parquet:"time"`
	LossDB   float64 `parquet:"loss_db"`
	BSMVis   float64 `parquet:"bsm_vis"`
	DarkRate float64 `parquet:"dark_rate"`
}

// networkRow is a network-category row in Parquet form.
type networkRow struct {
	Time      float64 `parquet:"time"`
	Path      string  `parquet:"path,zstd"`
	Util      float64 `parquet:"util"`
	LatencyNs float64 `parquet:"latency_ns"`
}

// protocolRow is a protocol-category row in Parquet form.
type protocolRow struct {
	Time       float64 `parquet:"time"`
	QBER       float64 `parquet:"qber"`
	SiftedRate float64 `parquet:"sifted_rate"`
	ECLeak     float64 `parquet:"ec_leak"`
}

// securityRow is a security-category row in Parquet form.
type securityRow struct {
	Time       float64 `parquet:"time"`
	SecretRate float64 `parquet:"secret_rate"`
	Epsilon    float64 `parquet:"epsilon"`
}

func physicalRows(t *metrics.Table) []physicalRow {
	rows := make([]physicalRow, t.Len())
	times := t.Times()
	loss := t.Floats("loss_db")
	vis := t.Floats("bsm_vis")
	dark := t.Floats("dark_rate")
	for i := range rows {
		rows[i] = physicalRow{Time: times[i], LossDB: loss[i], BSMVis: vis[i], DarkRate: dark[i]}
	}
	return rows
}

func networkRows(t *metrics.Table) []networkRow {
	rows := make([]networkRow, t.Len())
	times := t.Times()
	paths := t.Texts("path")
	util := t.Floats("util")
	lat := t.Floats("latency_ns")
	for i := range rows {
		rows[i] = networkRow{Time: times[i], Path: paths[i], Util: util[i], LatencyNs: lat[i]}
	}
	return rows
}

func protocolRows(t *metrics.Table) []protocolRow {
	rows := make([]protocolRow, t.Len())
	times := t.Times()
	qber := t.Floats("qber")
	sifted := t.Floats("sifted_rate")
	leak := t.Floats("ec_leak")
	for i := range rows {
		rows[i] = protocolRow{Time: times[i], QBER: qber[i], SiftedRate: sifted[i], ECLeak: leak[i]}
	}
	return rows
}

func securityRows(t *metrics.Table) []securityRow {
	rows := make([]securityRow, t.Len())
	times := t.Times()
	secret := t.Floats("secret_rate")
	eps := t.Floats("epsilon")
	for i := range rows {
		rows[i] = securityRow{Time: times[i], SecretRate: secret[i], Epsilon: eps[i]}
	}
	return rows
}

func tableFromPhysical(rows []physicalRow) *metrics.Table {
	t := metrics.NewTableWithRows(metrics.CategoryPhysical.Schema(), len(rows))
	times := t.Times()
	loss := t.Floats("loss_db")
	vis := t.Floats("bsm_vis")
	dark := t.Floats("dark_rate")
	for i, r := range rows {
		times[i], loss[i], vis[i], dark[i] = r.Time, r.LossDB, r.BSMVis, r.DarkRate
	}
	return t
}

func tableFromNetwork(rows []networkRow) *metrics.Table {
	t := metrics.NewTableWithRows(metrics.CategoryNetwork.Schema(), len(rows))
	times := t.Times()
	paths := t.Texts("path")
	util := t.Floats("util")
	lat := t.Floats("latency_ns")
	for i, r := range rows {
		times[i], paths[i], util[i], lat[i] = r.Time, r.Path, r.Util, r.LatencyNs
	}
	return t
}

func tableFromProtocol(rows []protocolRow) *metrics.Table {
	t := metrics.NewTableWithRows(metrics.CategoryProtocol.Schema(), len(rows))
	times := t.Times()
	qber := t.Floats("qber")
	sifted := t.Floats("sifted_rate")
	leak := t.Floats("ec_leak")
	for i, r := range rows {
		times[i], qber[i], sifted[i], leak[i] = r.Time, r.QBER, r.SiftedRate, r.ECLeak
	}
	return t
}

func tableFromSecurity(rows []securityRow) *metrics.Table {
	t := metrics.NewTableWithRows(metrics.CategorySecurity.Schema(), len(rows))
	times := t.Times()
	secret := t.Floats("secret_rate")
	eps := t.Floats("epsilon")
	for i, r := range rows {
		times[i], secret[i], eps[i] = r.Time, r.SecretRate, r.Epsilon
	}
	return t
}
