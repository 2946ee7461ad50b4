// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package doppler

import (
	"encoding/hex"
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the per-pool gauges/counters exposed for a registry of
// engines. A Metrics value is safe to register once per process; callers
// observe individual engines into it (cmd/dopplerd polls every five
// seconds).
type Metrics struct {
	epoch           *prometheus.GaugeVec
	tickAccumulator *prometheus.GaugeVec
	totalSold       *prometheus.GaugeVec
	totalProceeds   *prometheus.GaugeVec
	feesAsset       *prometheus.GaugeVec
	feesNumeraire   *prometheus.GaugeVec
	saleState       *prometheus.GaugeVec
}

// NewMetrics builds the engine gauge set and registers it against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	labels := []string{"pool_id"}
	m := &Metrics{
		epoch: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "doppler", Name: "epoch", Help: "Current epoch of the sale.",
		}, labels),
		tickAccumulator: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "doppler", Name: "tick_accumulator_q18", Help: "Dutch-auction tick accumulator (Q18).",
		}, labels),
		totalSold: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "doppler", Name: "total_tokens_sold", Help: "Net asset tokens sold so far.",
		}, labels),
		totalProceeds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "doppler", Name: "total_proceeds", Help: "Net numeraire proceeds so far.",
		}, labels),
		feesAsset: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "doppler", Name: "fees_accrued_asset", Help: "Accrued protocol fees, asset side.",
		}, labels),
		feesNumeraire: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "doppler", Name: "fees_accrued_numeraire", Help: "Accrued protocol fees, numeraire side.",
		}, labels),
		saleState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "doppler", Name: "sale_state", Help: "Current SaleState as an integer.",
		}, labels),
	}
	if reg != nil {
		reg.MustRegister(m.epoch, m.tickAccumulator, m.totalSold, m.totalProceeds, m.feesAsset, m.feesNumeraire, m.saleState)
	}
	return m
}

// Observe records the current state of a single engine, labelled with the
// hex of the first 8 bytes of its pool ID.
func (m *Metrics) Observe(poolID [32]byte, st State) {
	label := hex.EncodeToString(poolID[:8])

	m.epoch.WithLabelValues(label).Set(float64(st.LastEpoch))
	m.tickAccumulator.WithLabelValues(label).Set(bigToFloat(st.TickAccumulator))
	m.totalSold.WithLabelValues(label).Set(bigToFloat(st.TotalTokensSold))
	m.totalProceeds.WithLabelValues(label).Set(bigToFloat(st.TotalProceeds))
	m.feesAsset.WithLabelValues(label).Set(bigToFloat(st.FeesAccruedAsset))
	m.feesNumeraire.WithLabelValues(label).Set(bigToFloat(st.FeesAccruedNumeraire))
	m.saleState.WithLabelValues(label).Set(float64(st.SaleState))
}

// bigToFloat renders a gauge-friendly approximation of v. Large totals
// only need to be roughly representable here; exactness lives in the
// engine's own *big.Int state, never in a Prometheus gauge.
func bigToFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
