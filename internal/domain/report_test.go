package domain

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestNewReport_UsesClock(t *testing.T) {
	fixedTime := time.Date(2024, 4, 27, 6, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixedTime))
	t.Cleanup(func() { SetClock(nil) })

	r := NewReport("run-1", twoYears, nil, nil, nil)

	assert.Equal(t, fixedTime, r.GeneratedAt)
	assert.Equal(t, "run-1", r.RunID)
	assert.Nil(t, r.MonthlyTavg)
}

func TestReport_AnomalyRecords(t *testing.T) {
	generated := time.Date(2024, 4, 27, 6, 0, 0, 0, time.UTC)
	r := Report{
		RunID:       "run-2",
		GeneratedAt: generated,
		Results: []AggregationResult{
			{
				Variable:      VarTavg,
				AnnualMean:    Profile{Keys: []int{2001, 2002, 2003}, Values: []float64{10, math.NaN(), 12}},
				Baseline:      11,
				AnnualAnomaly: Profile{Keys: []int{2001, 2002, 2003}, Values: []float64{-1, math.NaN(), 1}},
			},
			{
				Variable:      VarFlow,
				AnnualMean:    Profile{Keys: []int{2001}, Values: []float64{3}},
				Baseline:      3,
				AnnualAnomaly: Profile{Keys: []int{2001}, Values: []float64{0}},
			},
		},
		MonthlyTavg: &MonthlyAnomalyResult{
			Variable: VarTavg,
			Mean:     Profile{Keys: []int{200101, 200102, 200103}, Values: []float64{4, math.NaN(), 8}},
			Baseline: 6,
			Anomaly:  Profile{Keys: []int{200101, 200102, 200103}, Values: []float64{-0.002, math.NaN(), 0.002}},
			Divisor:  LegacyMonthlyAnomalyDivisor,
		},
	}

	want := []AnomalyRecord{
		{RunID: "run-2", Variable: VarTavg, Year: 2001, Mean: 10, Baseline: 11, Anomaly: -1, Divisor: 1, GeneratedAt: generated},
		{RunID: "run-2", Variable: VarTavg, Year: 2003, Mean: 12, Baseline: 11, Anomaly: 1, Divisor: 1, GeneratedAt: generated},
		{RunID: "run-2", Variable: VarFlow, Year: 2001, Mean: 3, Baseline: 3, Anomaly: 0, Divisor: 1, GeneratedAt: generated},
		{RunID: "run-2", Variable: "tavg_c_monthly", Year: 2001, Month: 1, Mean: 4, Baseline: 6, Anomaly: -0.002, Divisor: 1000, GeneratedAt: generated},
		{RunID: "run-2", Variable: "tavg_c_monthly", Year: 2001, Month: 3, Mean: 8, Baseline: 6, Anomaly: 0.002, Divisor: 1000, GeneratedAt: generated},
	}

	if diff := cmp.Diff(want, r.AnomalyRecords()); diff != "" {
		t.Errorf("AnomalyRecords() mismatch (-want +got):\n%s", diff)
	}
}

func TestAnomalyRecord_Key(t *testing.T) {
	tests := []struct {
		name string
		rec  AnomalyRecord
		want string
	}{
		{"annual", AnomalyRecord{Variable: VarFlow, Year: 2001}, "flow_mmday|2001"},
		{"monthly", AnomalyRecord{Variable: MonthlyVariable(VarTavg), Year: 2002, Month: 3}, "tavg_c_monthly|2002-03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.Key())
		})
	}
}

func TestSetClock(t *testing.T) {
	t.Run("set custom clock", func(t *testing.T) {
		fixedTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		SetClock(clockwork.NewFakeClockAt(fixedTime))

		assert.Equal(t, fixedTime, clock.Now())

		SetClock(nil)
	})

	t.Run("reset to real clock", func(t *testing.T) {
		SetClock(clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		SetClock(nil)

		assert.True(t, time.Since(clock.Now()) < time.Second)
	})
}
