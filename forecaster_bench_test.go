package magi

import (
	"context"
	"testing"

	"github.com/forecastkit/magi/backend/native"
	"github.com/forecastkit/magi/timedataset"
	"github.com/pkg/profile"
)

var benchTableRes *TableResult

func BenchmarkForecastTable(b *testing.B) {
	opt := timedataset.NewDefaultTableOptions()
	opt.NumColumns = 20
	opt.NumRows = 60
	tbl, err := timedataset.GenerateTable(opt)
	if err != nil {
		panic(err)
	}

	f, err := NewFromTable(tbl, native.New(nil), nil, nil)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	b.ResetTimer()
	defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	for b.Loop() {
		benchTableRes, err = f.ForecastTable(context.Background(), "auto.arima(rdata)", SelectFullFit)
		if err != nil {
			panic(err)
		}
	}
}

func BenchmarkForecastOne(b *testing.B) {
	t, err := timedataset.GenerateT(120, timedataset.NewDefaultTableOptions().End, timedataset.Monthly)
	if err != nil {
		panic(err)
	}
	y := timedataset.GenerateTrendY(120, 100, 0.5).Add(timedataset.GenerateWaveY(120, 10, 12, 0))
	series, err := timedataset.NewNamedDataset("bench", t, y)
	if err != nil {
		panic(err)
	}
	engine := native.New(nil)

	b.ResetTimer()
	for b.Loop() {
		if _, err := ForecastOne(context.Background(), engine, series, "ets(rdata)", 18, timedataset.Monthly, 80); err != nil {
			panic(err)
		}
	}
}
