package magi

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/forecastkit/magi/backend/native"
	"github.com/forecastkit/magi/timedataset"
)

func ExampleForecaster_Forecast() {
	t, err := timedataset.GenerateT(24, time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC), timedataset.Monthly)
	if err != nil {
		panic(err)
	}
	y := timedataset.GenerateTrendY(24, 100, 1)
	y[0] = math.NaN()

	series, err := timedataset.NewNamedDataset("sales", t, y)
	if err != nil {
		panic(err)
	}

	opt := NewDefaultOptions()
	opt.Horizon = 3
	f, err := NewFromSeries(series, native.New(nil), nil, opt)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	res, err := f.Forecast(context.Background(), "naive")
	if err != nil {
		panic(err)
	}
	fmt.Println(res.Method)
	for i, tPnt := range res.Predicted.T {
		fmt.Printf("%s %.1f\n", tPnt.Format("2006-01-02"), res.Predicted.Y[i])
	}
	fmt.Println(res.X.Len(), res.FullFit.Len(), res.Level)

	// Output:
	// Naive method
	// 2022-01-01 123.0
	// 2022-02-01 123.0
	// 2022-03-01 123.0
	// 23 26 80
}

func ExampleForecaster_ForecastTable() {
	tbl, err := timedataset.GenerateTable(nil)
	if err != nil {
		panic(err)
	}

	opt := NewDefaultOptions()
	opt.Horizon = 6
	f, err := NewFromTable(tbl, native.New(nil), nil, opt)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	res, err := f.ForecastTable(context.Background(), "thetaf", SelectPredicted)
	if err != nil {
		panic(err)
	}
	index := res.Table.Index()
	fmt.Println(res.Table.Names())
	fmt.Println(len(index), index[0].Format("2006-01-02"))

	// Output:
	// [ts0 ts1 ts2 ts3 ts4]
	// 6 2018-05-01
}
