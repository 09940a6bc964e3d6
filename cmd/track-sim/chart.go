package main

import (
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// renderChart writes an HTML scatter chart comparing true target
// positions with the per-step weighted posterior means.
func renderChart(path string, truth [][2]float64, estHistory [][][]float64) error {
	truthData := make([]opts.ScatterData, 0, len(truth))
	for _, tr := range truth {
		truthData = append(truthData, opts.ScatterData{Value: []interface{}{tr[0], tr[1]}})
	}

	estData := make([]opts.ScatterData, 0, len(estHistory)*len(truth))
	for _, step := range estHistory {
		for _, est := range step {
			estData = append(estData, opts.ScatterData{Value: []interface{}{est[0], est[1]}})
		}
	}

	pad := arenaHalfWidth * 1.1
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Tracker Run", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Target estimates vs. truth"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)

	scatter.AddSeries("estimates", estData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	scatter.AddSeries("truth", truthData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return scatter.Render(f)
}
