package main

import (
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-radiance/engine/cascade"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const mib = 1 << 20

// writeChart renders an HTML page with the memory and ray interval of every allocated layer.
func writeChart(w io.Writer, c cascade.Cascade, be *cascade.DryRunBackend) error {
	layers := c.Layers()
	x := make([]string, 0, len(layers))
	memory := make([]opts.BarData, 0, len(layers))
	start := make([]opts.LineData, 0, len(layers))
	end := make([]opts.LineData, 0, len(layers))
	for _, layer := range layers {
		x = append(x, fmt.Sprintf("layer %d", layer.Index))
		bytes := be.ResourceBytes(layer.Buffer) + be.ResourceBytes(layer.Uniforms)
		memory = append(memory, opts.BarData{Value: float64(bytes) / mib})
		start = append(start, opts.LineData{Value: layer.Info.RayOffset})
		end = append(end, opts.LineData{Value: layer.Info.Reach()})
	}

	litW, litH := c.LitSceneSize()
	subtitle := fmt.Sprintf("%s, lit scene %dx%d", c.Variant(), litW, litH)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Layer memory (MiB)", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("memory", memory,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Ray interval", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "log", Name: "distance"}),
	)
	line.SetXAxis(x).
		AddSeries("start", start).
		AddSeries("end", end)

	page := components.NewPage()
	page.AddCharts(bar, line)
	return page.Render(w)
}
