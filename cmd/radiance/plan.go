package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxy-radiance/engine/cascade"
	"github.com/Carmen-Shannon/oxy-radiance/engine/kernels"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// cascadeConfig is the cascade configuration read from command flags.
type cascadeConfig struct {
	width     int
	height    int
	variant   cascade.Variant
	maxExtent uint32
	options   []cascade.CascadeBuilderOption
}

func configFromContext(ctx *cli.Context) (cascadeConfig, error) {
	variant, err := cascade.ParseVariant(ctx.String("variant"))
	if err != nil {
		return cascadeConfig{}, err
	}
	return cascadeConfig{
		width:     ctx.Int("width"),
		height:    ctx.Int("height"),
		variant:   variant,
		maxExtent: uint32(ctx.Uint("max-extent")),
		options: []cascade.CascadeBuilderOption{
			cascade.WithVariant(variant),
			cascade.WithReductionFactor(ctx.Int("reduction")),
			cascade.WithBaseRayOffset(float32(ctx.Float64("offset"))),
			cascade.WithBaseRayLength(float32(ctx.Float64("length"))),
		},
	}, nil
}

// Print the layer plan of a cascade.
func planCommand(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}

	var chart io.Writer
	if path := ctx.String("chart"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create chart: %w", err)
		}
		defer f.Close()
		chart = f
	}
	return writePlan(os.Stdout, chart, cfg)
}

// writePlan configures a cascade against a dry-run backend whose volumetric limit is
// cfg.maxExtent and writes its layer table to w. When chart is not nil an HTML chart of the
// same layers is written to it.
func writePlan(w, chart io.Writer, cfg cascadeConfig) error {
	set, err := kernels.Load(cfg.variant)
	if err != nil {
		return err
	}

	be := cascade.NewDryRunBackend(cascade.Limits{MaxVolumeExtent: cfg.maxExtent})
	c := cascade.NewCascade(be, set.Kernels, cfg.options...)
	if err := c.Configure(cfg.width, cfg.height); err != nil {
		return fmt.Errorf("failed to plan %s cascade for %dx%d: %w", cfg.variant, cfg.width, cfg.height, err)
	}
	defer c.Release()

	litW, litH := c.LitSceneSize()
	layers := c.Layers()
	fmt.Fprintf(w, "%s cascade for %dx%d, lit scene %dx%d, %d of %d planned layers, %d dispatches per frame\n",
		c.Variant(), cfg.width, cfg.height, litW, litH, len(layers), len(c.Plan()), c.DispatchCount())

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Layer", "Resolution", "Spacing", "Interval", "Step", "Steps", "Extent", "Groups", "Memory"})
	for _, layer := range layers {
		info := layer.Info
		table.Append([]string{
			fmt.Sprintf("%d", layer.Index),
			fmt.Sprintf("%dx%dx%d", info.Resolution[0], info.Resolution[1], info.Resolution[2]),
			fmt.Sprintf("%d", info.ProbeSpacing),
			fmt.Sprintf("%g - %g", info.RayOffset, info.Reach()),
			fmt.Sprintf("%g", info.StepSize),
			fmt.Sprintf("%d", info.QuarterSampleCount*4),
			formatExtent(layer.Extent),
			formatExtent(layer.DispatchGroups),
			humanize.IBytes(be.ResourceBytes(layer.Buffer) + be.ResourceBytes(layer.Uniforms)),
		})
	}
	table.SetFooter([]string{"", "", "", "", "", "", "", "TOTAL", humanize.IBytes(be.AllocatedBytes())})
	table.Render()

	if _, err := buf.WriteTo(w); err != nil {
		return err
	}
	for _, d := range c.Diagnostics() {
		fmt.Fprintf(w, "dropped: %s\n", d)
	}

	if chart != nil {
		return writeChart(chart, c, be)
	}
	return nil
}

func formatExtent(e [3]uint32) string {
	return fmt.Sprintf("%dx%dx%d", e[0], e[1], e[2])
}
