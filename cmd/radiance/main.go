package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "radiance"
	app.Usage = "plan and run a radiance cascade"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "plan",
			Usage: "print the layer plan for a render target without touching the GPU",
			Description: `
Configure a cascade against a dry-run backend and print every allocated layer:
its resolution, probe spacing, ray interval, buffer extent, dispatch groups and
the memory it would occupy. Layers dropped by the volumetric extent limit are
listed below the table.`,
			Flags: append(cascadeFlags(),
				cli.UintFlag{Name: "max-extent", Value: 2048, Usage: "largest volumetric extent per axis"},
				cli.StringFlag{Name: "chart", Usage: "also write an HTML chart of layer memory and ray intervals to this file"},
			),
			Action: planCommand,
		},
		{
			Name:  "run",
			Usage: "open a window and light an interactive emitter scene",
			Description: `
Render the demo emitter scene through the cascade every frame. One emitter
follows the cursor. Press V to switch between the packed and volumetric
variants, R to step the reduction factor through 1, 2 and 4, and Space to
toggle profiling.`,
			Flags: append(cascadeFlags(),
				cli.UintFlag{Name: "max-extent", Value: 0, Usage: "largest volumetric extent per axis, 0 for the device limit"},
				cli.BoolFlag{Name: "vsync", Usage: "wait for vertical blank when presenting"},
				cli.BoolFlag{Name: "software", Usage: "force the software fallback adapter"},
				cli.BoolFlag{Name: "validate", Usage: "compile every kernel to SPIR-V before running"},
				cli.BoolFlag{Name: "profile", Usage: "log frame rate and memory statistics"},
				cli.Float64Flag{Name: "fps", Value: 0, Usage: "render frame limit, 0 for unlimited"},
			),
			Action: runCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// cascadeFlags are the configuration inputs shared by every command that builds a cascade.
func cascadeFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Value: 1920,
			Usage: "render target width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 1080,
			Usage: "render target height",
		},
		cli.StringFlag{
			Name:  "variant",
			Value: "packed",
			Usage: "layer storage variant (packed or volumetric)",
		},
		cli.IntFlag{
			Name:  "reduction",
			Value: 2,
			Usage: "render target texels per lit-scene texel",
		},
		cli.Float64Flag{
			Name:  "offset",
			Value: 0.5,
			Usage: "ray start distance of the nearest layer",
		},
		cli.Float64Flag{
			Name:  "length",
			Value: 2.0,
			Usage: "ray length of the nearest layer",
		},
	}
}
