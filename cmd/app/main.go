package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/relscope/internal"
	pkgconfig "github.com/starford/relscope/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	// An explicit flag wins over the file.
	if ws := cmd.String("workspace"); ws != "" {
		cfg.Workspace.Path = ws
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func plainFlag() cli.Flag {
	return &cli.BoolFlag{Name: "plain", Usage: "Disable colors and styling"}
}

func main() {
	cmd := &cli.Command{
		Name:   "relscope",
		Usage:  "Inspect, edit and repack Office Open XML packages (docx, xlsx, pptx)",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "workspace",
				Aliases: []string{"w"},
				Usage:   "Workspace directory (overrides the config file)",
				Sources: cli.EnvVars("RELSCOPE_WORKSPACE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP API server",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:      "inspect",
				Usage:     "Print the part tree of a package",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					plainFlag(),
					&cli.BoolFlag{Name: "graph", Usage: "Print relationships instead of the tree"},
				},
				Action: inspect,
			},
			{
				Name:      "deps",
				Usage:     "Print the dependencies and dependents of a part",
				ArgsUsage: "FILE PART",
				Flags:     []cli.Flag{plainFlag()},
				Action:    deps,
			},
			{
				Name:      "repack",
				Usage:     "Rewrite a package through the repacker",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default <name>_edited.<ext>)"},
				},
				Action: repackFile,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
