package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/starford/relscope/internal/packageservice"
	"github.com/starford/relscope/internal/preview"
	"github.com/starford/relscope/internal/render"
)

// openFile loads a package from disk into a throwaway service.
func openFile(ctx context.Context, file string) (*packageservice.Service, *packageservice.Summary, error) {
	if file == "" {
		return nil, nil, fmt.Errorf("missing FILE argument")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", file, err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	svc := packageservice.New(preview.NewStore(), packageservice.WithLogger(logger))
	sum, err := svc.Open(ctx, filepath.Base(file), data)
	if err != nil {
		return nil, nil, err
	}
	return svc, sum, nil
}

func inspect(ctx context.Context, cmd *cli.Command) error {
	svc, sum, err := openFile(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	r := render.New(cmd.Bool("plain"))
	fmt.Print(r.Summary(sum))
	fmt.Println()

	if cmd.Bool("graph") {
		g, err := svc.Graph(sum.ID)
		if err != nil {
			return err
		}
		fmt.Print(r.Graph(*g))
		return nil
	}
	nodes, err := svc.Tree(sum.ID)
	if err != nil {
		return err
	}
	fmt.Print(r.Tree(nodes))
	return nil
}

func deps(ctx context.Context, cmd *cli.Command) error {
	part := cmd.Args().Get(1)
	if part == "" {
		return fmt.Errorf("missing PART argument")
	}
	svc, sum, err := openFile(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	d, err := svc.Dependencies(sum.ID, part)
	if err != nil {
		return err
	}
	fmt.Print(render.New(cmd.Bool("plain")).Dependencies(d))
	return nil
}

func repackFile(ctx context.Context, cmd *cli.Command) error {
	file := cmd.Args().First()
	svc, sum, err := openFile(ctx, file)
	if err != nil {
		return err
	}
	dl, err := svc.Repack(ctx, sum.ID)
	if err != nil {
		return err
	}
	out := cmd.String("out")
	if out == "" {
		out = filepath.Join(filepath.Dir(file), dl.Name)
	}
	if err := os.WriteFile(out, dl.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Println(out)
	return nil
}
