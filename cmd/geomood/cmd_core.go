package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/geomood/internal/journal"
	"github.com/nvandessel/geomood/internal/visualization"
)

func newCoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "core",
		Short: "Draw the sediment core",
		Long: `Simulate every entry and draw the resulting core.

Formats:
  ascii - one character per grain, date rules between days (default)
  svg   - the core as an SVG image
  json  - grains, skyline, gems and date markers
  html  - a standalone page with the SVG (use 'geomood serve' to click gems)

Examples:
  geomood core
  geomood core --format svg --output core.svg
  geomood core --format html --width 600`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			width, _ := cmd.Flags().GetInt("width")
			noOpen, _ := cmd.Flags().GetBool("no-open")

			f, err := visualization.ParseFormat(format)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()
			core, err := a.journal.Core(ctx)
			if err != nil {
				return fmt.Errorf("simulate core: %w", err)
			}
			if width <= 0 {
				width = a.canvasWidth()
			}
			layout := visualization.NewLayout(width, visualization.DefaultMinHeight, core.Columns, core.MaxHeight)

			var buf bytes.Buffer
			switch f {
			case visualization.FormatASCII:
				err = visualization.RenderASCII(&buf, core.Result)
			case visualization.FormatSVG:
				err = visualization.RenderSVG(&buf, core.Result, layout)
			case visualization.FormatJSON:
				enc := json.NewEncoder(&buf)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				err = enc.Encode(struct {
					*journal.Core
					Layout visualization.Layout `json:"layout"`
				}{core, layout})
			case visualization.FormatHTML:
				surface, serr := a.journal.Surface(ctx)
				if serr != nil {
					return serr
				}
				err = visualization.RenderHTML(&buf, core, surface, layout)
			}
			if err != nil {
				return fmt.Errorf("render %s: %w", f, err)
			}

			if f == visualization.FormatHTML && output == "" {
				output = filepath.Join(os.TempDir(), "geomood-core.html")
			}
			if output == "" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}

			if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Core written to %s\n", output)

			if f == visualization.FormatHTML && !noOpen {
				if err := visualization.OpenBrowser(output); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, output)
				}
			}
			return nil
		},
	}

	cmd.Flags().String("format", "ascii", "Output format: ascii, svg, json, or html")
	cmd.Flags().StringP("output", "o", "", "Output file path (default: stdout; a temp file for html)")
	cmd.Flags().Int("width", 0, "Canvas width in pixels (default: columns * grain_size)")
	cmd.Flags().Bool("no-open", false, "Don't open browser after writing HTML")

	return cmd
}

func newSurfaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "surface",
		Short: "Show what grows on top of the core",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			surface, err := a.journal.Surface(context.Background())
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"surface": string(surface)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Surface: %s\n", surface)
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Open the core in a local web page",
		Long: `Start a local server with the interactive core. Click a grain to read
its entry, or a gem to dig it up. Blocks until Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			width, _ := cmd.Flags().GetInt("width")
			noOpen, _ := cmd.Flags().GetBool("no-open")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if width <= 0 {
				width = a.canvasWidth()
			}
			return runCoreServer(cmd, context.Background(), a, width, noOpen)
		},
	}

	cmd.Flags().Int("width", 0, "Canvas width in pixels (default: columns * grain_size)")
	cmd.Flags().Bool("no-open", false, "Don't open the browser")

	return cmd
}

// runCoreServer starts the core server and blocks until Ctrl-C or ctx ends.
func runCoreServer(cmd *cobra.Command, ctx context.Context, a *app, width int, noOpen bool) error {
	srv := visualization.NewServer(a.journal, visualization.ServerOptions{
		Width:  width,
		Logger: a.logger,
	})

	srvCtx, srvCancel := context.WithCancel(ctx)
	defer srvCancel()

	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			srvCancel()
		case <-srvCtx.Done():
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(srvCtx) }()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if srv.Addr() != "" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	addr := srv.Addr()
	if addr == "" {
		return fmt.Errorf("server failed to start")
	}

	url := "http://" + addr
	fmt.Fprintf(cmd.OutOrStdout(), "Core server running at %s\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")

	if !noOpen {
		if err := visualization.OpenBrowser(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
		}
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
