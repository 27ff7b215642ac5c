package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/kerf/pkg/kernel/sdfx"
	"github.com/chazu/kerf/pkg/scene"
	"github.com/chazu/kerf/pkg/store"
	"github.com/chazu/kerf/pkg/tessellate"
	"github.com/spf13/cobra"
)

func newEvalCmd(c *cli) *cobra.Command {
	var (
		stlDir string
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "eval <script>",
		Short: "Run a split script and report the resulting parts",
		Long: `Evaluate a kerf script ("-" reads stdin) and print one line per
active solid. With --stl-dir every active solid is written as STL; with
--save every split is persisted to the configured store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(cmd, args[0])
			if err != nil {
				return err
			}

			var p *store.Persister
			if save {
				st, err := c.cfg.Store.Open(c.logger)
				if err != nil {
					return err
				}
				defer st.Close()
				p = store.NewPersister(st, c.cfg.Store.PersisterOptions(c.logger, nil))
				defer p.Close()
			}

			var sp scene.Persister
			if p != nil {
				sp = p
			}
			eng, err := c.cfg.NewEngine(c.logger, sp)
			if err != nil {
				return err
			}
			sc, evalErrs, err := eng.Evaluate(src)
			if err != nil {
				return err
			}
			if len(evalErrs) > 0 {
				for _, e := range evalErrs {
					fmt.Fprintln(cmd.ErrOrStderr(), e.Error())
				}
				return fmt.Errorf("%s: %d error(s)", args[0], len(evalErrs))
			}
			if p != nil {
				if err := p.Flush(cmd.Context()); err != nil {
					return err
				}
			}

			if err := printScene(cmd.OutOrStdout(), sc); err != nil {
				return err
			}
			if stlDir != "" {
				return writeSTL(stlDir, sc)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&stlDir, "stl-dir", "", "write each active solid as STL into this directory")
	cmd.Flags().BoolVar(&save, "save", false, "persist splits to the configured store")
	return cmd
}

func readSource(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func printScene(w io.Writer, sc *scene.Scene) error {
	for _, h := range sc.Active() {
		sol, _ := sc.Get(h)
		vol, ratio := sol.Volume, 1.0
		if sol.Element != nil {
			vol, ratio = sol.Element.Volume, sol.Element.VolumeRatio
		}
		if _, err := fmt.Fprintf(w, "%-24s volume=%.6g ratio=%.4f triangles=%d\n",
			tessellate.PartName(sol), vol, ratio, sol.Mesh.TriangleCount()); err != nil {
			return err
		}
	}
	return nil
}

func writeSTL(dir string, sc *scene.Scene) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("stl dir: %w", err)
	}
	for _, h := range sc.Active() {
		sol, _ := sc.Get(h)
		name := strings.NewReplacer("/", "_", "#", "_").Replace(tessellate.PartName(sol)) + ".stl"
		if err := sdfx.ExportSTL(filepath.Join(dir, name), sol.Mesh); err != nil {
			return err
		}
	}
	return nil
}
