package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chazu/kerf/pkg/clip"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/sdfx"
	"github.com/chazu/kerf/pkg/lineage"
	"github.com/chazu/kerf/pkg/split"
	"github.com/spf13/cobra"
)

// splitOutput is what `kerf split` prints.
type splitOutput struct {
	Elements      [2]*lineage.SplitElement `json:"elements"`
	BoundaryEdges [2]int                   `json:"boundary_edges"`
}

func newSplitCmd(c *cli) *cobra.Command {
	var (
		source     string
		axis       string
		at         float64
		normal     string
		point      string
		paramsFile string
		outDir     string
		save       bool
	)
	cmd := &cobra.Command{
		Use:   "split <mesh.json>",
		Short: "Split a mesh by a plane or a sketched loop",
		Long: `Split a closed mesh read from JSON ({"vertices": [...], "faces": [...]}).
The plane is axis-aligned (--axis --at), oblique (--normal --point), or
the whole split is read from a params file holding
{"method": "sketch", "sketch": {...}}.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := readMesh(args[0])
			if err != nil {
				return err
			}
			if source == "" {
				source = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			var params split.Params
			if paramsFile != "" {
				data, err := os.ReadFile(paramsFile)
				if err != nil {
					return fmt.Errorf("read %s: %w", paramsFile, err)
				}
				if err := json.Unmarshal(data, &params); err != nil {
					return fmt.Errorf("parse %s: %w", paramsFile, err)
				}
			} else {
				pp := &split.PlaneParams{PositionPercent: at}
				if pp.Axis, err = clip.ParseAxis(axis); err != nil {
					return err
				}
				if normal != "" || point != "" {
					n, err := parseTriple(normal)
					if err != nil {
						return fmt.Errorf("--normal: %w", err)
					}
					p, err := parseTriple(point)
					if err != nil {
						return fmt.Errorf("--point: %w", err)
					}
					pp.Normal, pp.Point = &n, &p
				}
				params = split.Params{Method: lineage.MethodPlane, Plane: pp}
			}

			req := split.Request{TargetMesh: m, SourceElementID: source, Params: params}
			if err := req.Validate(); err != nil {
				return err
			}
			sp, err := c.cfg.Kernel.Splitter()
			if err != nil {
				return err
			}
			res, err := sp.Split(req.Target(), req.Params)
			if err != nil {
				return fmt.Errorf("%s: %w", kernel.KindOf(err), err)
			}

			if save {
				st, err := c.cfg.Store.Open(c.logger)
				if err != nil {
					return err
				}
				defer st.Close()
				for _, e := range res.Elements {
					if e.ID, err = st.Save(cmd.Context(), e); err != nil {
						return err
					}
				}
			}
			if outDir != "" {
				if err := writeParts(outDir, source, res); err != nil {
					return err
				}
			}

			out := splitOutput{Elements: res.Elements}
			for i, edges := range res.BoundaryEdges {
				out.BoundaryEdges[i] = len(edges)
			}
			// Geometry goes to --out-dir, not the summary.
			for _, e := range out.Elements {
				e.Geometry = nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "source element id (default: mesh file name)")
	cmd.Flags().StringVar(&axis, "axis", "z", "plane axis: x, y or z")
	cmd.Flags().Float64Var(&at, "at", 50, "plane position as a percentage of the bounding box")
	cmd.Flags().StringVar(&normal, "normal", "", "oblique plane normal as x,y,z")
	cmd.Flags().StringVar(&point, "point", "", "oblique plane point as x,y,z")
	cmd.Flags().StringVar(&paramsFile, "params", "", "read split params (plane or sketch) from a JSON file")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "write both parts as mesh JSON and STL")
	cmd.Flags().BoolVar(&save, "save", false, "persist both parts to the configured store")
	return cmd
}

func readMesh(path string) (*kernel.Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var m kernel.Mesh
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}

func parseTriple(s string) ([3]float64, error) {
	var out [3]float64
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("want x,y,z, got %q", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, fmt.Errorf("component %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}

func writeParts(dir, source string, res *split.Result) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("out dir: %w", err)
	}
	for _, e := range res.Elements {
		base := filepath.Join(dir, source+"-"+string(e.PartType))
		data, err := json.Marshal(e.Geometry)
		if err != nil {
			return err
		}
		if err := os.WriteFile(base+".json", data, 0o640); err != nil {
			return fmt.Errorf("write %s.json: %w", base, err)
		}
		if err := sdfx.ExportSTL(base+".stl", e.Geometry); err != nil {
			return err
		}
	}
	return nil
}
