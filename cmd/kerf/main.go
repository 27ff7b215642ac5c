// Command kerf splits BIM solids and keeps their volume accounting.
//
//	kerf serve               run the HTTP API
//	kerf eval <script>       run a split script and report the parts
//	kerf split <mesh.json>   split one mesh by a plane or sketch
//	kerf volume <mesh.json>  measure a closed mesh
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kerf:", err)
		os.Exit(1)
	}
}
