// Command chronosight explores the history of a place through AI-generated
// narratives and images.
package main

import (
	"fmt"
	"os"

	"github.com/ppiankov/chronosight/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
