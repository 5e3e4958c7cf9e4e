// plotcalc evaluates quality metrics of a staged additive model at a
// subsequence of training checkpoints.
package main

import (
	"os"

	"github.com/Sumatoshi-tech/plotcalc/cmd/plotcalc/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
