//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Download builds seqfetch and runs it on $INPUT, writing $OUTPUT
// (default sequences.fasta). Credentials come from the usual env/.secrets/.
func Download() error {
	mg.Deps(Build)

	input := os.Getenv("INPUT")
	if input == "" {
		return fmt.Errorf("set INPUT to an accession list")
	}
	output := os.Getenv("OUTPUT")
	if output == "" {
		output = "sequences.fasta"
	}
	return sh.RunV(filepath.Join(binDir, binName), "-i", input, "-o", output, "--summary", output+".summary.yaml")
}
