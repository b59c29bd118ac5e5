package synth

import "os"

// ShowHelp prints usage information for the generator.
func ShowHelp() {
	os.Stdout.WriteString(`gen-hits: synthetic hit files with known vertices
=================================================

Usage:
  go run ./cmd/gen-hits [options]

Options:
  -events int       Number of events to generate (default 100)
  -first int        Id of the first event (default 1)
  -tracks int       Straight tracks per event (default 20)
  -noise int        Noise hits per event (default 0)
  -eta float        Maximum |eta| of generated tracks (default 1.5)
  -zsigma float     Spread of the true vertex (default 5)
  -zlimit float     Largest |z0| generated (default 15)
  -seed uint        Generator seed (default 1)
  -out string       Hit file to write (default "hits.csv")
  -truth string     Truth file to write (default "truth.csv")
  -verify string    Compare this results file with -truth instead of generating
  -tol float        Largest |estimate - z0| counted as found (default 0.1)
  -help             Show this help message

Examples:
  # 1000 busy events
  go run ./cmd/gen-hits -events 1000 -tracks 250 -noise 100

  # Check zfinder output against the truth file
  go run ./cmd/gen-hits -verify results.csv -truth truth.csv
`)
}
