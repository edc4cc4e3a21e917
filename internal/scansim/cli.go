package scansim

import "os"

// ShowHelp prints usage information for the scan simulator.
func ShowHelp() {
	os.Stdout.WriteString(`rollcall scan simulator
=======================

Replays a crowd of people holding badges up to a camera, with repeated
frames and unreadable reads, then checks GET /roster for duplicates.

Usage:
  go run ./cmd/scan-sim [options]

Options:
  -url string
        Base URL of the station (default "http://localhost:9080")
  -people int
        Number of people in the crowd (default 20)
  -first-id int
        Person id of the first person (default 1)
  -visits int
        Times each person shows a badge (default 2)
  -frames int
        Decoded frames per visit (default 12)
  -frame-gap duration
        Spacing between frames (default 66ms)
  -visit-gap duration
        Spacing between visits (default 1s)
  -noise float
        Fraction of unreadable frames, 0 to 1 (default 0.1)
  -lanes int
        Concurrent cameras (default 1)
  -settle duration
        Wait before reading the roster (default 3s)
  -signing-key string
        HS256 key used to issue a station token (default $ROLLCALL_AUTH_SIGNING_KEY)
  -verbose
        Log every rejected scan
  -help
        Show this help message

Examples:
  # Twenty people, twice each, against a local station
  go run ./cmd/scan-sim

  # Three cameras and a noisy decoder
  go run ./cmd/scan-sim -lanes 3 -noise 0.3 -people 100
`)
}
