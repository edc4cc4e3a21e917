// Command scan-sim replays a noisy crowd against a station and verifies the roster.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/rollcall/internal/adapters/http/api"
	"github.com/okian/rollcall/internal/scansim"
	"github.com/okian/rollcall/pkg/logger"
)

const (
	defaultRunTimeout = 10 * time.Minute
	tokenTTL          = time.Hour
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the station")
		people     = flag.Int("people", scansim.DefaultPeople, "Number of people in the crowd")
		firstID    = flag.Int64("first-id", 1, "Person id of the first person")
		visits     = flag.Int("visits", scansim.DefaultVisits, "Times each person shows a badge")
		frames     = flag.Int("frames", scansim.DefaultFrames, "Decoded frames per visit")
		frameGap   = flag.Duration("frame-gap", scansim.DefaultFrameGap, "Spacing between frames")
		visitGap   = flag.Duration("visit-gap", scansim.DefaultVisitGap, "Spacing between visits")
		noise      = flag.Float64("noise", 0.1, "Fraction of unreadable frames")
		lanes      = flag.Int("lanes", scansim.DefaultLanes, "Concurrent cameras")
		settle     = flag.Duration("settle", scansim.DefaultSettle, "Wait before reading the roster")
		signingKey = flag.String("signing-key", os.Getenv("ROLLCALL_AUTH_SIGNING_KEY"), "HS256 key used to issue a station token")
		issuer     = flag.String("issuer", "rollcall", "Token issuer")
		station    = flag.String("station", "scan-sim", "Station id carried in the token")
		verbose    = flag.Bool("verbose", false, "Log every rejected scan")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		scansim.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := scansim.Config{
		BaseURL:  *baseURL,
		FirstID:  *firstID,
		People:   *people,
		Visits:   *visits,
		Frames:   *frames,
		FrameGap: *frameGap,
		VisitGap: *visitGap,
		Noise:    *noise,
		Lanes:    *lanes,
		Settle:   *settle,
		Verbose:  *verbose,
	}
	if *signingKey != "" {
		token, err := api.NewAuthenticator(*signingKey, *issuer).Issue("scan-sim", *station, tokenTTL)
		if err != nil {
			os.Stderr.WriteString("failed to issue token: " + err.Error() + "\n")
			os.Exit(1)
		}
		cfg.Token = token
	}

	if _, err := scansim.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
