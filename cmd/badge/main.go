// Command badge writes the QR badge for a person to a PNG file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/okian/rollcall/internal/domain/identity"
)

func main() {
	var (
		id     = flag.Int64("id", 0, "Person id")
		prefix = flag.String("prefix", identity.DefaultPrefix, "Structured code prefix")
		size   = flag.Int("size", 256, "Image size in pixels")
		out    = flag.String("out", "", "Output file (default badge_<id>.png)")
	)
	flag.Parse()

	path, err := write(*id, *prefix, *size, *out)
	if err != nil {
		os.Stderr.WriteString("badge: " + err.Error() + "\n")
		os.Exit(1)
	}
	os.Stdout.WriteString(path + "\n")
}

// write renders the badge for id and returns the file it wrote.
func write(id int64, prefix string, size int, out string) (string, error) {
	png, err := identity.BadgePNG(prefix, id, size)
	if err != nil {
		return "", err
	}
	if out == "" {
		out = fmt.Sprintf("badge_%d.png", id)
	}
	if err := os.WriteFile(out, png, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", out, err)
	}
	return out, nil
}
