// Command lica converts zip archives to and from lica containers.
//
// Usage:
//
//	lica pack <input_archive> <output_container>
//	lica unpack <input_container> <output_dir> [--stream]
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "lica: load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lica: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCommand(cfg, os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "lica: %v\n", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly above
	}
}
