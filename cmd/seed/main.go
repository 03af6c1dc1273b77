// Command seed posts synthetic activity events to a running instance.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flexcrm/engage/internal/testevents"
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9090", "base URL of the running service")
		count   = flag.Int("count", 100, "number of events to post")
		deals   = flag.Int("deals", 5, "number of distinct deals")
		actors  = flag.Int("actors", 8, "number of distinct lenders")
		delay   = flag.Duration("delay", 10*time.Millisecond, "delay between posts")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g := testevents.NewGenerator(*baseURL, *deals, *actors, *seed)
	if err := g.Run(ctx, *count, *delay); err != nil {
		os.Stderr.WriteString("seed failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
