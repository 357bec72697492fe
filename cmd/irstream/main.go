// Command irstream decodes, searches and produces CLP IR log streams.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	_ "time/tzdata" // --tz and stream timezones on hosts without zoneinfo
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
