// Command buddyctl drives a pkg/buddy.Allocator from a script of
// allocate/zero_allocate/free/reallocate lines, printing the allocator's
// introspection counters as it goes. It exists to give the library a
// runnable driver and a way to eyeball behavior on a real kernel, not as
// a production memory-management tool.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var log zerolog.Logger

func main() {
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buddyctl",
		Short: "Drive a buddy-system allocator from a script",
	}
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newHistoryCmd())
	return cmd
}
