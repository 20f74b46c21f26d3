// Command menuctl inspects the catalog the bot would serve and decodes
// callback tokens.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand(defaultSourceFactory).Execute(); err != nil {
		os.Exit(1)
	}
}
