// Command servant creates, inspects and stops servant workers. Invoked as
// "servant <name> <port>" it runs a worker itself.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
