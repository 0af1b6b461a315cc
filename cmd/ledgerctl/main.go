// Command ledgerctl administers the ledger directly against its store:
// listing and creating parties, balance overrides, loans, history and
// consistency audits.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
