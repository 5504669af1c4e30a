package main

import (
	"fmt"
	"io"

	"pmsync/internal/services"
)

// reportError prints err and the remediation steps for its class.
func reportError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
	hints := services.Hint(err)
	if len(hints) == 0 {
		return
	}
	fmt.Fprintln(w, "next steps:")
	for _, hint := range hints {
		fmt.Fprintf(w, "  - %s\n", hint)
	}
}
