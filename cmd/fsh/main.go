// Package main provides fsh, an interactive shell for reading and patching
// files through the fileio backends.
package main

import (
	"os"
	"strings"

	"github.com/calvinalkan/patchkit/internal/fsh"
)

func main() {
	environ := os.Environ()
	env := make(map[string]string, len(environ))

	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	exitCode := fsh.Run(os.Stdin, os.Stdout, os.Stderr, os.Args, env)

	os.Exit(exitCode)
}
