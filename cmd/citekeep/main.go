// citekeep is the command-line entry point: API server, migrations, and
// operational tooling.
package main

import "github.com/citekeep/citekeep/internal/interfaces/cli"

func main() {
	cli.Execute()
}
