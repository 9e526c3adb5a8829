// Command harness is the evaluation harness's single binary: it exposes
// "run" (evaluate all candidates), "controller serve" (the Proxy
// Controller Service), and a hidden re-exec subcommand used internally
// by the Project Worker.
package main

import "github.com/memcomp/harness/cmd"

func main() {
	cmd.Execute()
}
