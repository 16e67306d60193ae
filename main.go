// Entrypoint only; all command wiring lives in cmd/root.go.

package main

import (
	"github.com/nvme-qos/nvme-qos/cmd"
)

func main() {
	cmd.Execute()
}
