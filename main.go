package main

import "github.com/ayaseen/cluster-probes/cmd"

func main() {
	cmd.Execute()
}
