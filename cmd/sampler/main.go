package main

import "github.com/Layr-Labs/state-sampler/cmd"

func main() {
	cmd.Execute()
}
