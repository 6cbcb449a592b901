package main

import "github.com/zongseung/energyrag/cmd"

func main() {
	cmd.Execute()
}
