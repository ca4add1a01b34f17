package main

import (
	cmd "github.com/genaker/agento/cmd/agento"
)

func main() {
	cmd.Execute()
}
