package main

import (
	cmd "github.com/kerbaras/adxport/cmd/adxport"
)

func main() {
	cmd.Execute()
}
