package main

import "github.com/frahmantamala/time2pay/cmd"

func main() {
	cmd.Execute()
}
