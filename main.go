package main

import "github.com/grandcamel/splunk-as/pkg/cmd"

func main() {
	cmd.Execute()
}
