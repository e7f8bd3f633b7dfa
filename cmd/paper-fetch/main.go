// Command paper-fetch downloads a Paper server jar and keeps it verified.
package main

import "github.com/oshokin/paper-fetch/cmd/paper-fetch/cmd"

func main() {
	cmd.Execute()
}
