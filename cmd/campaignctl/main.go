// Command campaignctl works on the campaign database from the shell: it
// imports brief files, runs generations and exports asset archives without
// going through the HTTP server.
package main

import (
	"os"
)

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
