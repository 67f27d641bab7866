package main

import "github.com/kamilpajak/testreport/cmd/testreport"

func main() {
	testreport.Execute()
}
