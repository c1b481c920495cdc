package main

import "github.com/frahmantamala/expenseflow/cmd"

func main() {
	cmd.Execute()
}
