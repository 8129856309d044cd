// Command advisorctl evaluates budgets from the terminal and manages local
// accounts and history in the SQLite database shared with the web server.
package main

func main() {
	Execute()
}
